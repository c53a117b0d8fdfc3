package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Auth      AuthConfig
	Questions QuestionSourceConfig
	Game      GameConfig
	Scoring   ScoringConfig
	Log       LogConfig
}

type ServerConfig struct {
	HTTPPort string
	GRPCPort string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Enabled  bool
}

// AuthConfig holds the secret shared with the admin service that issues host
// tokens. An empty secret disables host token verification.
type AuthConfig struct {
	JWTSecret string
}

type QuestionSourceConfig struct {
	APIURL   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type GameConfig struct {
	SessionTTL        time.Duration
	DefaultRounds     int
	QuestionsPerRound int
	TimeLimit         time.Duration
	TeardownGrace     time.Duration
	PersistRetries    int
	JanitorInterval   time.Duration
	MessagesPerSecond int
}

type ScoringConfig struct {
	BasePoints     int
	MaxTimeBonus   int
	PenaltyPoints  int
	StreakStep     int
	StreakBonusCap int
	RoundBonus     int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	// .env is optional, the process environment always wins.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			HTTPPort: getEnv("HTTP_PORT", "8080"),
			GRPCPort: getEnv("GRPC_PORT", "50052"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "trivia"),
			Password: getEnv("DB_PASSWORD", "trivia_password"),
			DBName:   getEnv("DB_NAME", "trivia"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "redis"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "rabbitmq"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			Enabled:  getEnvAsBool("RABBITMQ_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Questions: QuestionSourceConfig{
			APIURL:   getEnv("QUESTION_API_URL", "https://opentdb.com/api.php"),
			Timeout:  getEnvAsDuration("QUESTION_API_TIMEOUT", 5*time.Second),
			CacheTTL: getEnvAsDuration("QUESTION_CACHE_TTL", 24*time.Hour),
		},
		Game: GameConfig{
			SessionTTL:        getEnvAsDuration("SESSION_TTL", 4*time.Hour),
			DefaultRounds:     getEnvAsInt("DEFAULT_ROUNDS", 3),
			QuestionsPerRound: getEnvAsInt("QUESTIONS_PER_ROUND", 5),
			TimeLimit:         getEnvAsDuration("QUESTION_TIME_LIMIT", 20*time.Second),
			TeardownGrace:     getEnvAsDuration("TEARDOWN_GRACE", 30*time.Second),
			PersistRetries:    getEnvAsInt("PERSIST_RETRIES", 5),
			JanitorInterval:   getEnvAsDuration("JANITOR_INTERVAL", time.Minute),
			MessagesPerSecond: getEnvAsInt("WS_MESSAGES_PER_SECOND", 20),
		},
		Scoring: ScoringConfig{
			BasePoints:     getEnvAsInt("SCORE_BASE_POINTS", 100),
			MaxTimeBonus:   getEnvAsInt("SCORE_MAX_TIME_BONUS", 50),
			PenaltyPoints:  getEnvAsInt("SCORE_PENALTY_POINTS", 20),
			StreakStep:     getEnvAsInt("SCORE_STREAK_STEP", 10),
			StreakBonusCap: getEnvAsInt("SCORE_STREAK_CAP", 100),
			RoundBonus:     getEnvAsInt("SCORE_ROUND_BONUS", 100),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
