package game

import (
	"context"
	"time"

	"trivia-service/internal/models"
	"trivia-service/internal/questions"
	"trivia-service/internal/scoring"
)

// Emitter delivers events to the logical participants of a session.
// Recipients without a live socket are skipped.
type Emitter interface {
	ToHost(sessionID string, ev Event)
	ToPlayer(sessionID, clientID string, ev Event)
	CloseRoom(sessionID string)
}

type QuestionLoader interface {
	Load(ctx context.Context, req questions.Request) (questions.Batch, error)
}

// AnswerStore persists write-once answer rows. A row that already exists is
// reported as models.ErrAlreadyExists.
type AnswerStore interface {
	InsertAnswer(ctx context.Context, answer *models.Answer) error
}

type ProgressStore interface {
	UpdateProgress(ctx context.Context, sessionID string, round, questionIndex int) error
	MarkRoundComplete(ctx context.Context, sessionID string, round int) error
}

type ProfileStore interface {
	EnsureProfile(ctx context.Context, email, displayName string) (*models.PlayerProfile, error)
}

// Summary describes a finished game.
type Summary struct {
	SessionID      string              `json:"session_id"`
	RoomCode       string              `json:"room_code"`
	HostID         string              `json:"host_id"`
	Reason         string              `json:"reason"`
	TotalRounds    int                 `json:"total_rounds"`
	QuestionsAsked int                 `json:"questions_asked"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
	Degraded       bool                `json:"degraded"`
	Results        []models.GameResult `json:"results"`
}

type Deps struct {
	Emitter   Emitter
	Questions QuestionLoader
	Answers   AnswerStore
	Progress  ProgressStore
	Profiles  ProfileStore

	// OnComplete receives the final standings once, off the session loop.
	OnComplete func(ctx context.Context, summary Summary) error
	// OnFinished is called after OnComplete returns.
	OnFinished func(sessionID string)

	Now func() time.Time
}

type Settings struct {
	TotalRounds       int
	QuestionsPerRound int
	QuestionSet       string
	TimeLimit         time.Duration
	Scoring           scoring.Config

	PersistRetries int
	PersistBackoff time.Duration
	PersistTimeout time.Duration
	QueueSize      int
}

func (s Settings) withDefaults() Settings {
	if s.TotalRounds <= 0 {
		s.TotalRounds = 1
	}
	if s.QuestionsPerRound <= 0 {
		s.QuestionsPerRound = 1
	}
	if s.TimeLimit <= 0 {
		s.TimeLimit = 20 * time.Second
	}
	if s.Scoring == (scoring.Config{}) {
		s.Scoring = scoring.DefaultConfig()
	}
	if s.PersistBackoff <= 0 {
		s.PersistBackoff = 200 * time.Millisecond
	}
	if s.PersistTimeout <= 0 {
		s.PersistTimeout = 5 * time.Second
	}
	if s.QueueSize <= 0 {
		s.QueueSize = 256
	}
	return s
}
