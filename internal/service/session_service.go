package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"trivia-service/config"
	"trivia-service/internal/game"
	"trivia-service/internal/models"
	"trivia-service/internal/registry"
	"trivia-service/internal/scoring"
)

type SessionRegistry = registry.Registry[*game.Session]

type CreateSessionInput struct {
	HostID            string
	TotalRounds       int
	QuestionsPerRound int
	QuestionSet       string
	TimeLimitSeconds  int
}

// QuestionForgetter drops the cached questions of a destroyed session. The
// question loader in deps is used when it implements it.
type QuestionForgetter interface {
	Forget(ctx context.Context, sessionID string, rounds int) error
}

// SessionService creates game sessions and owns their teardown once a game
// finishes.
type SessionService struct {
	registry   *SessionRegistry
	deps       game.Deps
	completion *CompletionService
	game       config.GameConfig
	scoring    scoring.Config
	afterFunc  func(d time.Duration, f func()) *time.Timer
}

// NewSessionService takes the collaborators shared by every session in deps.
// Its completion hooks are overwritten. completion may be nil.
func NewSessionService(reg *SessionRegistry, deps game.Deps, completion *CompletionService, gameCfg config.GameConfig, scoringCfg scoring.Config) *SessionService {
	return &SessionService{
		registry:   reg,
		deps:       deps,
		completion: completion,
		game:       gameCfg,
		scoring:    scoringCfg,
		afterFunc:  time.AfterFunc,
	}
}

func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (models.Session, *game.Session, error) {
	params := registry.CreateParams{
		HostID:            in.HostID,
		TotalRounds:       in.TotalRounds,
		QuestionsPerRound: in.QuestionsPerRound,
		QuestionSet:       in.QuestionSet,
		TimeLimitSec:      in.TimeLimitSeconds,
		TTL:               s.game.SessionTTL,
	}
	if params.TotalRounds <= 0 {
		params.TotalRounds = s.game.DefaultRounds
	}
	if params.QuestionsPerRound <= 0 {
		params.QuestionsPerRound = s.game.QuestionsPerRound
	}
	if params.TimeLimitSec <= 0 {
		params.TimeLimitSec = int(s.game.TimeLimit / time.Second)
	}

	return s.registry.Create(ctx, params, s.build)
}

func (s *SessionService) build(meta models.Session) (*game.Session, error) {
	settings := game.Settings{
		TotalRounds:       meta.TotalRounds,
		QuestionsPerRound: meta.QuestionsPerRound,
		QuestionSet:       meta.QuestionSet,
		TimeLimit:         time.Duration(meta.TimeLimitSec) * time.Second,
		Scoring:           s.scoring,
		PersistRetries:    s.game.PersistRetries,
	}

	deps := s.deps
	deps.OnComplete = nil
	if s.completion != nil {
		deps.OnComplete = s.completion.GameCompleted
	}
	deps.OnFinished = s.finished

	sess := game.NewSession(meta, settings, deps)
	go sess.Run()
	return sess, nil
}

// finished refuses new connections right away and destroys the session once
// the grace period has let clients read the final results.
func (s *SessionService) finished(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	s.registry.Deactivate(ctx, sessionID)
	cancel()

	log.Info().Str("session_id", sessionID).Dur("grace", s.game.TeardownGrace).Msg("session finished")
	s.afterFunc(s.game.TeardownGrace, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.forgetQuestions(ctx, sessionID)
		s.registry.Destroy(ctx, sessionID)
	})
}

func (s *SessionService) forgetQuestions(ctx context.Context, sessionID string) {
	forgetter, ok := s.deps.Questions.(QuestionForgetter)
	if !ok {
		return
	}
	meta, err := s.registry.Record(ctx, sessionID)
	if err != nil {
		return
	}
	if err := forgetter.Forget(ctx, sessionID, meta.TotalRounds); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to drop cached questions")
	}
}

func (s *SessionService) Lookup(sessionID string) (models.Session, *game.Session, error) {
	return s.registry.Lookup(sessionID)
}

// Record reports a session's metadata, including sessions that have ended.
func (s *SessionService) Record(ctx context.Context, sessionID string) (models.Session, error) {
	return s.registry.Record(ctx, sessionID)
}

func (s *SessionService) LookupByCode(code string) (models.Session, *game.Session, error) {
	return s.registry.LookupByCode(code)
}

func (s *SessionService) ActiveSessions() int {
	return s.registry.Count()
}

func (s *SessionService) Shutdown(ctx context.Context) {
	s.registry.DestroyAll(ctx)
}
