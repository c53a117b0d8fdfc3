package game

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"trivia-service/internal/models"
)

// retry runs op with exponential backoff until it succeeds, the attempt
// budget is spent or the session is closed.
func (s *Session) retry(op func(ctx context.Context) error) error {
	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = s.settings.PersistBackoff
	retryBackoff.MaxInterval = 5 * time.Second
	retryBackoff.Multiplier = 2.0
	retryBackoff.RandomizationFactor = 0.2
	retryBackoff.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(retryBackoff, uint64(max(0, s.settings.PersistRetries))), s.ctx)
	return backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(s.ctx, s.settings.PersistTimeout)
		defer cancel()
		return op(ctx)
	}, policy)
}

func (s *Session) persistAnswer(answer models.Answer) {
	if s.deps.Answers == nil {
		return
	}

	go func() {
		err := s.retry(func(ctx context.Context) error {
			err := s.deps.Answers.InsertAnswer(ctx, &answer)
			if errors.Is(err, models.ErrAlreadyExists) {
				return nil
			}
			return err
		})
		if err != nil {
			_ = s.post(func() { s.markDegraded("answer", answer.PlayerID, err) })
		}
	}()
}

func (s *Session) persistProgress() {
	if s.deps.Progress == nil {
		return
	}

	round, questionIndex := s.round, s.questionIndex
	go func() {
		err := s.retry(func(ctx context.Context) error {
			return s.deps.Progress.UpdateProgress(ctx, s.id, round, questionIndex)
		})
		if err != nil {
			_ = s.post(func() { s.markDegraded("progress", "", err) })
		}
	}()
}

func (s *Session) persistRoundComplete() {
	if s.deps.Progress == nil {
		return
	}

	round := s.round
	go func() {
		err := s.retry(func(ctx context.Context) error {
			return s.deps.Progress.MarkRoundComplete(ctx, s.id, round)
		})
		if err != nil {
			_ = s.post(func() { s.markDegraded("round", "", err) })
		}
	}()
}

// markDegraded records that durable state has fallen behind memory. Play
// continues; only the host is told.
func (s *Session) markDegraded(what, clientID string, err error) {
	if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		return
	}

	s.logger.Error().Err(err).Str("write", what).Str("client_id", clientID).Msg("persistence retries exhausted")
	if s.degraded {
		return
	}
	s.degraded = true
	s.toHost(Event{Type: EventDegradedMode, Payload: DegradedPayload{Reason: what + " persistence failed"}})
}
