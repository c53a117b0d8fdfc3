// Package questions supplies normalised question sets per round.
//
// Suppliers are tried in a fixed order: cached rows, the primary API, then
// the bundled static set. The static set never fails, so Load only returns an
// error when the context is done.
package questions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"trivia-service/internal/client"
	"trivia-service/internal/models"
)

type Kind string

const (
	KindCache  Kind = "cache"
	KindAPI    Kind = "api"
	KindStatic Kind = "static"
)

var ErrNotEnoughQuestions = errors.New("not enough usable questions")

type Request struct {
	SessionID   string
	Round       int
	Count       int
	QuestionSet string
}

type Batch struct {
	Kind      Kind
	Questions []models.Question
}

type Fetcher interface {
	FetchQuestions(ctx context.Context, amount int, category string) ([]client.RawQuestion, error)
}

type Cache interface {
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, keys ...string) error
}

type Source struct {
	cache    Cache
	fetcher  Fetcher
	static   []models.Question
	cacheTTL time.Duration
	shuffle  func(n int, swap func(i, j int))
}

// NewSource builds the supplier chain. cache and fetcher may be nil.
func NewSource(cache Cache, fetcher Fetcher, cacheTTL time.Duration) *Source {
	return &Source{
		cache:    cache,
		fetcher:  fetcher,
		static:   Static(),
		cacheTTL: cacheTTL,
		shuffle:  rand.Shuffle,
	}
}

func CacheKey(sessionID string, round int) string {
	return fmt.Sprintf("trivia:session:%s:round:%d", sessionID, round)
}

func (s *Source) Load(ctx context.Context, req Request) (Batch, error) {
	if req.Count <= 0 {
		return Batch{}, fmt.Errorf("invalid question count %d", req.Count)
	}

	if s.cache != nil {
		var cached []models.Question
		err := s.cache.GetJSON(ctx, CacheKey(req.SessionID, req.Round), &cached)
		if err == nil && validBatch(cached, req.Count) {
			return Batch{Kind: KindCache, Questions: cached}, nil
		}
	}

	if s.fetcher != nil {
		questions, err := s.fromAPI(ctx, req)
		if err == nil {
			s.store(ctx, req, questions)
			return Batch{Kind: KindAPI, Questions: questions}, nil
		}
		log.Warn().Err(err).Str("session_id", req.SessionID).Int("round", req.Round).Msg("question api unavailable, using static set")
	}

	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	questions := s.fromStatic(req)
	s.store(ctx, req, questions)
	return Batch{Kind: KindStatic, Questions: questions}, nil
}

// Forget drops the cached rounds of a session that will not be played again.
func (s *Source) Forget(ctx context.Context, sessionID string, rounds int) error {
	if s.cache == nil || rounds <= 0 {
		return nil
	}
	keys := make([]string, 0, rounds)
	for round := range rounds {
		keys = append(keys, CacheKey(sessionID, round))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to drop cached questions: %w", err)
	}
	return nil
}

func (s *Source) fromAPI(ctx context.Context, req Request) ([]models.Question, error) {
	raw, err := s.fetcher.FetchQuestions(ctx, req.Count, req.QuestionSet)
	if err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(raw))
	for _, r := range raw {
		q, ok := Normalize(r, s.shuffle)
		if !ok {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) < req.Count {
		return nil, fmt.Errorf("%w: got %d of %d", ErrNotEnoughQuestions, len(questions), req.Count)
	}
	return questions[:req.Count], nil
}

// fromStatic walks the bundled set from an offset derived from the round, so
// consecutive rounds of a session see different questions.
func (s *Source) fromStatic(req Request) []models.Question {
	questions := make([]models.Question, 0, req.Count)
	start := req.Round * req.Count
	for i := range req.Count {
		q := s.static[(start+i)%len(s.static)]
		questions = append(questions, shuffleAnswers(q, s.shuffle))
	}
	return questions
}

func (s *Source) store(ctx context.Context, req Request, questions []models.Question) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, CacheKey(req.SessionID, req.Round), questions, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to cache questions")
	}
}

func validBatch(questions []models.Question, count int) bool {
	if len(questions) < count {
		return false
	}
	for _, q := range questions {
		if !valid(q) {
			return false
		}
	}
	return true
}
