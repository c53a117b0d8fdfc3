// Package registry tracks the live sessions of this process: one runtime per
// active session id, and room codes unique among active sessions.
package registry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trivia-service/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCodeExhausted   = errors.New("failed to generate unique room code")
)

const maxCodeAttempts = 10

// Runtime is whatever the registry keeps alive for a session. Close is called
// exactly once when the session is destroyed or expires.
type Runtime interface {
	Close()
}

type Store interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeactivateSession(ctx context.Context, sessionID string) error
}

type CreateParams struct {
	HostID            string
	TotalRounds       int
	QuestionsPerRound int
	QuestionSet       string
	TimeLimitSec      int
	TTL               time.Duration
}

type entry[R Runtime] struct {
	session models.Session
	runtime R
}

type Registry[R Runtime] struct {
	mu      sync.RWMutex
	byID    map[string]*entry[R]
	byCode  map[string]string
	store   Store
	now     func() time.Time
	newCode func() (string, error)
}

func New[R Runtime](store Store) *Registry[R] {
	return &Registry[R]{
		byID:    make(map[string]*entry[R]),
		byCode:  make(map[string]string),
		store:   store,
		now:     time.Now,
		newCode: randomRoomCode,
	}
}

// Create persists a new session and builds its runtime. The runtime is only
// registered once both succeed.
func (r *Registry[R]) Create(ctx context.Context, params CreateParams, build func(models.Session) (R, error)) (models.Session, R, error) {
	var zero R

	code, err := r.reserveCode()
	if err != nil {
		return models.Session{}, zero, err
	}

	now := r.now()
	session := models.Session{
		ID:                uuid.New().String(),
		RoomCode:          code,
		HostID:            params.HostID,
		IsActive:          true,
		TotalRounds:       params.TotalRounds,
		QuestionsPerRound: params.QuestionsPerRound,
		QuestionSet:       params.QuestionSet,
		TimeLimitSec:      params.TimeLimitSec,
		RoundCompletion:   make([]bool, params.TotalRounds),
		CreatedAt:         now,
		ExpiresAt:         now.Add(params.TTL),
	}

	if r.store != nil {
		if err := r.store.CreateSession(ctx, &session); err != nil {
			r.releaseCode(code)
			return models.Session{}, zero, fmt.Errorf("failed to persist session: %w", err)
		}
	}

	runtime, err := build(session)
	if err != nil {
		r.releaseCode(code)
		return models.Session{}, zero, fmt.Errorf("failed to build session runtime: %w", err)
	}

	r.mu.Lock()
	r.byID[session.ID] = &entry[R]{session: session, runtime: runtime}
	r.byCode[code] = session.ID
	r.mu.Unlock()

	log.Info().Str("session_id", session.ID).Str("room_code", code).Str("host_id", params.HostID).Msg("session created")
	return session, runtime, nil
}

func (r *Registry[R]) reserveCode() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range maxCodeAttempts {
		code, err := r.newCode()
		if err != nil {
			return "", err
		}
		if _, taken := r.byCode[code]; !taken {
			// placeholder until the session id is known
			r.byCode[code] = ""
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCodeExhausted, maxCodeAttempts)
}

func (r *Registry[R]) releaseCode(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byCode[code] == "" {
		delete(r.byCode, code)
	}
}

// Lookup returns the runtime of an active, unexpired session.
func (r *Registry[R]) Lookup(sessionID string) (models.Session, R, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero R
	e, ok := r.byID[sessionID]
	if !ok || !e.session.IsActive || e.session.Expired(r.now()) {
		return models.Session{}, zero, ErrSessionNotFound
	}
	return e.session, e.runtime, nil
}

// Record returns a session's metadata whether or not it is still live. The
// store answers for sessions this process has already destroyed.
func (r *Registry[R]) Record(ctx context.Context, sessionID string) (models.Session, error) {
	r.mu.RLock()
	e, ok := r.byID[sessionID]
	var session models.Session
	if ok {
		session = e.session
	}
	r.mu.RUnlock()

	if ok {
		return session, nil
	}
	if r.store == nil {
		return models.Session{}, ErrSessionNotFound
	}
	stored, err := r.store.GetSession(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return *stored, nil
}

func (r *Registry[R]) LookupByCode(code string) (models.Session, R, error) {
	r.mu.RLock()
	id, ok := r.byCode[code]
	r.mu.RUnlock()

	if !ok || id == "" {
		var zero R
		return models.Session{}, zero, ErrSessionNotFound
	}
	return r.Lookup(id)
}

// Deactivate marks a session inactive so new connections are refused while
// the runtime finishes its teardown.
func (r *Registry[R]) Deactivate(ctx context.Context, sessionID string) {
	r.mu.Lock()
	e, ok := r.byID[sessionID]
	if ok {
		e.session.IsActive = false
		delete(r.byCode, e.session.RoomCode)
	}
	r.mu.Unlock()

	if !ok || r.store == nil {
		return
	}
	if err := r.store.DeactivateSession(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to deactivate session")
	}
}

// Destroy removes the session and closes its runtime.
func (r *Registry[R]) Destroy(ctx context.Context, sessionID string) {
	r.mu.Lock()
	e, ok := r.byID[sessionID]
	if ok {
		delete(r.byID, sessionID)
		if r.byCode[e.session.RoomCode] == sessionID {
			delete(r.byCode, e.session.RoomCode)
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	if e.session.IsActive && r.store != nil {
		if err := r.store.DeactivateSession(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to deactivate session")
		}
	}
	e.runtime.Close()
	log.Info().Str("session_id", sessionID).Msg("session destroyed")
}

// ExpireStale destroys every session whose expiry has passed and returns
// their ids.
func (r *Registry[R]) ExpireStale(ctx context.Context) []string {
	now := r.now()

	r.mu.RLock()
	var expired []string
	for id, e := range r.byID {
		if e.session.Expired(now) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		log.Info().Str("session_id", id).Msg("session expired")
		r.Destroy(ctx, id)
	}
	return expired
}

// Run expires stale sessions every interval until ctx is cancelled.
func (r *Registry[R]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ExpireStale(ctx)
		}
	}
}

func (r *Registry[R]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func randomRoomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// DestroyAll tears down every registered session.
func (r *Registry[R]) DestroyAll(ctx context.Context) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Destroy(ctx, id)
	}
}
