package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/models"
)

type fakeRuntime struct {
	closed int
}

func (f *fakeRuntime) Close() { f.closed++ }

type fakeStore struct {
	mu          sync.Mutex
	created     []string
	deactivated []string
	stored      map[string]models.Session
	failCreate  bool
}

func (s *fakeStore) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("db down")
	}
	s.created = append(s.created, session.ID)
	return nil
}

func (s *fakeStore) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.stored[sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &session, nil
}

func (s *fakeStore) DeactivateSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivated = append(s.deactivated, sessionID)
	return nil
}

func build(models.Session) (*fakeRuntime, error) { return &fakeRuntime{}, nil }

func testParams() CreateParams {
	return CreateParams{HostID: "host-1", TotalRounds: 2, QuestionsPerRound: 3, TTL: time.Hour}
}

func TestCreateAndLookup(t *testing.T) {
	store := &fakeStore{}
	reg := New[*fakeRuntime](store)

	session, rt, err := reg.Create(context.Background(), testParams(), build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(session.RoomCode) != 6 {
		t.Fatalf("expected 6 digit room code, got %q", session.RoomCode)
	}
	if !session.IsActive {
		t.Fatal("new session should be active")
	}
	if len(session.RoundCompletion) != 2 {
		t.Fatalf("expected 2 round flags, got %d", len(session.RoundCompletion))
	}
	if len(store.created) != 1 || store.created[0] != session.ID {
		t.Fatalf("session was not persisted: %v", store.created)
	}

	got, gotRT, err := reg.Lookup(session.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != session.ID || gotRT != rt {
		t.Fatal("lookup returned a different session")
	}

	byCode, _, err := reg.LookupByCode(session.RoomCode)
	if err != nil || byCode.ID != session.ID {
		t.Fatalf("lookup by code failed: %v", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	reg := New[*fakeRuntime](nil)
	if _, _, err := reg.Lookup("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRoomCodesUniqueAmongActive(t *testing.T) {
	reg := New[*fakeRuntime](nil)
	codes := []string{"111111", "111111", "222222"}
	reg.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first, _, err := reg.Create(context.Background(), testParams(), build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, _, err := reg.Create(context.Background(), testParams(), build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.RoomCode == second.RoomCode {
		t.Fatalf("room code reused while active: %s", first.RoomCode)
	}
}

func TestCodeReusableAfterDeactivate(t *testing.T) {
	reg := New[*fakeRuntime](nil)
	reg.newCode = func() (string, error) { return "333333", nil }

	first, _, err := reg.Create(context.Background(), testParams(), build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := reg.Create(context.Background(), testParams(), build); !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("expected ErrCodeExhausted, got %v", err)
	}

	reg.Deactivate(context.Background(), first.ID)
	if _, _, err := reg.Lookup(first.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("inactive session should not resolve, got %v", err)
	}
	if _, _, err := reg.Create(context.Background(), testParams(), build); err != nil {
		t.Fatalf("code should be free after deactivation: %v", err)
	}
}

func TestCreateFailureReleasesCode(t *testing.T) {
	store := &fakeStore{failCreate: true}
	reg := New[*fakeRuntime](store)
	reg.newCode = func() (string, error) { return "444444", nil }

	if _, _, err := reg.Create(context.Background(), testParams(), build); err == nil {
		t.Fatal("expected persistence error")
	}
	store.failCreate = false
	if _, _, err := reg.Create(context.Background(), testParams(), build); err != nil {
		t.Fatalf("code should have been released: %v", err)
	}
}

func TestDestroyClosesRuntime(t *testing.T) {
	store := &fakeStore{}
	reg := New[*fakeRuntime](store)
	session, rt, err := reg.Create(context.Background(), testParams(), build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	reg.Destroy(context.Background(), session.ID)
	reg.Destroy(context.Background(), session.ID)

	if rt.closed != 1 {
		t.Fatalf("expected runtime closed once, got %d", rt.closed)
	}
	if reg.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Count())
	}
	if len(store.deactivated) != 1 {
		t.Fatalf("expected session deactivated in store, got %v", store.deactivated)
	}
}

func TestExpireStale(t *testing.T) {
	reg := New[*fakeRuntime](nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	short := testParams()
	short.TTL = time.Minute
	expiring, rt, err := reg.Create(context.Background(), short, build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	kept, _, err := reg.Create(context.Background(), testParams(), build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, _, err := reg.Lookup(expiring.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session should not resolve, got %v", err)
	}

	expired := reg.ExpireStale(context.Background())
	if len(expired) != 1 || expired[0] != expiring.ID {
		t.Fatalf("unexpected expired set: %v", expired)
	}
	if rt.closed != 1 {
		t.Fatal("expired runtime should be closed")
	}
	if _, _, err := reg.Lookup(kept.ID); err != nil {
		t.Fatalf("unexpired session should remain: %v", err)
	}
}

func TestDestroyAll(t *testing.T) {
	reg := New[*fakeRuntime](nil)
	var runtimes []*fakeRuntime
	for range 3 {
		_, rt, err := reg.Create(context.Background(), testParams(), build)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		runtimes = append(runtimes, rt)
	}

	reg.DestroyAll(context.Background())

	if reg.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Count())
	}
	for i, rt := range runtimes {
		if rt.closed != 1 {
			t.Errorf("runtime %d closed %d times", i, rt.closed)
		}
	}
}

func TestRecordFallsBackToStore(t *testing.T) {
	store := &fakeStore{stored: map[string]models.Session{
		"old": {ID: "old", RoomCode: "654321", IsActive: false},
	}}
	reg := New[*fakeRuntime](store)
	ctx := context.Background()

	live, _, err := reg.Create(ctx, testParams(), build)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	got, err := reg.Record(ctx, live.ID)
	if err != nil || got.ID != live.ID || !got.IsActive {
		t.Fatalf("expected live record, got %+v, %v", got, err)
	}

	got, err = reg.Record(ctx, "old")
	if err != nil || got.RoomCode != "654321" || got.IsActive {
		t.Fatalf("expected stored record, got %+v, %v", got, err)
	}

	if _, err := reg.Record(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
