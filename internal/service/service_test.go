package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"trivia-service/config"
	"trivia-service/internal/constants"
	"trivia-service/internal/game"
	"trivia-service/internal/models"
	"trivia-service/internal/questions"
	"trivia-service/internal/registry"
	"trivia-service/internal/scoring"
)

type nopEmitter struct{}

func (nopEmitter) ToHost(string, game.Event)           {}
func (nopEmitter) ToPlayer(string, string, game.Event) {}
func (nopEmitter) CloseRoom(string)                    {}

func gameConfig() config.GameConfig {
	return config.GameConfig{
		SessionTTL:        time.Hour,
		DefaultRounds:     3,
		QuestionsPerRound: 5,
		TimeLimit:         20 * time.Second,
		TeardownGrace:     time.Minute,
		PersistRetries:    1,
	}
}

func newTestService(t *testing.T) (*SessionService, *SessionRegistry) {
	t.Helper()
	reg := registry.New[*game.Session](nil)
	deps := game.Deps{
		Emitter:   nopEmitter{},
		Questions: questions.NewSource(nil, nil, 0),
	}
	svc := NewSessionService(reg, deps, nil, gameConfig(), scoring.DefaultConfig())
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return svc, reg
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	meta, sess, err := svc.Create(context.Background(), CreateSessionInput{HostID: "host-1", QuestionsPerRound: 2})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if meta.TotalRounds != 3 || meta.QuestionsPerRound != 2 || meta.TimeLimitSec != 20 {
		t.Errorf("unexpected session settings: %+v", meta)
	}
	if len(meta.RoomCode) != 6 {
		t.Errorf("room code %q should have 6 digits", meta.RoomCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := sess.Snapshot(ctx)
	if err != nil {
		t.Fatalf("session loop should be running: %v", err)
	}
	if state.Phase != constants.PhaseWaitingForPlayers {
		t.Errorf("phase = %s, want %s", state.Phase, constants.PhaseWaitingForPlayers)
	}

	_, found, err := svc.LookupByCode(meta.RoomCode)
	if err != nil || found != sess {
		t.Fatalf("LookupByCode = %v, %v", found, err)
	}
}

func TestFinishedDeactivatesThenDestroys(t *testing.T) {
	svc, reg := newTestService(t)

	var (
		mu      sync.Mutex
		grace   time.Duration
		destroy func()
	)
	svc.afterFunc = func(d time.Duration, f func()) *time.Timer {
		mu.Lock()
		defer mu.Unlock()
		grace, destroy = d, f
		return nil
	}

	meta, sess, err := svc.Create(context.Background(), CreateSessionInput{HostID: "host-1"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	svc.finished(meta.ID)

	if _, _, err := svc.Lookup(meta.ID); !errors.Is(err, registry.ErrSessionNotFound) {
		t.Fatalf("finished session should refuse lookups, got %v", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("session should stay registered during grace, count %d", reg.Count())
	}

	mu.Lock()
	if grace != time.Minute || destroy == nil {
		t.Fatalf("teardown not scheduled: grace %v", grace)
	}
	destroy()
	mu.Unlock()

	if reg.Count() != 0 {
		t.Fatalf("session should be destroyed after grace, count %d", reg.Count())
	}
	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session loop did not stop")
	}
}

type forgettingSource struct {
	*questions.Source
	forgot chan string
}

func (f forgettingSource) Forget(_ context.Context, sessionID string, rounds int) error {
	f.forgot <- fmt.Sprintf("%s/%d", sessionID, rounds)
	return nil
}

func TestTeardownForgetsCachedQuestions(t *testing.T) {
	src := forgettingSource{Source: questions.NewSource(nil, nil, 0), forgot: make(chan string, 1)}
	reg := registry.New[*game.Session](nil)
	svc := NewSessionService(reg, game.Deps{Emitter: nopEmitter{}, Questions: src}, nil, gameConfig(), scoring.DefaultConfig())
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	var destroy func()
	svc.afterFunc = func(_ time.Duration, f func()) *time.Timer {
		destroy = f
		return nil
	}

	meta, _, err := svc.Create(context.Background(), CreateSessionInput{HostID: "host-1", TotalRounds: 2})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	svc.finished(meta.ID)
	destroy()

	select {
	case got := <-src.forgot:
		if got != meta.ID+"/2" {
			t.Fatalf("forgot %q, want %s/2", got, meta.ID)
		}
	default:
		t.Fatal("cached questions were not dropped")
	}
	if reg.Count() != 0 {
		t.Fatalf("session should be destroyed, count %d", reg.Count())
	}
}

type fakeProfiles struct {
	recorded map[string]int
	fail     bool
}

func (f *fakeProfiles) RecordGame(_ context.Context, profileID string, score int, _ time.Time) error {
	if f.fail {
		return errors.New("db down")
	}
	f.recorded[profileID] += score
	return nil
}

type fakeLeaderboard struct {
	results []models.GameResult
}

func (f *fakeLeaderboard) Record(_ context.Context, _ time.Time, results []models.GameResult) error {
	f.results = append(f.results, results...)
	return nil
}

type fakePublisher struct {
	queue string
	value any
}

func (f *fakePublisher) PublishJSON(_ context.Context, queueName string, value any) error {
	f.queue, f.value = queueName, value
	return nil
}

type fakeAnswers []models.Answer

func (f fakeAnswers) ListBySession(_ context.Context, sessionID string) ([]models.Answer, error) {
	if f == nil {
		return nil, errors.New("db down")
	}
	return f, nil
}

func testSummary() game.Summary {
	return game.Summary{
		SessionID:  "s1",
		Reason:     game.ReasonFinished,
		FinishedAt: time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC),
		Results: []models.GameResult{
			{ClientID: "c1", PlayerProfileID: "p1", Score: 300, Rank: 1},
			{ClientID: "c2", Score: 100, Rank: 2},
		},
	}
}

func TestGameCompleted(t *testing.T) {
	profiles := &fakeProfiles{recorded: make(map[string]int)}
	board := &fakeLeaderboard{}
	pub := &fakePublisher{}
	answers := fakeAnswers{
		{PlayerID: "c1", QuestionIndex: 0, IsCorrect: true, ResponseTimeMs: 1000},
		{PlayerID: "c2", QuestionIndex: 0, ResponseTimeMs: 3000},
	}
	svc := NewCompletionService(profiles, board, answers, pub)

	if err := svc.GameCompleted(context.Background(), testSummary()); err != nil {
		t.Fatalf("GameCompleted returned error: %v", err)
	}

	if len(profiles.recorded) != 1 || profiles.recorded["p1"] != 300 {
		t.Errorf("only linked profiles should be recorded, got %v", profiles.recorded)
	}
	if len(board.results) != 2 {
		t.Errorf("leaderboard should receive all results, got %d", len(board.results))
	}
	if pub.queue != constants.QueueGameCompleted {
		t.Errorf("published to %q", pub.queue)
	}
	event, ok := pub.value.(GameCompletedEvent)
	if !ok || event.SessionID != "s1" {
		t.Fatalf("unexpected published value %#v", pub.value)
	}
	if len(event.Questions) != 1 || event.Questions[0].Answered != 2 || event.Questions[0].AvgResponseTimeMs != 2000 {
		t.Errorf("unexpected answer breakdown %+v", event.Questions)
	}
}

func TestGameCompletedContinuesAfterFailure(t *testing.T) {
	profiles := &fakeProfiles{recorded: make(map[string]int), fail: true}
	pub := &fakePublisher{}
	svc := NewCompletionService(profiles, nil, fakeAnswers(nil), pub)

	if err := svc.GameCompleted(context.Background(), testSummary()); err == nil {
		t.Fatal("expected profile failure to be reported")
	}
	if pub.queue == "" {
		t.Error("event should still be published")
	}
}

func TestBreakdown(t *testing.T) {
	stats := Breakdown([]models.Answer{
		{PlayerID: "c1", QuestionIndex: 2, RoundIndex: 1, IsCorrect: true, ResponseTimeMs: 500},
		{PlayerID: "c1", QuestionIndex: 0, IsCorrect: true, ResponseTimeMs: 1000},
		{PlayerID: "c2", QuestionIndex: 0, ResponseTimeMs: 2000},
		{PlayerID: "c2", QuestionIndex: 2, RoundIndex: 1, IsCorrect: true, ResponseTimeMs: 1500},
	})

	want := []QuestionStats{
		{QuestionIndex: 0, Round: 0, Answered: 2, Correct: 1, AvgResponseTimeMs: 1500},
		{QuestionIndex: 2, Round: 1, Answered: 2, Correct: 2, AvgResponseTimeMs: 1000},
	}
	if len(stats) != len(want) {
		t.Fatalf("expected %d questions, got %+v", len(want), stats)
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("question %d: got %+v, want %+v", i, stats[i], want[i])
		}
	}
	if got := Breakdown(nil); len(got) != 0 {
		t.Errorf("no answers should give no stats, got %+v", got)
	}
}
