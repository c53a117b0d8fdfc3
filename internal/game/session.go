// Package game runs one trivia session as a single-goroutine state machine.
//
// Every input to a session, whether a client command, a timer expiry or the
// result of background I/O, is queued and applied in arrival order by the
// session's own goroutine. No session state is touched from anywhere else.
package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trivia-service/internal/constants"
	"trivia-service/internal/models"
)

type handler func(s *Session, cmd Command) error

var (
	anyPhase    map[CommandKind]handler
	transitions map[constants.Phase]map[CommandKind]handler
)

func init() {
	anyPhase = map[CommandKind]handler{
		CmdHostConnect:    (*Session).onHostConnect,
		CmdHostDisconnect: (*Session).onHostDisconnect,
		CmdPlayerConnect:  (*Session).onPlayerConnect,
		CmdDisconnect:     (*Session).onPlayerDisconnect,
		CmdReconnect:      (*Session).onReconnect,
		CmdGetGameState:   (*Session).onGetGameState,
		CmdLeaveGame:      (*Session).onLeave,
	}

	closed := (*Session).rejectClosedQuestion
	transitions = map[constants.Phase]map[CommandKind]handler{
		constants.PhaseWaitingForPlayers: {
			CmdJoinGame:     (*Session).onJoin,
			CmdStartGame:    (*Session).onStartGame,
			CmdSubmitAnswer: closed,
			CmdEndGame:      (*Session).onEndGame,
		},
		constants.PhaseRoundInProgress: {
			CmdJoinGame:     (*Session).onJoin,
			CmdSubmitAnswer: closed,
			CmdNextQuestion: (*Session).onRetryLoad,
			CmdEndGame:      (*Session).onEndGame,
		},
		constants.PhaseQuestionActive: {
			CmdJoinGame:     (*Session).onJoin,
			CmdSubmitAnswer: (*Session).onSubmitActive,
			CmdNextQuestion: (*Session).onLockEarly,
			CmdPauseGame:    (*Session).onPause,
			CmdResumeGame:   (*Session).onResume,
			CmdEndGame:      (*Session).onEndGame,
		},
		constants.PhaseQuestionLocked: {
			CmdJoinGame:     (*Session).onJoin,
			CmdSubmitAnswer: (*Session).onSubmitLocked,
			CmdNextQuestion: (*Session).onAdvanceQuestion,
			CmdEndGame:      (*Session).onEndGame,
		},
		constants.PhaseRoundComplete: {
			CmdJoinGame:     (*Session).onJoin,
			CmdSubmitAnswer: closed,
			CmdNextQuestion: (*Session).onAdvanceRound,
			CmdEndGame:      (*Session).onEndGame,
		},
		constants.PhaseGameComplete: {
			CmdSubmitAnswer: closed,
		},
	}
}

type player struct {
	ClientID       string
	Nickname       string
	Email          string
	ProfileID      string
	Connected      bool
	Score          int
	Streak         int
	CorrectAnswers int
	seq            int
}

// answerEntry is write-once per client and question. owner is the runtime
// that submitted it; a player who leaves and rejoins gets a new one.
type answerEntry struct {
	answer  models.Answer
	result  AnswerResultPayload
	elapsed time.Duration
	seq     int64
	owner   *player
}

// pauseSpan is a completed pause of the open question, in receipt time.
type pauseSpan struct {
	from, to time.Time
}

type Session struct {
	id       string
	roomCode string
	hostID   string
	settings Settings
	deps     Deps
	now      func() time.Time
	logger   zerolog.Logger

	inbox     chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the run goroutine.
	phase           constants.Phase
	hostConnected   bool
	players         map[string]*player
	joinSeq         int
	round           int
	question        int
	questionIndex   int
	rounds          map[int][]models.Question
	roundCompletion []bool
	loading         bool
	questionStart   time.Time
	deadline        time.Time
	cutoff          time.Time
	lockReason      string
	paused          bool
	pausedAt        time.Time
	pauses          []pauseSpan
	timer           *time.Timer
	timerSeq        int
	answers         map[string]*answerEntry
	answerSeq       int64
	roundCorrect    map[string]int
	perfect         map[string]bool
	degraded        bool
	startedAt       time.Time
}

// NewSession builds a session in WAITING_FOR_PLAYERS. Run must be started
// before commands are enqueued.
func NewSession(meta models.Session, settings Settings, deps Deps) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	settings = settings.withDefaults()

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Session{
		id:              meta.ID,
		roomCode:        meta.RoomCode,
		hostID:          meta.HostID,
		settings:        settings,
		deps:            deps,
		now:             now,
		logger:          log.With().Str("session_id", meta.ID).Str("room_code", meta.RoomCode).Logger(),
		inbox:           make(chan func(), settings.QueueSize),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		phase:           constants.PhaseWaitingForPlayers,
		players:         make(map[string]*player),
		question:        -1,
		questionIndex:   -1,
		rounds:          make(map[int][]models.Question),
		roundCompletion: make([]bool, settings.TotalRounds),
		answers:         make(map[string]*answerEntry),
		roundCorrect:    make(map[string]int),
		perfect:         make(map[string]bool),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) RoomCode() string { return s.roomCode }

// Run applies queued items until Close is called.
func (s *Session) Run() {
	defer close(s.done)

	s.logger.Info().Msg("session started")
	for {
		select {
		case <-s.ctx.Done():
			s.stopTimer()
			s.deps.Emitter.CloseRoom(s.id)
			s.logger.Info().Msg("session stopped")
			return
		case fn := <-s.inbox:
			fn()
		}
	}
}

// Close stops the session loop. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Enqueue queues a command; it blocks while the queue is full.
func (s *Session) Enqueue(cmd Command) error {
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = s.now()
	}
	return s.post(func() { s.dispatch(cmd) })
}

func (s *Session) post(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	case <-s.ctx.Done():
		return ErrSessionClosed
	default:
	}

	select {
	case s.inbox <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Snapshot returns the host view of the current state.
func (s *Session) Snapshot(ctx context.Context) (GameStatePayload, error) {
	reply := make(chan GameStatePayload, 1)
	if err := s.post(func() { reply <- s.hostState() }); err != nil {
		return GameStatePayload{}, err
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return GameStatePayload{}, ctx.Err()
	case <-s.done:
		return GameStatePayload{}, ErrSessionClosed
	}
}

func (s *Session) dispatch(cmd Command) {
	if hostCommands[cmd.Kind] && cmd.Role != constants.RoleHost {
		s.reject(cmd, ErrNotHost)
		return
	}
	if playerCommands[cmd.Kind] && cmd.Role != constants.RolePlayer {
		s.reject(cmd, ErrNotPlayer)
		return
	}

	h, ok := anyPhase[cmd.Kind]
	if !ok {
		h, ok = transitions[s.phase][cmd.Kind]
	}
	if !ok {
		if hostCommands[cmd.Kind] || playerCommands[cmd.Kind] {
			s.reject(cmd, fmt.Errorf("%w: %s during %s", ErrInvalidPhase, cmd.Kind, s.phase))
		} else {
			s.reject(cmd, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Kind))
		}
		return
	}

	if err := h(s, cmd); err != nil {
		s.reject(cmd, err)
	}
}

func (s *Session) reject(cmd Command, err error) {
	s.logger.Debug().Err(err).Str("client_id", cmd.ClientID).Str("command", string(cmd.Kind)).Msg("command rejected")
	s.sendTo(cmd, errorEvent(err))
}

func (s *Session) sendTo(cmd Command, ev Event) {
	if cmd.Role == constants.RoleHost {
		s.toHost(ev)
		return
	}
	s.deps.Emitter.ToPlayer(s.id, cmd.ClientID, ev)
}

func (s *Session) toHost(ev Event) {
	s.deps.Emitter.ToHost(s.id, ev)
}

func (s *Session) toPlayer(p *player, ev Event) {
	if !p.Connected {
		return
	}
	s.deps.Emitter.ToPlayer(s.id, p.ClientID, ev)
}

func (s *Session) toPlayers(ev Event) {
	for _, p := range s.roster() {
		s.toPlayer(p, ev)
	}
}

func (s *Session) toAll(ev Event) {
	s.toHost(ev)
	s.toPlayers(ev)
}

// roster lists players in join order.
func (s *Session) roster() []*player {
	out := make([]*player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *Session) connectedCount() int {
	n := 0
	for _, p := range s.players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (s *Session) onGetGameState(cmd Command) error {
	if cmd.Role == constants.RoleHost {
		s.toHost(Event{Type: EventGameState, Payload: s.hostState()})
		return nil
	}
	p := s.players[cmd.ClientID]
	if p == nil {
		return ErrUnknownPlayer
	}
	s.toPlayer(p, Event{Type: EventGameState, Payload: s.playerState(p)})
	return nil
}
