package game

import (
	"context"
	"fmt"
	"time"

	"trivia-service/internal/constants"
	"trivia-service/internal/questions"
)

const (
	ReasonFinished    = "finished"
	ReasonEndedByHost = "ended_by_host"

	questionLoadTimeout = 15 * time.Second
)

func (s *Session) onStartGame(cmd Command) error {
	if s.connectedCount() == 0 {
		return fmt.Errorf("%w: at least one connected player is required", ErrPreconditionFailed)
	}

	s.startedAt = s.now()
	s.logger.Info().Int("players", len(s.players)).Msg("game started")
	s.toAll(Event{Type: EventGameStarted, Payload: GameStartedPayload{
		TotalRounds:       s.settings.TotalRounds,
		QuestionsPerRound: s.settings.QuestionsPerRound,
		TimeLimitSec:      int(s.settings.TimeLimit / time.Second),
		PlayerCount:       len(s.players),
	}})
	s.enterRound(0)
	return nil
}

func (s *Session) enterRound(round int) {
	s.phase = constants.PhaseRoundInProgress
	s.round = round
	s.question = -1
	s.roundCorrect = make(map[string]int)
	s.perfect = make(map[string]bool)

	s.toAll(Event{Type: EventRoundStarted, Payload: RoundStartedPayload{
		Round:       round,
		TotalRounds: s.settings.TotalRounds,
	}})
	s.loadRound(round)
}

func (s *Session) loadRound(round int) {
	if qs := s.rounds[round]; len(qs) > 0 {
		s.openQuestion(0)
		return
	}

	req := questions.Request{
		SessionID:   s.id,
		Round:       round,
		Count:       s.settings.QuestionsPerRound,
		QuestionSet: s.settings.QuestionSet,
	}
	s.loading = true
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, questionLoadTimeout)
		defer cancel()

		batch, err := s.deps.Questions.Load(ctx, req)
		_ = s.post(func() { s.roundLoaded(round, batch, err) })
	}()
}

func (s *Session) roundLoaded(round int, batch questions.Batch, err error) {
	if s.phase != constants.PhaseRoundInProgress || s.round != round {
		return
	}
	s.loading = false
	if err != nil || len(batch.Questions) == 0 {
		s.logger.Error().Err(err).Int("round", round).Msg("failed to load questions")
		s.toHost(errorEvent(fmt.Errorf("%w: questions unavailable for round %d, send next_question to retry", ErrPreconditionFailed, round)))
		return
	}

	s.logger.Debug().Int("round", round).Str("source", string(batch.Kind)).Int("count", len(batch.Questions)).Msg("round questions loaded")
	s.rounds[round] = batch.Questions
	s.openQuestion(0)
}

// onRetryLoad fetches the round's questions again after a failed load.
func (s *Session) onRetryLoad(cmd Command) error {
	if s.loading {
		return fmt.Errorf("%w: questions for round %d are still loading", ErrPreconditionFailed, s.round)
	}
	s.logger.Info().Int("round", s.round).Msg("retrying question load")
	s.loadRound(s.round)
	return nil
}

func (s *Session) openQuestion(i int) {
	if s.questionIndex >= 0 {
		for id, p := range s.players {
			if s.answers[id] == nil {
				p.Streak = 0
			}
		}
	}

	s.question = i
	s.questionIndex++
	s.questionStart = s.now()
	s.deadline = s.questionStart.Add(s.settings.TimeLimit)
	s.cutoff = time.Time{}
	s.lockReason = ""
	s.paused = false
	s.pausedAt = time.Time{}
	s.pauses = nil
	s.answers = make(map[string]*answerEntry)
	s.phase = constants.PhaseQuestionActive

	q := s.questionPayload()
	s.toPlayers(Event{Type: EventQuestionReady, Payload: q})
	s.toHost(Event{Type: EventQuestionUpdate, Payload: s.hostQuestionPayload()})
	s.armTimer(s.settings.TimeLimit)
	s.persistProgress()
}

func (s *Session) armTimer(d time.Duration) {
	s.stopTimer()
	seq := s.timerSeq
	s.timer = time.AfterFunc(d, func() {
		_ = s.post(func() { s.onTimer(seq) })
	})
}

// stopTimer also invalidates an expiry that has already been queued.
func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (s *Session) onTimer(seq int) {
	if seq != s.timerSeq || s.phase != constants.PhaseQuestionActive || s.paused {
		return
	}
	s.lock(constants.LockReasonTimer, s.deadline)
}

// lock closes the current question. Submissions received at or before cutoff
// are still honoured when they are processed afterwards.
func (s *Session) lock(reason string, cutoff time.Time) {
	s.stopTimer()
	s.phase = constants.PhaseQuestionLocked
	s.lockReason = reason
	s.cutoff = cutoff
	if s.paused {
		s.pauses = append(s.pauses, pauseSpan{from: s.pausedAt, to: latest(s.pausedAt, cutoff)})
		s.paused = false
	}

	s.logger.Debug().Int("question_index", s.questionIndex).Str("reason", reason).Msg("question locked")
	s.emitLocked()
}

func (s *Session) checkAllAnswered() {
	if s.phase != constants.PhaseQuestionActive || s.paused {
		return
	}
	connected := 0
	for id, p := range s.players {
		if !p.Connected {
			continue
		}
		connected++
		if s.answers[id] == nil {
			return
		}
	}
	if connected == 0 {
		return
	}
	s.lock(constants.LockReasonAllAnswered, s.deadline)
}

func (s *Session) onLockEarly(cmd Command) error {
	cutoff := s.deadline
	if cmd.ReceivedAt.Before(cutoff) {
		cutoff = cmd.ReceivedAt
	}
	s.lock(constants.LockReasonHost, cutoff)
	return nil
}

func (s *Session) onAdvanceQuestion(cmd Command) error {
	if s.question+1 < len(s.rounds[s.round]) {
		s.openQuestion(s.question + 1)
		return nil
	}
	s.completeRound()
	return nil
}

func (s *Session) completeRound() {
	s.phase = constants.PhaseRoundComplete
	if s.round < len(s.roundCompletion) {
		s.roundCompletion[s.round] = true
	}
	s.persistRoundComplete()

	perfect := make([]string, 0, len(s.perfect))
	for _, p := range s.roster() {
		if s.perfect[p.ClientID] {
			perfect = append(perfect, p.ClientID)
		}
	}

	s.logger.Info().Int("round", s.round).Int("perfect", len(perfect)).Msg("round complete")
	s.toAll(Event{Type: EventRoundComplete, Payload: RoundCompletePayload{
		Round:          s.round,
		TotalRounds:    s.settings.TotalRounds,
		PerfectPlayers: perfect,
		Scoreboard:     s.scoreboard(),
	}})
}

func (s *Session) onAdvanceRound(cmd Command) error {
	if s.round+1 < s.settings.TotalRounds {
		s.enterRound(s.round + 1)
		return nil
	}
	s.complete(ReasonFinished)
	return nil
}

func (s *Session) onPause(cmd Command) error {
	if s.paused {
		return fmt.Errorf("%w: already paused", ErrInvalidPhase)
	}
	floor := s.questionStart
	if n := len(s.pauses); n > 0 {
		floor = s.pauses[n-1].to
	}
	s.paused = true
	s.pausedAt = s.receipt(cmd.ReceivedAt, floor)
	s.stopTimer()

	s.toAll(Event{Type: EventGamePaused, Payload: PausePayload{RemainingMs: s.remaining().Milliseconds()}})
	return nil
}

func (s *Session) onResume(cmd Command) error {
	if !s.paused {
		return fmt.Errorf("%w: not paused", ErrInvalidPhase)
	}
	resumedAt := s.receipt(cmd.ReceivedAt, s.pausedAt)
	s.pauses = append(s.pauses, pauseSpan{from: s.pausedAt, to: resumedAt})
	s.deadline = s.deadline.Add(resumedAt.Sub(s.pausedAt))
	s.paused = false

	remaining := s.remaining()
	s.armTimer(remaining)
	s.toAll(Event{Type: EventGameResumed, Payload: PausePayload{RemainingMs: remaining.Milliseconds()}})
	s.checkAllAnswered()
	return nil
}

func (s *Session) remaining() time.Duration {
	if s.phase != constants.PhaseQuestionActive {
		return 0
	}
	ref := s.now()
	if s.paused {
		ref = s.pausedAt
	}
	return max(0, s.deadline.Sub(ref))
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// receipt clamps a command's receipt time to [floor, now].
func (s *Session) receipt(at, floor time.Time) time.Time {
	now := s.now()
	if at.IsZero() || at.After(now) {
		at = now
	}
	if at.Before(floor) {
		at = floor
	}
	return at
}

// pausedWhen reports whether a receipt falls inside a pause of the open
// question. The instant a pause starts still counts as open.
func (s *Session) pausedWhen(at time.Time) bool {
	if s.paused && at.After(s.pausedAt) {
		return true
	}
	for _, p := range s.pauses {
		if at.After(p.from) && at.Before(p.to) {
			return true
		}
	}
	return false
}

// activeElapsed is the answer time of a receipt with paused time taken out.
func (s *Session) activeElapsed(at time.Time) time.Duration {
	elapsed := at.Sub(s.questionStart)
	for _, p := range s.pauses {
		if !at.After(p.from) {
			break
		}
		to := p.to
		if at.Before(to) {
			to = at
		}
		elapsed -= to.Sub(p.from)
	}
	return max(0, elapsed)
}

func (s *Session) onEndGame(cmd Command) error {
	s.complete(ReasonEndedByHost)
	return nil
}

func (s *Session) complete(reason string) {
	if s.phase == constants.PhaseGameComplete {
		return
	}
	s.stopTimer()
	s.phase = constants.PhaseGameComplete

	board := s.scoreboard()
	s.logger.Info().Str("reason", reason).Int("questions", s.questionIndex+1).Msg("game complete")
	s.toAll(Event{Type: EventGameComplete, Payload: GameCompletePayload{Reason: reason, Scoreboard: board}})

	summary := s.summary(reason)
	go s.finish(summary)
}

// finish hands the standings to the completion hook and then releases the
// session. It runs off the loop.
func (s *Session) finish(summary Summary) {
	if s.deps.OnComplete != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.PersistTimeout*time.Duration(s.settings.PersistRetries+1))
		if err := s.deps.OnComplete(ctx, summary); err != nil {
			s.logger.Error().Err(err).Msg("failed to finalize game results")
		}
		cancel()
	}
	if s.deps.OnFinished != nil {
		s.deps.OnFinished(s.id)
	}
}
