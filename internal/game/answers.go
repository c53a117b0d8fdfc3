package game

import (
	"trivia-service/internal/constants"
	"trivia-service/internal/models"
	"trivia-service/internal/scoring"
)

func (s *Session) onSubmitActive(cmd Command) error {
	p, err := s.checkSubmission(cmd)
	if err != nil {
		return err
	}
	if err := s.checkReceipt(cmd); err != nil {
		return err
	}

	s.record(p, cmd)
	s.checkAllAnswered()
	return nil
}

// onSubmitLocked honours a submission that was read before the question
// closed but reached the queue after the lock.
func (s *Session) onSubmitLocked(cmd Command) error {
	p, err := s.checkSubmission(cmd)
	if err != nil {
		return err
	}
	if cmd.ReceivedAt.After(s.cutoff) {
		return ErrQuestionClosed
	}
	if err := s.checkReceipt(cmd); err != nil {
		return err
	}

	s.record(p, cmd)
	s.emitLocked()
	return nil
}

func (s *Session) rejectClosedQuestion(cmd Command) error {
	return ErrQuestionClosed
}

// checkReceipt judges a submission by when it was read off the socket, not
// by when the loop gets to it.
func (s *Session) checkReceipt(cmd Command) error {
	if cmd.ReceivedAt.Before(s.questionStart) {
		return ErrQuestionClosed
	}
	if s.pausedWhen(cmd.ReceivedAt) {
		return ErrGamePaused
	}
	return nil
}

func (s *Session) checkSubmission(cmd Command) (*player, error) {
	p := s.players[cmd.ClientID]
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if cmd.AnswerIndex < 0 || cmd.AnswerIndex >= constants.AnswerOptions {
		return nil, ErrInvalidAnswerIndex
	}
	if prev := s.answers[p.ClientID]; prev != nil {
		// Leaving forfeits the open question.
		if prev.owner != p {
			return nil, ErrQuestionClosed
		}
		s.toPlayer(p, Event{Type: EventAnswerResult, Payload: prev.result})
		return nil, ErrDuplicateAnswer
	}
	return p, nil
}

func (s *Session) record(p *player, cmd Command) {
	q := s.rounds[s.round][s.question]

	elapsed := s.activeElapsed(cmd.ReceivedAt)
	correct := cmd.AnswerIndex == q.CorrectAnswerIndex
	res := scoring.Score(s.settings.Scoring, scoring.Input{
		Elapsed:   elapsed,
		TimeLimit: s.settings.TimeLimit,
		Correct:   correct,
		Streak:    p.Streak,
	})
	counted := correct && !res.Late

	answer := models.Answer{
		PlayerID:       p.ClientID,
		SessionID:      s.id,
		QuestionIndex:  s.questionIndex,
		RoundIndex:     s.round,
		AnswerIndex:    cmd.AnswerIndex,
		IsCorrect:      counted,
		ResponseTimeMs: elapsed.Milliseconds(),
		BasePoints:     res.BasePoints,
		TimeBonus:      res.TimeBonus,
		PenaltyPoints:  res.PenaltyPoints,
		StreakBonus:    res.StreakBonus,
		FinalScore:     res.FinalScore,
		StreakCount:    res.StreakCount,
		AnsweredAt:     cmd.ReceivedAt,
	}

	if counted {
		s.roundCorrect[p.ClientID]++
		p.CorrectAnswers++
	}
	lastInRound := s.question == len(s.rounds[s.round])-1
	if lastInRound && counted && s.roundCorrect[p.ClientID] == len(s.rounds[s.round]) && !s.perfect[p.ClientID] {
		answer.IsPerfectRound = true
		answer.RoundBonus = s.settings.Scoring.RoundBonus
		s.perfect[p.ClientID] = true
	}

	p.Score += answer.FinalScore + answer.RoundBonus
	p.Streak = res.StreakCount

	s.answerSeq++
	entry := &answerEntry{
		answer:  answer,
		elapsed: elapsed,
		seq:     s.answerSeq,
		owner:   p,
		result: AnswerResultPayload{
			QuestionIndex:  s.questionIndex,
			AnswerIndex:    cmd.AnswerIndex,
			IsCorrect:      counted,
			ResponseTimeMs: answer.ResponseTimeMs,
			Result:         res,
			IsPerfectRound: answer.IsPerfectRound,
			RoundBonus:     answer.RoundBonus,
			TotalScore:     p.Score,
		},
	}
	s.answers[p.ClientID] = entry

	s.toPlayer(p, Event{Type: EventAnswerSubmitted, Payload: AnswerSubmittedPayload{
		QuestionIndex: s.questionIndex,
		AnswerIndex:   cmd.AnswerIndex,
	}})
	s.toPlayer(p, Event{Type: EventAnswerResult, Payload: entry.result})
	s.toHost(Event{Type: EventQuestionUpdate, Payload: s.hostQuestionPayload()})

	s.persistAnswer(answer)
}

// emitLocked sends the lock summary: the host sees every player's result,
// each player sees their own.
func (s *Session) emitLocked() {
	q := s.rounds[s.round][s.question]

	distribution := make([]int, constants.AnswerOptions)
	timings := make([]scoring.Timing, 0, len(s.answers))
	for id, e := range s.answers {
		distribution[e.answer.AnswerIndex]++
		if e.answer.IsCorrect {
			timings = append(timings, scoring.Timing{ClientID: id, Elapsed: e.elapsed, Seq: e.seq})
		}
	}
	ranks := scoring.SpeedRanks(timings)

	roster := s.roster()
	results := make([]PlayerResult, 0, len(roster))
	for _, p := range roster {
		r := PlayerResult{
			ClientID:    p.ClientID,
			Nickname:    p.Nickname,
			AnswerIndex: -1,
			TotalScore:  p.Score,
			Streak:      p.Streak,
		}
		if e := s.ownAnswer(p); e != nil {
			r.Answered = true
			r.AnswerIndex = e.answer.AnswerIndex
			r.IsCorrect = e.answer.IsCorrect
			r.FinalScore = e.answer.FinalScore + e.answer.RoundBonus
			r.SpeedRank = ranks[p.ClientID]
		}
		results = append(results, r)
	}

	board := s.scoreboard()
	base := LockedPayload{
		QuestionIndex:      s.questionIndex,
		Round:              s.round,
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		Reason:             s.lockReason,
		Distribution:       distribution,
		Scoreboard:         board,
	}

	host := base
	host.Results = results
	s.toHost(Event{Type: EventQuestionLocked, Payload: host})

	for i, p := range roster {
		own := base
		own.You = &results[i]
		s.toPlayer(p, Event{Type: EventQuestionLocked, Payload: own})
	}
}

// ownAnswer is p's entry for the open question, ignoring one left behind by
// an earlier runtime of the same client.
func (s *Session) ownAnswer(p *player) *answerEntry {
	if e := s.answers[p.ClientID]; e != nil && e.owner == p {
		return e
	}
	return nil
}
