package game

import (
	"sort"

	"trivia-service/internal/constants"
	"trivia-service/internal/models"
)

func (s *Session) onReconnect(cmd Command) error {
	p := s.players[cmd.ClientID]
	if p == nil {
		return ErrUnknownPlayer
	}
	s.restore(p)
	return nil
}

// restore reattaches a known player and sends them everything they need to
// resume: phase, the open question, time left, scores and their own answer.
func (s *Session) restore(p *player) {
	wasConnected := p.Connected
	p.Connected = true

	s.toPlayer(p, Event{Type: EventPlayerConnected, Payload: PlayerConnectedPayload{
		SessionID: s.id,
		ClientID:  p.ClientID,
		Phase:     s.phase,
		Nickname:  p.Nickname,
	}})
	s.toPlayer(p, Event{Type: EventGameState, Payload: s.playerState(p)})

	if !wasConnected {
		s.logger.Info().Str("client_id", p.ClientID).Msg("player reconnected")
		s.toHost(Event{Type: EventPlayerStatus, Payload: s.rosterPayload(p)})
	}
}

func (s *Session) hasQuestion() bool {
	return s.phase == constants.PhaseQuestionActive || s.phase == constants.PhaseQuestionLocked
}

func (s *Session) currentQuestion() (models.Question, bool) {
	qs := s.rounds[s.round]
	if s.question < 0 || s.question >= len(qs) {
		return models.Question{}, false
	}
	return qs[s.question], true
}

func (s *Session) questionPayload() QuestionPayload {
	q, _ := s.currentQuestion()
	answers := make([]string, len(q.Answers))
	copy(answers, q.Answers)

	return QuestionPayload{
		QuestionIndex:   s.questionIndex,
		Round:           s.round,
		QuestionInRound: s.question,
		Text:            q.Text,
		Answers:         answers,
		Category:        q.Category,
		Difficulty:      q.Difficulty,
		TimeLimitMs:     s.settings.TimeLimit.Milliseconds(),
		StartedAt:       s.questionStart,
	}
}

func (s *Session) hostQuestionPayload() HostQuestionPayload {
	q, _ := s.currentQuestion()
	return HostQuestionPayload{
		QuestionPayload:    s.questionPayload(),
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		AnsweredCount:      len(s.answers),
		ConnectedCount:     s.connectedCount(),
		Paused:             s.paused,
		Players:            s.playerViews(),
	}
}

func (s *Session) baseState() GameStatePayload {
	st := GameStatePayload{
		SessionID:     s.id,
		RoomCode:      s.roomCode,
		Phase:         s.phase,
		Round:         s.round,
		TotalRounds:   s.settings.TotalRounds,
		QuestionIndex: s.questionIndex,
		Paused:        s.paused,
		RemainingMs:   s.remaining().Milliseconds(),
		Scoreboard:    s.scoreboard(),
	}
	if s.hasQuestion() {
		if _, ok := s.currentQuestion(); ok {
			q := s.questionPayload()
			st.Question = &q
		}
	}
	return st
}

func (s *Session) hostState() GameStatePayload {
	st := s.baseState()
	if st.Question != nil {
		q, _ := s.currentQuestion()
		idx := q.CorrectAnswerIndex
		st.CorrectAnswerIndex = &idx
	}
	st.Players = s.playerViews()
	st.Degraded = s.degraded
	return st
}

func (s *Session) playerState(p *player) GameStatePayload {
	st := s.baseState()
	if st.Question != nil && s.phase == constants.PhaseQuestionLocked {
		q, _ := s.currentQuestion()
		idx := q.CorrectAnswerIndex
		st.CorrectAnswerIndex = &idx
	}
	view := s.playerView(p)
	st.You = &view
	if e := s.ownAnswer(p); e != nil && st.Question != nil {
		result := e.result
		st.YourAnswer = &result
	}
	return st
}

func (s *Session) playerView(p *player) PlayerView {
	v := PlayerView{
		ClientID:        p.ClientID,
		Nickname:        p.Nickname,
		Score:           p.Score,
		Streak:          p.Streak,
		Connected:       p.Connected,
		PlayerProfileID: p.ProfileID,
	}
	if s.hasQuestion() {
		v.Answered = s.answers[p.ClientID] != nil
	}
	return v
}

func (s *Session) playerViews() []PlayerView {
	roster := s.roster()
	views := make([]PlayerView, 0, len(roster))
	for _, p := range roster {
		views = append(views, s.playerView(p))
	}
	return views
}

// scoreboard orders players by score, then by join order. Equal scores share
// a rank.
func (s *Session) scoreboard() []ScoreboardEntry {
	roster := s.roster()
	sort.SliceStable(roster, func(i, j int) bool { return roster[i].Score > roster[j].Score })

	board := make([]ScoreboardEntry, 0, len(roster))
	for i, p := range roster {
		rank := i + 1
		if i > 0 && p.Score == board[i-1].Score {
			rank = board[i-1].Rank
		}
		board = append(board, ScoreboardEntry{
			Rank:     rank,
			ClientID: p.ClientID,
			Nickname: p.Nickname,
			Score:    p.Score,
		})
	}
	return board
}

func (s *Session) summary(reason string) Summary {
	board := s.scoreboard()
	results := make([]models.GameResult, 0, len(board))
	for _, entry := range board {
		p := s.players[entry.ClientID]
		results = append(results, models.GameResult{
			ClientID:        p.ClientID,
			PlayerProfileID: p.ProfileID,
			Nickname:        p.Nickname,
			Score:           p.Score,
			Rank:            entry.Rank,
			CorrectAnswers:  p.CorrectAnswers,
		})
	}

	return Summary{
		SessionID:      s.id,
		RoomCode:       s.roomCode,
		HostID:         s.hostID,
		Reason:         reason,
		TotalRounds:    s.settings.TotalRounds,
		QuestionsAsked: s.questionIndex + 1,
		StartedAt:      s.startedAt,
		FinishedAt:     s.now(),
		Degraded:       s.degraded,
		Results:        results,
	}
}
