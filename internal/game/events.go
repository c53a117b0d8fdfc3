package game

import (
	"time"

	"trivia-service/internal/constants"
	"trivia-service/internal/scoring"
)

type EventType string

const (
	EventHostConnected   EventType = "host_connected"
	EventPlayerConnected EventType = "player_connected"
	EventPlayerJoined    EventType = "player_joined"
	EventPlayerLeft      EventType = "player_left"
	EventPlayerStatus    EventType = "player_status"
	EventError           EventType = "error"
	EventGameStarted     EventType = "game_started"
	EventRoundStarted    EventType = "round_started"
	EventQuestionReady   EventType = "question_ready"
	EventQuestionUpdate  EventType = "question_update"
	EventAnswerSubmitted EventType = "answer_submitted"
	EventAnswerResult    EventType = "answer_result"
	EventQuestionLocked  EventType = "question_locked"
	EventRoundComplete   EventType = "round_complete"
	EventGameComplete    EventType = "game_complete"
	EventGamePaused      EventType = "game_paused"
	EventGameResumed     EventType = "game_resumed"
	EventGameState       EventType = "game_state"
	EventDegradedMode    EventType = "degraded_mode"
	EventProfileLinked   EventType = "profile_linked"
)

// Event is an outbound message addressed by the session to one logical
// recipient. The transport resolves the recipient to a live socket.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorEvent(err error) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Code: ErrorCode(err), Message: err.Error()}}
}

type PlayerView struct {
	ClientID        string `json:"client_id"`
	Nickname        string `json:"nickname"`
	Score           int    `json:"score"`
	Streak          int    `json:"streak"`
	Connected       bool   `json:"connected"`
	Answered        bool   `json:"answered"`
	PlayerProfileID string `json:"player_profile_id,omitempty"`
}

type ScoreboardEntry struct {
	Rank     int    `json:"rank"`
	ClientID string `json:"client_id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

type HostConnectedPayload struct {
	SessionID string          `json:"session_id"`
	RoomCode  string          `json:"room_code"`
	Phase     constants.Phase `json:"phase"`
}

type PlayerConnectedPayload struct {
	SessionID string          `json:"session_id"`
	ClientID  string          `json:"client_id"`
	Phase     constants.Phase `json:"phase"`
	NeedsJoin bool            `json:"needs_join"`
	Nickname  string          `json:"nickname,omitempty"`
}

type RosterPayload struct {
	Player  PlayerView   `json:"player"`
	Players []PlayerView `json:"players"`
}

type GameStartedPayload struct {
	TotalRounds       int `json:"total_rounds"`
	QuestionsPerRound int `json:"questions_per_round"`
	TimeLimitSec      int `json:"time_limit_seconds"`
	PlayerCount       int `json:"player_count"`
}

type RoundStartedPayload struct {
	Round       int `json:"round"`
	TotalRounds int `json:"total_rounds"`
}

// QuestionPayload is the player-facing question; it never carries the
// correct answer while the question is open.
type QuestionPayload struct {
	QuestionIndex   int       `json:"question_index"`
	Round           int       `json:"round"`
	QuestionInRound int       `json:"question_in_round"`
	Text            string    `json:"question_text"`
	Answers         []string  `json:"answers"`
	Category        string    `json:"category,omitempty"`
	Difficulty      string    `json:"difficulty,omitempty"`
	TimeLimitMs     int64     `json:"time_limit_ms"`
	StartedAt       time.Time `json:"started_at"`
}

type HostQuestionPayload struct {
	QuestionPayload
	CorrectAnswerIndex int          `json:"correct_answer_index"`
	AnsweredCount      int          `json:"answered_count"`
	ConnectedCount     int          `json:"connected_count"`
	Paused             bool         `json:"paused"`
	Players            []PlayerView `json:"players"`
}

type AnswerSubmittedPayload struct {
	QuestionIndex int `json:"question_index"`
	AnswerIndex   int `json:"answer_index"`
}

type AnswerResultPayload struct {
	QuestionIndex  int   `json:"question_index"`
	AnswerIndex    int   `json:"answer_index"`
	IsCorrect      bool  `json:"is_correct"`
	ResponseTimeMs int64 `json:"response_time_ms"`
	scoring.Result
	IsPerfectRound bool `json:"is_perfect_round"`
	RoundBonus     int  `json:"round_bonus"`
	TotalScore     int  `json:"total_score"`
}

type PlayerResult struct {
	ClientID    string `json:"client_id"`
	Nickname    string `json:"nickname"`
	Answered    bool   `json:"answered"`
	AnswerIndex int    `json:"answer_index"`
	IsCorrect   bool   `json:"is_correct"`
	FinalScore  int    `json:"final_score"`
	SpeedRank   int    `json:"speed_rank,omitempty"`
	TotalScore  int    `json:"total_score"`
	Streak      int    `json:"streak"`
}

type LockedPayload struct {
	QuestionIndex      int               `json:"question_index"`
	Round              int               `json:"round"`
	CorrectAnswerIndex int               `json:"correct_answer_index"`
	Reason             string            `json:"reason"`
	Distribution       []int             `json:"distribution"`
	Results            []PlayerResult    `json:"results,omitempty"`
	You                *PlayerResult     `json:"you,omitempty"`
	Scoreboard         []ScoreboardEntry `json:"scoreboard"`
}

type RoundCompletePayload struct {
	Round          int               `json:"round"`
	TotalRounds    int               `json:"total_rounds"`
	PerfectPlayers []string          `json:"perfect_players"`
	Scoreboard     []ScoreboardEntry `json:"scoreboard"`
}

type GameCompletePayload struct {
	Reason     string            `json:"reason"`
	Scoreboard []ScoreboardEntry `json:"scoreboard"`
}

type PausePayload struct {
	RemainingMs int64 `json:"remaining_ms"`
}

type DegradedPayload struct {
	Reason string `json:"reason"`
}

type ProfileLinkedPayload struct {
	PlayerProfileID string `json:"player_profile_id"`
}

// GameStatePayload is a point-in-time snapshot. Host snapshots carry the
// correct answer and the full roster; player snapshots carry only the
// recipient's own state.
type GameStatePayload struct {
	SessionID          string               `json:"session_id"`
	RoomCode           string               `json:"room_code"`
	Phase              constants.Phase      `json:"phase"`
	Round              int                  `json:"round"`
	TotalRounds        int                  `json:"total_rounds"`
	QuestionIndex      int                  `json:"question_index"`
	Paused             bool                 `json:"paused"`
	RemainingMs        int64                `json:"remaining_ms"`
	Question           *QuestionPayload     `json:"question,omitempty"`
	CorrectAnswerIndex *int                 `json:"correct_answer_index,omitempty"`
	Scoreboard         []ScoreboardEntry    `json:"scoreboard"`
	You                *PlayerView          `json:"you,omitempty"`
	YourAnswer         *AnswerResultPayload `json:"your_answer,omitempty"`
	Players            []PlayerView         `json:"players,omitempty"`
	Degraded           bool                 `json:"degraded,omitempty"`
}
