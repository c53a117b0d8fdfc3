package websocket

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"trivia-service/internal/constants"
	"trivia-service/internal/game"
)

type MessageType string

const (
	// Client -> Server
	MessageTypeStartGame    MessageType = "start_game"
	MessageTypeNextQuestion MessageType = "next_question"
	MessageTypePauseGame    MessageType = "pause_game"
	MessageTypeResumeGame   MessageType = "resume_game"
	MessageTypeEndGame      MessageType = "end_game"
	MessageTypeGetGameState MessageType = "get_game_state"
	MessageTypeJoinGame     MessageType = "join_game"
	MessageTypeSubmitAnswer MessageType = "submit_answer"
	MessageTypeReconnect    MessageType = "reconnect"
	MessageTypeLeaveGame    MessageType = "leave_game"
	MessageTypePing         MessageType = "ping"

	// Server -> Client, besides the session events
	MessageTypePong               MessageType = "pong"
	MessageTypeError              MessageType = "error"
	MessageTypeHostReplaced       MessageType = "host_replaced"
	MessageTypeConnectionReplaced MessageType = "connection_replaced"
)

var ErrMalformedMessage = errors.New("malformed message")

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

type InboundMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
}

type AnswerPayload struct {
	AnswerIndex *int `json:"answer_index"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ReplacedPayload struct {
	Reason string `json:"reason"`
}

var commandKinds = map[MessageType]game.CommandKind{
	MessageTypeStartGame:    game.CmdStartGame,
	MessageTypeNextQuestion: game.CmdNextQuestion,
	MessageTypePauseGame:    game.CmdPauseGame,
	MessageTypeResumeGame:   game.CmdResumeGame,
	MessageTypeEndGame:      game.CmdEndGame,
	MessageTypeGetGameState: game.CmdGetGameState,
	MessageTypeJoinGame:     game.CmdJoinGame,
	MessageTypeSubmitAnswer: game.CmdSubmitAnswer,
	MessageTypeReconnect:    game.CmdReconnect,
	MessageTypeLeaveGame:    game.CmdLeaveGame,
}

// ToCommand decodes an inbound frame into a session command for the given
// connection identity. Role checks are left to the session.
func ToCommand(msg InboundMessage, role, clientID string, receivedAt time.Time) (game.Command, error) {
	kind, ok := commandKinds[msg.Type]
	if !ok {
		return game.Command{}, fmt.Errorf("%w: unknown message type %q", ErrMalformedMessage, msg.Type)
	}

	cmd := game.Command{
		Kind:       kind,
		Role:       role,
		ClientID:   clientID,
		ReceivedAt: receivedAt,
	}

	switch kind {
	case game.CmdJoinGame:
		var p JoinPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return game.Command{}, err
		}
		cmd.Nickname = p.Nickname
		cmd.Email = p.Email

	case game.CmdSubmitAnswer:
		var p AnswerPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return game.Command{}, err
		}
		if p.AnswerIndex == nil {
			return game.Command{}, fmt.Errorf("%w: answer_index is required", ErrMalformedMessage)
		}
		cmd.AnswerIndex = *p.AnswerIndex
	}

	if role != constants.RoleHost && role != constants.RolePlayer {
		return game.Command{}, fmt.Errorf("%w: unknown role %q", ErrMalformedMessage, role)
	}
	return cmd, nil
}

func decodePayload(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: payload is required", ErrMalformedMessage)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}
