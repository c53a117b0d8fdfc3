package websocket

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"trivia-service/internal/constants"
	"trivia-service/internal/game"
)

func decode(t *testing.T, raw string) InboundMessage {
	t.Helper()
	var msg InboundMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return msg
}

func TestToCommandSubmitAnswer(t *testing.T) {
	at := time.Now()
	cmd, err := ToCommand(decode(t, `{"type":"submit_answer","payload":{"answer_index":0}}`), constants.RolePlayer, "p1", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Kind != game.CmdSubmitAnswer || cmd.AnswerIndex != 0 || cmd.ClientID != "p1" || !cmd.ReceivedAt.Equal(at) {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestToCommandJoinGame(t *testing.T) {
	cmd, err := ToCommand(decode(t, `{"type":"join_game","payload":{"nickname":"Ada","email":"ada@example.com"}}`), constants.RolePlayer, "p1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Nickname != "Ada" || cmd.Email != "ada@example.com" {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestToCommandHostCommandsNeedNoPayload(t *testing.T) {
	for _, typ := range []string{"start_game", "next_question", "pause_game", "resume_game", "end_game", "get_game_state"} {
		if _, err := ToCommand(decode(t, `{"type":"`+typ+`"}`), constants.RoleHost, "host", time.Now()); err != nil {
			t.Errorf("%s: unexpected error: %v", typ, err)
		}
	}
}

func TestToCommandRejectsMalformed(t *testing.T) {
	cases := []string{
		`{"type":"dance"}`,
		`{"type":"submit_answer"}`,
		`{"type":"submit_answer","payload":{}}`,
		`{"type":"submit_answer","payload":{"answer_index":"two"}}`,
		`{"type":"join_game"}`,
	}
	for _, raw := range cases {
		if _, err := ToCommand(decode(t, raw), constants.RolePlayer, "p1", time.Now()); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("%s: expected ErrMalformedMessage, got %v", raw, err)
		}
	}
}
