package game

import "errors"

var (
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrDuplicateAnswer    = errors.New("answer already submitted")
	ErrInvalidAnswerIndex = errors.New("answer index out of range")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrNotHost            = errors.New("only the host can do that")
	ErrNotPlayer          = errors.New("only players can do that")
	ErrInvalidPhase       = errors.New("not allowed in the current phase")
	ErrQuestionClosed     = errors.New("question is closed")
	ErrGamePaused         = errors.New("game is paused")
	ErrInvalidNickname    = errors.New("invalid nickname")
	ErrNicknameTaken      = errors.New("nickname already taken")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrSessionClosed      = errors.New("session closed")
	ErrUnknownCommand     = errors.New("unknown command")
)

var errorCodes = map[error]string{
	ErrPreconditionFailed: "precondition_failed",
	ErrDuplicateAnswer:    "duplicate_answer",
	ErrInvalidAnswerIndex: "invalid_answer_index",
	ErrUnknownPlayer:      "unknown_player",
	ErrNotHost:            "not_host",
	ErrNotPlayer:          "not_player",
	ErrInvalidPhase:       "invalid_phase",
	ErrQuestionClosed:     "question_closed",
	ErrGamePaused:         "game_paused",
	ErrInvalidNickname:    "invalid_nickname",
	ErrNicknameTaken:      "nickname_taken",
	ErrInvalidEmail:       "invalid_email",
	ErrSessionClosed:      "session_closed",
	ErrUnknownCommand:     "unknown_command",
}

// ErrorCode maps an error to the stable code sent on the wire.
func ErrorCode(err error) string {
	for target, code := range errorCodes {
		if errors.Is(err, target) {
			return code
		}
	}
	return "internal_error"
}
