package game

import "time"

type CommandKind string

const (
	CmdHostConnect    CommandKind = "host_connect"
	CmdPlayerConnect  CommandKind = "player_connect"
	CmdHostDisconnect CommandKind = "host_disconnect"
	CmdDisconnect     CommandKind = "player_disconnect"

	CmdStartGame    CommandKind = "start_game"
	CmdNextQuestion CommandKind = "next_question"
	CmdPauseGame    CommandKind = "pause_game"
	CmdResumeGame   CommandKind = "resume_game"
	CmdEndGame      CommandKind = "end_game"
	CmdGetGameState CommandKind = "get_game_state"

	CmdJoinGame     CommandKind = "join_game"
	CmdSubmitAnswer CommandKind = "submit_answer"
	CmdReconnect    CommandKind = "reconnect"
	CmdLeaveGame    CommandKind = "leave_game"
)

// Command is one inbound item for a session. ReceivedAt is stamped by the
// transport when the frame is read, before it is queued.
type Command struct {
	Kind       CommandKind
	Role       string
	ClientID   string
	ReceivedAt time.Time

	Nickname    string
	Email       string
	AnswerIndex int
}

var hostCommands = map[CommandKind]bool{
	CmdStartGame:    true,
	CmdNextQuestion: true,
	CmdPauseGame:    true,
	CmdResumeGame:   true,
	CmdEndGame:      true,
}

var playerCommands = map[CommandKind]bool{
	CmdJoinGame:     true,
	CmdSubmitAnswer: true,
	CmdReconnect:    true,
	CmdLeaveGame:    true,
}
