package constants

type Phase string

const (
	PhaseWaitingForPlayers Phase = "WAITING_FOR_PLAYERS"
	PhaseRoundInProgress   Phase = "ROUND_IN_PROGRESS"
	PhaseQuestionActive    Phase = "QUESTION_ACTIVE"
	PhaseQuestionLocked    Phase = "QUESTION_LOCKED"
	PhaseRoundComplete     Phase = "ROUND_COMPLETE"
	PhaseGameComplete      Phase = "GAME_COMPLETE"
)

const (
	RoleHost   = "host"
	RolePlayer = "player"
)

type PeriodType string

const (
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

var PeriodTypes = []PeriodType{PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly}

const AnswerOptions = 4

const (
	LockReasonTimer       = "timer"
	LockReasonAllAnswered = "all_answered"
	LockReasonHost        = "host"
)

const QueueGameCompleted = "trivia.game_completed"
