package domain

// Stage is a methodology phase of the conversation.
type Stage string

const (
	StageConnect   Stage = "connect"
	StageSituation Stage = "situation"
	StageProblem   Stage = "problem"
	StageAwareness Stage = "awareness"
	StageSolution  Stage = "solution"
	StageClosing   Stage = "closing"
)

// Stages lists every stage in classification priority order.
var Stages = []Stage{
	StageConnect,
	StageSituation,
	StageProblem,
	StageAwareness,
	StageSolution,
	StageClosing,
}

// ParseStage returns the stage named s.
func ParseStage(s string) (Stage, bool) {
	for _, st := range Stages {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}
