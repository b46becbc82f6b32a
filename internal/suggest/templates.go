package suggest

import "github.com/ashureev/coachpad/internal/domain"

var stageTemplates = map[domain.Stage][]string{
	domain.StageProblem: {
		"Can you walk me through a recent example?",
		"How often does that happen in a typical week?",
	},
	domain.StageAwareness: {
		"What impact does that have on your goals?",
		"How does that affect your customers or team?",
	},
	domain.StageSolution: {
		"What would success look like in three months?",
		"Which outcomes matter most to you?",
	},
	domain.StageClosing: {
		"What would be the right next step for you?",
		"Who needs to be part of that decision?",
	},
}

var defaultTemplates = []string{
	"What is most important for you to solve first?",
	"Can you share a bit more about that?",
}

// Templates returns the fixed template questions for stage.
func Templates(stage domain.Stage) []string {
	if t, ok := stageTemplates[stage]; ok {
		return append([]string(nil), t...)
	}
	return append([]string(nil), defaultTemplates...)
}

// pressureTerms are dropped from the pool when sentiment is negative.
var pressureTerms = []string{"next step", "decision", "approve", "timeline", "commit"}
