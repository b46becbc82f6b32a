package perception

import "github.com/ashureev/coachpad/internal/domain"

var positiveWords = map[string]struct{}{
	"great":      {},
	"good":       {},
	"love":       {},
	"like":       {},
	"yes":        {},
	"sure":       {},
	"absolutely": {},
	"interested": {},
	"excited":    {},
	"helpful":    {},
}

var negativeWords = map[string]struct{}{
	"no":        {},
	"not":       {},
	"never":     {},
	"bad":       {},
	"hate":      {},
	"expensive": {},
	"concern":   {},
	"problem":   {},
	"issue":     {},
	"busy":      {},
}

type stageKeywords struct {
	stage    domain.Stage
	keywords []string
}

// stageRules is scanned in order; the first stage with any keyword found
// in the recent text wins.
var stageRules = []stageKeywords{
	{domain.StageConnect, []string{"thanks", "appreciate", "time"}},
	{domain.StageSituation, []string{"currently", "today", "process", "workflow", "stack"}},
	{domain.StageProblem, []string{"pain", "issue", "challenge", "problem", "frustrated"}},
	{domain.StageAwareness, []string{"impact", "risk", "consequence"}},
	{domain.StageSolution, []string{"need", "want", "looking", "evaluate"}},
	{domain.StageClosing, []string{"next step", "timeline", "decision", "approve"}},
}
