package collab

import "github.com/ashureev/coachpad/internal/domain"

// CorpusItem is one line of the retrieval seed corpus.
type CorpusItem struct {
	Text  string
	Stage domain.Stage
	Tags  []string
}

// SeedCorpus returns the fixed retrieval corpus.
func SeedCorpus() []CorpusItem {
	return []CorpusItem{
		{Text: "What does your current process look like today?", Stage: domain.StageSituation, Tags: []string{"open", "nepq"}},
		{Text: "How is that impacting your team right now?", Stage: domain.StageProblem, Tags: []string{"impact", "nepq"}},
		{Text: "What happens if this stays the same for the next quarter?", Stage: domain.StageAwareness, Tags: []string{"consequence", "nepq"}},
		{Text: "What would an ideal outcome look like for you?", Stage: domain.StageSolution, Tags: []string{"vision", "nepq"}},
		{Text: "Who else should be involved in evaluating next steps?", Stage: domain.StageClosing, Tags: []string{"decision", "nepq"}},
		{Text: "Can you share more about that?", Stage: domain.StageConnect, Tags: []string{"probe", "nepq"}},
	}
}

// PreferStage keeps only items of the requested stage when any exist,
// otherwise returns items unchanged. The result is capped at topK.
func PreferStage(items []RetrievedItem, stage domain.Stage, topK int) []RetrievedItem {
	matched := make([]RetrievedItem, 0, len(items))
	for _, it := range items {
		if it.Stage == stage {
			matched = append(matched, it)
		}
	}
	if len(matched) > 0 {
		items = matched
	}
	if topK >= 0 && len(items) > topK {
		items = items[:topK]
	}
	return items
}
