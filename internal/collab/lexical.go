package collab

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/ashureev/coachpad/internal/domain"
)

// LexicalRetriever ranks the corpus by token overlap with the context.
type LexicalRetriever struct {
	items  []CorpusItem
	tokens []map[string]struct{}
}

// NewLexicalRetriever builds a retriever over items.
func NewLexicalRetriever(items []CorpusItem) *LexicalRetriever {
	r := &LexicalRetriever{items: items, tokens: make([]map[string]struct{}, len(items))}
	for i, it := range items {
		r.tokens[i] = tokenSet(it.Text)
	}
	return r
}

// Retrieve implements Retriever.
func (r *LexicalRetriever) Retrieve(_ context.Context, text string, stage domain.Stage, topK int) ([]RetrievedItem, error) {
	if topK <= 0 {
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		n := min(topK, len(r.items))
		out := make([]RetrievedItem, n)
		for i := 0; i < n; i++ {
			out[i] = RetrievedItem{Text: r.items[i].Text, Stage: r.items[i].Stage}
		}
		return out, nil
	}

	query := tokenSet(text)
	type hit struct {
		idx   int
		score float64
	}
	hits := make([]hit, len(r.items))
	for i := range r.items {
		hits[i] = hit{idx: i, score: overlap(query, r.tokens[i])}
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})

	ranked := make([]RetrievedItem, 0, min(topK, len(hits)))
	for _, h := range hits[:min(topK, len(hits))] {
		ranked = append(ranked, RetrievedItem{Text: r.items[h.idx].Text, Stage: r.items[h.idx].Stage})
	}
	return PreferStage(ranked, stage, topK), nil
}

// OverlapReranker scores candidates by token overlap with the context.
type OverlapReranker struct{}

// Score implements Reranker.
func (OverlapReranker) Score(_ context.Context, text string, candidates []string) ([]float64, error) {
	query := tokenSet(text)
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = overlap(query, tokenSet(c))
	}
	return scores, nil
}

// overlap is the Jaccard index of two token sets.
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
