package gemini

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ashureev/coachpad/internal/collab"
	"github.com/ashureev/coachpad/internal/domain"
)

// Retriever ranks the corpus by embedding similarity to the context.
type Retriever struct {
	embedder
	items   []collab.CorpusItem
	vectors [][]float32
}

// NewRetriever embeds the corpus up front. It fails if the corpus cannot be
// embedded.
func NewRetriever(ctx context.Context, models Models, embedModel string, items []collab.CorpusItem) (*Retriever, error) {
	e := embedder{models: models, model: embedModel}
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	vectors, err := e.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	return &Retriever{embedder: e, items: items, vectors: vectors}, nil
}

// Retrieve implements collab.Retriever.
func (r *Retriever) Retrieve(ctx context.Context, query string, stage domain.Stage, topK int) ([]collab.RetrievedItem, error) {
	if topK <= 0 {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		n := min(topK, len(r.items))
		out := make([]collab.RetrievedItem, n)
		for i := 0; i < n; i++ {
			out[i] = collab.RetrievedItem{Text: r.items[i].Text, Stage: r.items[i].Stage}
		}
		return out, nil
	}

	qv, err := r.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	type hit struct {
		idx   int
		score float64
	}
	hits := make([]hit, len(r.items))
	for i := range r.items {
		hits[i] = hit{idx: i, score: cosine(qv[0], r.vectors[i])}
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})

	ranked := make([]collab.RetrievedItem, 0, min(topK, len(hits)))
	for _, h := range hits[:min(topK, len(hits))] {
		ranked = append(ranked, collab.RetrievedItem{Text: r.items[h.idx].Text, Stage: r.items[h.idx].Stage})
	}
	return collab.PreferStage(ranked, stage, topK), nil
}
