package gemini

import (
	"context"
	"sync"
)

const maxCachedEmbeddings = 4096

// Reranker scores candidates by embedding similarity to the context.
// Candidate embeddings are cached since template lines repeat.
type Reranker struct {
	embedder

	mu    sync.Mutex
	cache map[string][]float32
}

// NewReranker creates an embedding reranker.
func NewReranker(models Models, embedModel string) *Reranker {
	return &Reranker{
		embedder: embedder{models: models, model: embedModel},
		cache:    make(map[string][]float32),
	}
}

// Score implements collab.Reranker.
func (r *Reranker) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(candidates))
	missing := []string{query}
	r.mu.Lock()
	for i, c := range candidates {
		if v, ok := r.cache[c]; ok {
			vectors[i] = v
		} else {
			missing = append(missing, c)
		}
	}
	r.mu.Unlock()

	embedded, err := r.embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	qv := embedded[0]

	r.mu.Lock()
	if len(r.cache)+len(missing) > maxCachedEmbeddings {
		r.cache = make(map[string][]float32)
	}
	for i, text := range missing[1:] {
		r.cache[text] = embedded[i+1]
	}
	for i, c := range candidates {
		if vectors[i] == nil {
			vectors[i] = r.cache[c]
		}
	}
	r.mu.Unlock()

	scores := make([]float64, len(candidates))
	for i, v := range vectors {
		scores[i] = cosine(qv, v)
	}
	return scores, nil
}
