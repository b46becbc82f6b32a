// Package suggest builds the relevance-ranked list of "say next" candidates.
package suggest

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ashureev/coachpad/internal/collab"
	"github.com/ashureev/coachpad/internal/domain"
)

const (
	defaultTopK        = 5
	defaultTimeout     = 3 * time.Second
	promptContextRunes = 300
	generateCount      = 2

	// negativeSentimentGate is the sentiment below which pressure lines drop.
	negativeSentimentGate = -0.2
)

// Request is the input of one pipeline query.
type Request struct {
	Context   string
	Stage     domain.Stage
	Sentiment float64
}

// Config wires the pipeline to its collaborators. Generator may be nil.
type Config struct {
	Retriever collab.Retriever
	Generator collab.Generator
	Reranker  collab.Reranker
	TopK      int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Pipeline combines retrieval, templates, optional generation, a sentiment
// gate and reranking. Collaborator failures degrade the result; Query never
// fails.
type Pipeline struct {
	retriever collab.Retriever
	generator collab.Generator
	reranker  collab.Reranker
	topK      int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Reranker == nil {
		cfg.Reranker = collab.OverlapReranker{}
	}
	return &Pipeline{
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		reranker:  cfg.Reranker,
		topK:      cfg.TopK,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// Query returns the candidate lines, most relevant first.
func (p *Pipeline) Query(ctx context.Context, req Request) []string {
	retrieved := p.retrieve(ctx, req)

	pool := make([]string, 0, len(retrieved)+4)
	for _, it := range retrieved {
		pool = append(pool, it.Text)
	}
	pool = append(pool, Templates(req.Stage)...)

	if p.generator != nil {
		pool = append(pool, p.generate(ctx, req, retrieved)...)
	}

	pool = FilterForSentiment(pool, req.Sentiment)
	pool = Dedupe(pool)
	if len(pool) == 0 {
		return []string{}
	}
	return p.rerank(ctx, req.Context, pool)
}

func (p *Pipeline) retrieve(ctx context.Context, req Request) []collab.RetrievedItem {
	if p.retriever == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	items, err := p.retriever.Retrieve(callCtx, req.Context, req.Stage, p.topK)
	if err != nil {
		p.logger.Warn("Retrieval failed, continuing with templates", "stage", req.Stage, "error", err)
		return nil
	}
	return collab.PreferStage(items, req.Stage, p.topK)
}

func (p *Pipeline) generate(ctx context.Context, req Request, retrieved []collab.RetrievedItem) []string {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	texts := make([]string, len(retrieved))
	for i, it := range retrieved {
		texts[i] = it.Text
	}
	prompt := BuildPrompt(req.Context, req.Stage)
	out, err := p.generator.Generate(callCtx, collab.GenerateRequest{
		Prompt:    prompt,
		Context:   req.Context,
		Stage:     req.Stage,
		Retrieved: texts,
		Sentiment: req.Sentiment,
		Count:     generateCount,
	})
	if err != nil {
		p.logger.Warn("Generation failed, continuing without generated lines", "stage", req.Stage, "error", err)
		return nil
	}

	lines := make([]string, 0, len(out))
	for _, g := range out {
		g = strings.TrimSpace(strings.ReplaceAll(g, prompt, ""))
		if g != "" {
			lines = append(lines, g)
		}
	}
	return lines
}

func (p *Pipeline) rerank(ctx context.Context, text string, pool []string) []string {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	scores, err := p.reranker.Score(callCtx, text, pool)
	if err != nil || len(scores) != len(pool) {
		p.logger.Warn("Reranking failed, keeping pool order", "candidates", len(pool), "scores", len(scores), "error", err)
		return pool
	}

	type scored struct {
		line  string
		score float64
	}
	items := make([]scored, len(pool))
	for i := range pool {
		items[i] = scored{line: pool[i], score: scores[i]}
	}
	slices.SortStableFunc(items, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.line
	}
	return out
}

// BuildPrompt renders the generation prompt using the last 300 characters
// of context.
func BuildPrompt(text string, stage domain.Stage) string {
	runes := []rune(text)
	if len(runes) > promptContextRunes {
		runes = runes[len(runes)-promptContextRunes:]
	}
	return "You are a sales coach. Provide one open ended question " +
		"grounded in the conversation. Stage: " +
		string(stage) + ". Context: " + string(runes) + "\nQuestion:"
}

// FilterForSentiment drops commitment-pressure lines when sentiment is
// below the negative gate.
func FilterForSentiment(lines []string, sentiment float64) []string {
	if sentiment >= negativeSentimentGate {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(line)
		blocked := slices.ContainsFunc(pressureTerms, func(term string) bool {
			return strings.Contains(lower, term)
		})
		if !blocked {
			out = append(out, line)
		}
	}
	return out
}

// Dedupe trims lines, drops empty ones and keeps the first occurrence of
// each.
func Dedupe(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
