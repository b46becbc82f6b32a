package sidecar

import (
	"context"
	"fmt"

	"github.com/ashureev/coachpad/internal/collab"
	"github.com/ashureev/coachpad/internal/domain"
)

// Retrieve implements collab.Retriever.
func (c *Client) Retrieve(ctx context.Context, query string, stage domain.Stage, topK int) ([]collab.RetrievedItem, error) {
	resp, err := c.invoke(ctx, "Retrieve", map[string]any{
		"query": query,
		"stage": string(stage),
		"top_k": topK,
	})
	if err != nil {
		return nil, err
	}

	values := listField(resp, "items")
	items := make([]collab.RetrievedItem, 0, len(values))
	for _, v := range values {
		fields := v.GetStructValue().GetFields()
		text := fields["text"].GetStringValue()
		if text == "" {
			continue
		}
		items = append(items, collab.RetrievedItem{
			Text:  text,
			Stage: domain.Stage(fields["stage"].GetStringValue()),
		})
	}
	return collab.PreferStage(items, stage, topK), nil
}

// Score implements collab.Reranker.
func (c *Client) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	resp, err := c.invoke(ctx, "Rerank", map[string]any{
		"query":      query,
		"candidates": stringList(candidates),
	})
	if err != nil {
		return nil, err
	}

	values := listField(resp, "scores")
	if len(values) != len(candidates) {
		return nil, fmt.Errorf("Rerank: %w: %d scores for %d candidates", errMalformedResponse, len(values), len(candidates))
	}
	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = v.GetNumberValue()
	}
	return scores, nil
}

// Generate implements collab.Generator.
func (c *Client) Generate(ctx context.Context, req collab.GenerateRequest) ([]string, error) {
	resp, err := c.invoke(ctx, "Generate", map[string]any{
		"prompt":    req.Prompt,
		"context":   req.Context,
		"stage":     string(req.Stage),
		"retrieved": stringList(req.Retrieved),
		"sentiment": req.Sentiment,
		"count":     req.Count,
	})
	if err != nil {
		return nil, err
	}

	values := listField(resp, "lines")
	lines := make([]string, 0, len(values))
	for _, v := range values {
		if s := v.GetStringValue(); s != "" {
			lines = append(lines, s)
		}
	}
	return lines, nil
}
