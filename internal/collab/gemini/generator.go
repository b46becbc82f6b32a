package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ashureev/coachpad/internal/collab"
)

const (
	defaultCandidateCount = 2
	maxOutputTokens       = 40
)

// Generator produces candidate lines with a Gemini text model.
type Generator struct {
	models Models
	model  string
}

// NewGenerator creates a generator for model.
func NewGenerator(models Models, model string) *Generator {
	return &Generator{models: models, model: model}
}

// Generate implements collab.Generator. Each candidate's text becomes one
// line; the retrieved lines are given as examples of tone.
func (g *Generator) Generate(ctx context.Context, req collab.GenerateRequest) ([]string, error) {
	count := req.Count
	if count <= 0 {
		count = defaultCandidateCount
	}

	cfg := &genai.GenerateContentConfig{
		CandidateCount:  int32(count),
		MaxOutputTokens: int32(maxOutputTokens),
	}
	if len(req.Retrieved) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(
			"Match the tone of these example questions:\n- "+strings.Join(req.Retrieved, "\n- "),
			genai.RoleUser,
		)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var lines []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			lines = append(lines, text)
		}
	}
	return lines, nil
}
