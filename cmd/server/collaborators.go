package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/coachpad/internal/collab"
	"github.com/ashureev/coachpad/internal/collab/gemini"
	"github.com/ashureev/coachpad/internal/collab/sidecar"
	"github.com/ashureev/coachpad/internal/config"
)

// collaborators is the set of model backends the session pipeline uses.
type collaborators struct {
	retriever collab.Retriever
	reranker  collab.Reranker
	generator collab.Generator
	speech    collab.SpeechRecognizer
	vision    collab.FaceAnalyzer
	sidecar   *sidecar.Client
}

func (c *collaborators) Close() {
	if c.sidecar != nil {
		c.sidecar.Close()
	}
}

// buildCollaborators picks Gemini for text models when an API key is set,
// otherwise the model sidecar, otherwise the local lexical fallbacks. Speech
// and vision come from the sidecar only.
func buildCollaborators(ctx context.Context, cfg config.CollabConfig, logger *slog.Logger) (*collaborators, error) {
	corpus := collab.SeedCorpus()
	c := &collaborators{
		retriever: collab.NewLexicalRetriever(corpus),
		reranker:  collab.OverlapReranker{},
		vision:    collab.FrameProbe{},
	}

	if cfg.SidecarAddr != "" {
		sc := sidecar.DefaultConfig(cfg.SidecarAddr)
		sc.RequestTimeout = cfg.Timeout
		client, err := sidecar.New(sc, logger)
		if err != nil {
			return nil, fmt.Errorf("model sidecar: %w", err)
		}
		c.sidecar = client
		c.speech = client
		c.vision = client
		c.retriever = client
		c.reranker = client
		if cfg.EnableLLM {
			c.generator = client
		}
	}

	if cfg.GeminiAPIKey != "" {
		models, err := gemini.NewModels(ctx, cfg.GeminiAPIKey)
		if err != nil {
			c.Close()
			return nil, err
		}
		retriever, err := gemini.NewRetriever(ctx, models, cfg.GeminiEmbedModel, corpus)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("gemini retriever: %w", err)
		}
		c.retriever = retriever
		c.reranker = gemini.NewReranker(models, cfg.GeminiEmbedModel)
		if cfg.EnableLLM {
			c.generator = gemini.NewGenerator(models, cfg.GeminiModel)
		}
	}

	logger.Info("Collaborators configured",
		"sidecar", c.sidecar != nil,
		"gemini", cfg.GeminiAPIKey != "",
		"generation", c.generator != nil,
		"speech", c.speech != nil)
	return c, nil
}
