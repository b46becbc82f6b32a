// Package collab defines the contracts of the external model collaborators
// (retrieval, generation, reranking, speech recognition, face analysis) and
// provides local fallbacks that need no model.
package collab

import (
	"context"
	"errors"

	"github.com/ashureev/coachpad/internal/domain"
)

var (
	// ErrNotConfigured is returned when an optional collaborator is absent.
	ErrNotConfigured = errors.New("collaborator not configured")
	// ErrUndecodableFrame is returned for image frames that cannot be decoded.
	ErrUndecodableFrame = errors.New("undecodable image frame")
)

// RetrievedItem is one corpus line returned by retrieval.
type RetrievedItem struct {
	Text  string       `json:"text"`
	Stage domain.Stage `json:"stage"`
}

// Retriever finds corpus lines similar to the conversation context.
type Retriever interface {
	Retrieve(ctx context.Context, query string, stage domain.Stage, topK int) ([]RetrievedItem, error)
}

// GenerateRequest carries the inputs of one generation call.
type GenerateRequest struct {
	Prompt    string
	Context   string
	Stage     domain.Stage
	Retrieved []string
	Sentiment float64
	Count     int
}

// Generator produces free-form candidate lines.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]string, error)
}

// Reranker scores each candidate's relevance to the context. The result
// has one score per candidate, higher is more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// Transcription is the result of feeding one audio frame to a recognizer.
// At most one of Final and Partial is set.
type Transcription struct {
	Final   string
	Partial string
}

// Text returns the final text if present, else the partial text.
func (t Transcription) Text() string {
	if t.Final != "" {
		return t.Final
	}
	return t.Partial
}

// SpeechStream is one stateful recognition stream of 16kHz PCM audio.
type SpeechStream interface {
	Accept(ctx context.Context, pcm []byte) (Transcription, error)
	Close() error
}

// SpeechRecognizer opens recognition streams.
type SpeechRecognizer interface {
	NewStream(ctx context.Context) (SpeechStream, error)
}

// FaceResult is the outcome of analyzing one camera frame.
type FaceResult struct {
	FacePresent bool
	GazeScore   float64
}

// FaceAnalyzer detects a face and estimates gaze in an encoded image.
type FaceAnalyzer interface {
	Analyze(ctx context.Context, frame []byte) (FaceResult, error)
}
