package sidecar

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ashureev/coachpad/internal/collab"
)

const sampleRate = 16000

// NewStream implements collab.SpeechRecognizer. Each stream keeps its
// recognizer state on the sidecar under a stream id.
func (c *Client) NewStream(ctx context.Context) (collab.SpeechStream, error) {
	resp, err := c.invoke(ctx, "OpenAudioStream", map[string]any{"sample_rate": sampleRate})
	if err != nil {
		return nil, err
	}
	id := resp.GetFields()["stream_id"].GetStringValue()
	if id == "" {
		return nil, fmt.Errorf("OpenAudioStream: %w: missing stream_id", errMalformedResponse)
	}
	return &audioStream{client: c, id: id}, nil
}

type audioStream struct {
	client *Client
	id     string

	closeOnce sync.Once
	closeErr  error
}

func (s *audioStream) Accept(ctx context.Context, pcm []byte) (collab.Transcription, error) {
	resp, err := s.client.invoke(ctx, "AcceptAudio", map[string]any{
		"stream_id": s.id,
		"pcm":       base64.StdEncoding.EncodeToString(pcm),
	})
	if err != nil {
		return collab.Transcription{}, err
	}
	fields := resp.GetFields()
	return collab.Transcription{
		Final:   fields["final"].GetStringValue(),
		Partial: fields["partial"].GetStringValue(),
	}, nil
}

func (s *audioStream) Close() error {
	s.closeOnce.Do(func() {
		// The connection context may already be gone; closing must still
		// reach the sidecar.
		_, s.closeErr = s.client.invoke(context.Background(), "CloseAudioStream", map[string]any{"stream_id": s.id})
	})
	return s.closeErr
}

// Analyze implements collab.FaceAnalyzer. The sidecar returns the face box
// in normalized frame coordinates; the gaze score is derived here.
func (c *Client) Analyze(ctx context.Context, frame []byte) (collab.FaceResult, error) {
	resp, err := c.invoke(ctx, "AnalyzeFrame", map[string]any{
		"frame": base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		var st interface{ GRPCStatus() *status.Status }
		if errors.As(err, &st) && st.GRPCStatus().Code() == codes.InvalidArgument {
			return collab.FaceResult{}, fmt.Errorf("%w: %v", collab.ErrUndecodableFrame, err)
		}
		return collab.FaceResult{}, err
	}

	fields := resp.GetFields()
	if !fields["face_present"].GetBoolValue() {
		return collab.FaceResult{}, nil
	}
	box := fields["box"].GetStructValue().GetFields()
	if box == nil {
		return collab.FaceResult{}, fmt.Errorf("AnalyzeFrame: %w: face without box", errMalformedResponse)
	}
	cx := box["x"].GetNumberValue() + box["w"].GetNumberValue()/2
	cy := box["y"].GetNumberValue() + box["h"].GetNumberValue()/2
	return collab.FaceResult{FacePresent: true, GazeScore: collab.GazeScore(cx, cy)}, nil
}
