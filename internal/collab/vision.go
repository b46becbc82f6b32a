package collab

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for FrameProbe
	_ "image/png"
	"math"
)

// NoFaceEngagement is the vision engagement used when no face is seen.
const NoFaceEngagement = 0.2

// GazeScore approximates attention from the normalized center of the
// detected face box: 1 at the frame center, falling to 0 at distance 0.5.
func GazeScore(cx, cy float64) float64 {
	dx := math.Abs(cx - 0.5)
	dy := math.Abs(cy - 0.5)
	dist := math.Sqrt(dx*dx + dy*dy)
	return min(1.0, max(0.0, 1.0-dist*2.0))
}

// FrameProbe validates frames without detecting faces. It is the vision
// collaborator when no face model is available: decodable frames report
// no face.
type FrameProbe struct{}

// Analyze implements FaceAnalyzer.
func (FrameProbe) Analyze(_ context.Context, frame []byte) (FaceResult, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(frame)); err != nil {
		return FaceResult{}, fmt.Errorf("%w: %v", ErrUndecodableFrame, err)
	}
	return FaceResult{FacePresent: false}, nil
}
