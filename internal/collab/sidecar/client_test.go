package sidecar

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ashureev/coachpad/internal/collab"
	"github.com/ashureev/coachpad/internal/domain"
)

type handlerFunc func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// fakeSidecar serves the model service with per-method handlers.
type fakeSidecar struct {
	mu       sync.Mutex
	handlers map[string]handlerFunc
	requests map[string][]*structpb.Struct
}

func (f *fakeSidecar) record(method string, in *structpb.Struct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[method] = append(f.requests[method], in)
}

func (f *fakeSidecar) last(method string) *structpb.Struct {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requests[method]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func (f *fakeSidecar) desc() *grpc.ServiceDesc {
	methods := []string{"Retrieve", "Rerank", "Generate", "OpenAudioStream", "AcceptAudio", "CloseAudioStream", "AnalyzeFrame"}
	sd := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
	}
	for _, name := range methods {
		sd.Methods = append(sd.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler: func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				in := &structpb.Struct{}
				if err := dec(in); err != nil {
					return nil, err
				}
				f.record(name, in)
				h, ok := f.handlers[name]
				if !ok {
					return nil, status.Error(codes.Unimplemented, name)
				}
				return h(ctx, in)
			},
		})
	}
	return sd
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func newTestClient(t *testing.T, handlers map[string]handlerFunc) (*Client, *fakeSidecar) {
	t.Helper()

	fake := &fakeSidecar{handlers: handlers, requests: make(map[string][]*structpb.Struct)}
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(fake.desc(), fake)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cfg := DefaultConfig("passthrough:///bufnet")
	c, err := New(cfg, nil, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, fake
}

func TestRetrieve(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, map[string]handlerFunc{
		"Retrieve": func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{"items": []any{
				map[string]any{"text": "Can you share more about that?", "stage": "connect"},
				map[string]any{"text": "How is that impacting your team right now?", "stage": "problem"},
				map[string]any{"text": ""},
			}})
		},
	})

	items, err := c.Retrieve(context.Background(), "we are frustrated", domain.StageProblem, 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(items) != 1 || items[0].Stage != domain.StageProblem {
		t.Fatalf("expected stage-filtered item, got %+v", items)
	}

	req := fake.last("Retrieve").GetFields()
	if req["query"].GetStringValue() != "we are frustrated" || req["top_k"].GetNumberValue() != 5 || req["stage"].GetStringValue() != "problem" {
		t.Fatalf("unexpected request %v", req)
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, map[string]handlerFunc{
		"Rerank": func(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			n := len(in.GetFields()["candidates"].GetListValue().GetValues())
			scores := make([]any, n)
			for i := range scores {
				scores[i] = float64(i)
			}
			return structpb.NewStruct(map[string]any{"scores": scores})
		},
	})

	scores, err := c.Score(context.Background(), "q", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scores) != 3 || scores[2] != 2 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestScoreRejectsMismatchedLength(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, map[string]handlerFunc{
		"Rerank": func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{"scores": []any{1.0}})
		},
	})
	if _, err := c.Score(context.Background(), "q", []string{"a", "b"}); !errors.Is(err, errMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, map[string]handlerFunc{
		"Generate": func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{"lines": []any{"What changed recently?", ""}})
		},
	})

	lines, err := c.Generate(context.Background(), collab.GenerateRequest{Prompt: "p", Retrieved: []string{"r"}, Count: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(lines) != 1 || lines[0] != "What changed recently?" {
		t.Fatalf("unexpected lines %v", lines)
	}
	if got := fake.last("Generate").GetFields()["retrieved"].GetListValue().GetValues(); len(got) != 1 {
		t.Fatalf("expected retrieved lines forwarded, got %v", got)
	}
}

func TestSpeechStream(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, map[string]handlerFunc{
		"OpenAudioStream": func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{"stream_id": "s-1"})
		},
		"AcceptAudio": func(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			if in.GetFields()["stream_id"].GetStringValue() != "s-1" {
				return nil, status.Error(codes.NotFound, "unknown stream")
			}
			return structpb.NewStruct(map[string]any{"partial": "we need"})
		},
		"CloseAudioStream": func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return &structpb.Struct{}, nil
		},
	})

	stream, err := c.NewStream(context.Background())
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	res, err := stream.Accept(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res.Text() != "we need" {
		t.Fatalf("unexpected transcription %+v", res)
	}

	pcm := fake.last("AcceptAudio").GetFields()["pcm"].GetStringValue()
	if decoded, _ := base64.StdEncoding.DecodeString(pcm); len(decoded) != 3 {
		t.Fatalf("expected base64 pcm, got %q", pcm)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	fake.mu.Lock()
	closes := len(fake.requests["CloseAudioStream"])
	fake.mu.Unlock()
	if closes != 1 {
		t.Fatalf("expected one close call, got %d", closes)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		resp    map[string]any
		err     error
		want    collab.FaceResult
		wantErr error
	}{
		{
			name: "centered face",
			resp: map[string]any{"face_present": true, "box": map[string]any{"x": 0.4, "y": 0.4, "w": 0.2, "h": 0.2}},
			want: collab.FaceResult{FacePresent: true, GazeScore: 1},
		},
		{
			name: "no face",
			resp: map[string]any{"face_present": false},
			want: collab.FaceResult{},
		},
		{
			name:    "undecodable",
			err:     status.Error(codes.InvalidArgument, "cannot decode image"),
			wantErr: collab.ErrUndecodableFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newTestClient(t, map[string]handlerFunc{
				"AnalyzeFrame": func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return mustStruct(t, tt.resp), nil
				},
			})

			got, err := c.Analyze(context.Background(), []byte("frame"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if got.FacePresent != tt.want.FacePresent || got.GazeScore < tt.want.GazeScore-1e-9 || got.GazeScore > tt.want.GazeScore+1e-9 {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewFailsFastOnUnreachableSidecar(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig("passthrough:///unreachable")
	cfg.ConnectTimeout = 100 * time.Millisecond
	_, err := New(cfg, nil, grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}))
	if err == nil {
		t.Fatal("expected readiness failure")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
