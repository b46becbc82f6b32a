// Command simulate replays a sample sales conversation into the transcript
// channel of a running coachpad server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/identity"
)

type line struct {
	speaker domain.Speaker
	text    string
}

var sampleDialog = []line{
	{domain.SpeakerRep, "Thanks for taking the time today. How are things going?"},
	{domain.SpeakerCounterpart, "Busy, we have a lot of manual steps in our process."},
	{domain.SpeakerRep, "What does your current workflow look like?"},
	{domain.SpeakerCounterpart, "We use spreadsheets and it slows us down."},
	{domain.SpeakerRep, "How is that impacting your team right now?"},
	{domain.SpeakerCounterpart, "It causes delays and people get frustrated."},
	{domain.SpeakerRep, "What happens if this stays the same for the next quarter?"},
}

type ack struct {
	Status     string `json:"status"`
	ReceivedMs int64  `json:"received_ms"`
	Field      string `json:"field,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

var (
	flagURL     string
	flagSession string
	flagDelay   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a sample conversation into a coachpad session",
	Long: `simulate connects to the transcript channel of a coachpad server and sends
a short discovery-call dialog one line at a time, waiting for each
acknowledgement. Open the dashboard with the same session id to watch the
snapshot evolve.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return replay(cmd.Context(), flagURL, flagSession, flagDelay)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagURL, "url", "ws://localhost:8000/ws/ingest", "transcript channel URL")
	rootCmd.Flags().StringVar(&flagSession, "session", identity.DefaultSessionIDValue, "session id to replay into")
	rootCmd.Flags().DurationVar(&flagDelay, "delay", 800*time.Millisecond, "pause between lines")
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func replay(ctx context.Context, url, sessionID string, delay time.Duration) error {
	header := http.Header{}
	header.Set(identity.SessionHeaderName, sessionID)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	ws, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{HTTPHeader: header})
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.CloseNow()

	slog.Info("Connected", "url", url, "session_id", sessionID)

	for i, l := range sampleDialog {
		event := domain.ConversationEvent{
			Speaker:     l.speaker,
			Text:        l.text,
			TimestampMs: time.Now().UnixMilli(),
		}
		if err := wsjson.Write(ctx, ws, event); err != nil {
			return fmt.Errorf("send line %d: %w", i+1, err)
		}

		var reply ack
		if err := wsjson.Read(ctx, ws, &reply); err != nil {
			return fmt.Errorf("read ack for line %d: %w", i+1, err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("line %d rejected: %s %s", i+1, reply.Field, reply.Reason)
		}
		slog.Info("Line accepted", "line", i+1, "speaker", l.speaker, "received_ms", reply.ReceivedMs)

		if i < len(sampleDialog)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	slog.Info("Replay complete", "lines", len(sampleDialog))
	return ws.Close(websocket.StatusNormalClosure, "done")
}
