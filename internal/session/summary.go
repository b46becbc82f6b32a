package session

import (
	"fmt"
	"strings"

	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/perception"
)

// Summary renders the published metrics and the recent transcript as plain
// text.
func (c *Coordinator) Summary() string {
	// Both reads under mu so metrics and transcript come from one state.
	c.mu.Lock()
	snap := c.Snapshot()
	recent := c.perception.RecentMessages(perception.SummaryWindow)
	c.mu.Unlock()

	return renderSummary(snap, recent)
}

func renderSummary(snap domain.Snapshot, recent []domain.ConversationEvent) string {
	var b strings.Builder
	b.WriteString("Call summary\n")
	fmt.Fprintf(&b, "Stage: %s\n", snap.Stage)
	fmt.Fprintf(&b, "Talk to listen: %.2f\n", snap.TalkListenRatio)
	fmt.Fprintf(&b, "Sentiment: %.2f\n", snap.Sentiment)
	b.WriteString("Recent transcript:")
	for _, ev := range recent {
		fmt.Fprintf(&b, "\n- %s: %s", ev.Speaker, ev.Text)
	}
	return b.String()
}
