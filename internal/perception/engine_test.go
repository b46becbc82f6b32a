package perception

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/ashureev/coachpad/internal/domain"
)

func rep(text string, ts int64) domain.ConversationEvent {
	return domain.ConversationEvent{Speaker: domain.SpeakerRep, Text: text, TimestampMs: ts}
}

func counterpart(text string, ts int64) domain.ConversationEvent {
	return domain.ConversationEvent{Speaker: domain.SpeakerCounterpart, Text: text, TimestampMs: ts}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestHistoryBoundedFIFO(t *testing.T) {
	t.Parallel()

	e := NewEngine(3)
	for i := 0; i < 10; i++ {
		e.Ingest(rep("line "+strconv.Itoa(i), int64(i)))
		if e.HistoryLen() > 3 {
			t.Fatalf("history exceeded capacity: %d", e.HistoryLen())
		}
	}

	got := e.RecentMessages(10)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, want := range []string{"line 7", "line 8", "line 9"} {
		if got[i].Text != want {
			t.Fatalf("message %d: got %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestHistoryKeepsArrivalOrder(t *testing.T) {
	t.Parallel()

	h := NewHistory(4)
	h.Append(rep("late", 500))
	h.Append(rep("early", 100))

	got := h.All()
	if got[0].Text != "late" || got[1].Text != "early" {
		t.Fatalf("expected arrival order, got %+v", got)
	}
}

func TestSentimentEmptyIsZero(t *testing.T) {
	t.Parallel()

	if got := NewEngine(50).Sentiment(); got != 0.0 {
		t.Fatalf("expected 0.0, got %v", got)
	}
}

func TestSentimentMeanOverWindow(t *testing.T) {
	t.Parallel()

	e := NewEngine(50)
	e.Ingest(counterpart("Yes, that sounds great!", 1))
	e.Ingest(counterpart("Nothing to add", 2))
	e.Ingest(counterpart("Not sure", 3))

	// +1, 0, and (1-1)/2 = 0.
	if got := e.Sentiment(); !approxEqual(got, 1.0/3.0) {
		t.Fatalf("expected 1/3, got %v", got)
	}
}

func TestTalkListenRatioWithoutCounterpart(t *testing.T) {
	t.Parallel()

	e := NewEngine(50)
	e.Ingest(rep("one two three", 1))
	if got := e.TalkListenRatio(); got != 3 {
		t.Fatalf("expected raw rep word count 3, got %v", got)
	}
}

func TestQuestionsPerMinute(t *testing.T) {
	t.Parallel()

	e := NewEngine(50)
	if got := e.QuestionsPerMinute(); got != 0 {
		t.Fatalf("expected 0 before first event, got %v", got)
	}

	start := time.UnixMilli(1_000_000)
	e.SetClock(func() time.Time { return start.Add(2 * time.Minute) })
	e.Ingest(rep("Why? How? When?", start.UnixMilli()))
	e.Ingest(counterpart("What?", start.UnixMilli()+10))

	if got := e.QuestionsPerMinute(); !approxEqual(got, 1.5) {
		t.Fatalf("expected 1.5 questions per minute, got %v", got)
	}

	e.SetClock(func() time.Time { return start.Add(-time.Minute) })
	if got := e.QuestionsPerMinute(); got != 0 {
		t.Fatalf("expected 0 for non-positive elapsed time, got %v", got)
	}
}

func TestStage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []string
		want  domain.Stage
	}{
		{name: "no keywords", lines: []string{"hello there", "ok"}, want: domain.StageConnect},
		{name: "situation", lines: []string{"we currently use spreadsheets"}, want: domain.StageSituation},
		{name: "problem", lines: []string{"the pain is real"}, want: domain.StageProblem},
		{name: "awareness", lines: []string{"what is the impact"}, want: domain.StageAwareness},
		{name: "closing", lines: []string{"what is the next step"}, want: domain.StageClosing},
		{name: "priority beats later stages", lines: []string{"the decision has an impact on our workflow"}, want: domain.StageSituation},
		{name: "substring match", lines: []string{"a frustrated team"}, want: domain.StageProblem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewEngine(50)
			for i, line := range tt.lines {
				e.Ingest(counterpart(line, int64(i)))
			}
			if got := e.Stage(); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStageOnlyLooksAtRecentWindow(t *testing.T) {
	t.Parallel()

	e := NewEngine(50)
	e.Ingest(counterpart("that is a real problem", 0))
	for i := 1; i <= ContextWindow; i++ {
		e.Ingest(counterpart("hmm", int64(i)))
	}
	if got := e.Stage(); got != domain.StageConnect {
		t.Fatalf("expected connect once keyword left the window, got %q", got)
	}
}

func TestEngagementAdjustments(t *testing.T) {
	t.Parallel()

	e := NewEngine(50)
	if got := e.Engagement(); !approxEqual(got, 0.65) {
		// ratio 0 < 0.8 adds 0.05
		t.Fatalf("expected 0.65 for empty session, got %v", got)
	}

	e.Ingest(rep("one two three four five six seven", 1))
	e.Ingest(counterpart("no never bad", 2))
	// sentiment = (0 + -1) / 2 = -0.5; ratio = 7/3 > 2.
	if got := e.Engagement(); !approxEqual(got, 0.3) {
		t.Fatalf("expected 0.3, got %v", got)
	}
}

func TestScenarioBudgetObjection(t *testing.T) {
	t.Parallel()

	e := NewEngine(50)
	t0 := time.Now().UnixMilli()
	e.Ingest(rep("Thanks for your time today", t0))
	e.Ingest(counterpart("We have no budget for this, it's too expensive", t0+1000))

	if got := e.TalkListenRatio(); !approxEqual(got, 5.0/9.0) {
		t.Fatalf("expected ratio 5/9, got %v", got)
	}
	if got := e.Sentiment(); got >= 0 {
		t.Fatalf("expected negative sentiment, got %v", got)
	}
	if got := e.Stage(); got != domain.StageConnect {
		t.Fatalf("expected connect, got %q", got)
	}
}

func TestRecentContext(t *testing.T) {
	t.Parallel()

	e := NewEngine(50)
	for i := 0; i < 8; i++ {
		e.Ingest(rep(strconv.Itoa(i), int64(i)))
	}
	got := e.RecentContext(ContextWindow)
	if len(got) != ContextWindow || got[0] != "2" || got[5] != "7" {
		t.Fatalf("unexpected context: %v", got)
	}
}
