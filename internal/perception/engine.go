// Package perception derives conversation metrics from a bounded window of
// transcript events.
package perception

import (
	"strings"
	"time"

	"github.com/ashureev/coachpad/internal/domain"
)

const (
	// ContextWindow is the number of recent events used for stage and context.
	ContextWindow = 6
	// SummaryWindow is the number of recent events listed in summaries.
	SummaryWindow = 12

	baseEngagement = 0.6
)

// Counters are the cumulative, never-decremented word and question counts.
type Counters struct {
	RepWords         int
	CounterpartWords int
	RepQuestions     int
	FirstEventMs     int64
	HasFirstEvent    bool
}

// Engine holds the perception state of one session. It is not safe for
// concurrent use; the owning coordinator serializes access.
type Engine struct {
	history  *History
	counters Counters
	now      func() time.Time
}

// NewEngine creates an engine keeping at most maxHistory events.
func NewEngine(maxHistory int) *Engine {
	return &Engine{
		history: NewHistory(maxHistory),
		now:     time.Now,
	}
}

// SetClock overrides the wall clock used for rate metrics.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Ingest records one event.
func (e *Engine) Ingest(ev domain.ConversationEvent) {
	if !e.counters.HasFirstEvent {
		e.counters.FirstEventMs = ev.TimestampMs
		e.counters.HasFirstEvent = true
	}
	e.history.Append(ev)

	words := len(strings.Fields(ev.Text))
	if ev.Speaker == domain.SpeakerRep {
		e.counters.RepWords += words
		e.counters.RepQuestions += strings.Count(ev.Text, "?")
		return
	}
	e.counters.CounterpartWords += words
}

// Counters returns a copy of the cumulative counters.
func (e *Engine) Counters() Counters {
	return e.counters
}

// HistoryLen returns the number of events in the window.
func (e *Engine) HistoryLen() int {
	return e.history.Len()
}

// Sentiment is the mean per-event lexicon score over the whole window,
// in [-1, 1]. It is 0 for an empty window.
func (e *Engine) Sentiment() float64 {
	events := e.history.All()
	if len(events) == 0 {
		return 0.0
	}
	var total float64
	for _, ev := range events {
		total += eventSentiment(ev.Text)
	}
	return total / float64(len(events))
}

func eventSentiment(text string) float64 {
	var pos, neg int
	for _, tok := range strings.Fields(text) {
		tok = strings.ToLower(strings.TrimRight(tok, ".,!?;:"))
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}
	if pos == 0 && neg == 0 {
		return 0.0
	}
	return float64(pos-neg) / float64(max(pos+neg, 1))
}

// TalkListenRatio is rep words over counterpart words. With no counterpart
// words it degrades to the raw rep word count.
func (e *Engine) TalkListenRatio() float64 {
	if e.counters.CounterpartWords == 0 {
		return float64(e.counters.RepWords)
	}
	return float64(e.counters.RepWords) / float64(e.counters.CounterpartWords)
}

// QuestionsPerMinute is the rep question rate since the first event.
func (e *Engine) QuestionsPerMinute() float64 {
	if !e.counters.HasFirstEvent {
		return 0.0
	}
	elapsedMin := float64(e.now().UnixMilli()-e.counters.FirstEventMs) / 60000.0
	if elapsedMin <= 0 {
		return 0.0
	}
	return float64(e.counters.RepQuestions) / elapsedMin
}

// Stage classifies the recent conversation by scanning stageRules in
// priority order.
func (e *Engine) Stage() domain.Stage {
	recent := e.history.Last(ContextWindow)
	parts := make([]string, len(recent))
	for i, ev := range recent {
		parts[i] = strings.ToLower(ev.Text)
	}
	text := strings.Join(parts, " ")

	for _, rule := range stageRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.stage
			}
		}
	}
	return domain.StageConnect
}

// Engagement is the perception-only engagement score in [0, 1].
func (e *Engine) Engagement() float64 {
	sentiment := e.Sentiment()
	ratio := e.TalkListenRatio()

	score := baseEngagement
	if sentiment < -0.2 {
		score -= 0.2
	}
	if ratio > 2.0 {
		score -= 0.1
	}
	if ratio < 0.8 {
		score += 0.05
	}
	return clamp01(score)
}

// RecentContext returns the text of the last n events, oldest first.
func (e *Engine) RecentContext(n int) []string {
	recent := e.history.Last(n)
	out := make([]string, len(recent))
	for i, ev := range recent {
		out[i] = ev.Text
	}
	return out
}

// RecentMessages returns the last n events, oldest first.
func (e *Engine) RecentMessages(n int) []domain.ConversationEvent {
	return e.history.Last(n)
}

func clamp01(v float64) float64 {
	return max(0.0, min(1.0, v))
}
