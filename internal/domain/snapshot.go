package domain

// WelcomeSuggestion seeds the first snapshot of every session.
const WelcomeSuggestion = "Welcome. Start with an open question."

// Snapshot is the published metrics value observers read. A published
// snapshot is never mutated; updates publish a new one.
type Snapshot struct {
	TalkListenRatio    float64  `json:"talk_listen_ratio"`
	QuestionsPerMinute float64  `json:"questions_per_minute"`
	Sentiment          float64  `json:"sentiment"`
	Engagement         float64  `json:"engagement"`
	Stage              Stage    `json:"methodology_stage"`
	Suggestions        []string `json:"say_next"`
	LastUpdateMs       int64    `json:"last_update_ms"`
}

// SeedSnapshot is the state of a session before any input arrives.
func SeedSnapshot(nowMs int64) Snapshot {
	return Snapshot{
		Engagement:   0.6,
		Stage:        StageConnect,
		Suggestions:  []string{WelcomeSuggestion},
		LastUpdateMs: nowMs,
	}
}

// Clone returns a copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Suggestions != nil {
		out.Suggestions = append([]string(nil), s.Suggestions...)
	}
	return out
}
