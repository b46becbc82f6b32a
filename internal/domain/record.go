package domain

import "time"

// CallRecord archives the end state of a conversation when its outcome
// is reported.
type CallRecord struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Outcome     Outcome   `json:"outcome"`
	Suggestions []string  `json:"suggestions"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
}
