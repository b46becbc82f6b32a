package domain

import "fmt"

// Outcome is the reported result of a conversation.
type Outcome string

const (
	OutcomeMeetingBooked Outcome = "meeting_booked"
	OutcomeFollowUp      Outcome = "follow_up"
	OutcomeLost          Outcome = "lost"
)

// ParseOutcome validates a wire value.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeMeetingBooked, OutcomeFollowUp, OutcomeLost:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}

// IsWin reports whether the outcome rewards the suggestions that were shown.
func (o Outcome) IsWin() bool {
	return o == OutcomeMeetingBooked || o == OutcomeFollowUp
}
