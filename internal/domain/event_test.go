package domain

import (
	"errors"
	"testing"
)

func TestDecodeTranscript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   string
		wantField string
		want      ConversationEvent
	}{
		{
			name:    "rep message",
			payload: `{"speaker":"rep","text":"How are things?","timestamp_ms":1000}`,
			want:    ConversationEvent{Speaker: SpeakerRep, Text: "How are things?", TimestampMs: 1000},
		},
		{
			name:    "prospect alias",
			payload: `{"speaker":"prospect","text":"Busy.","timestamp_ms":5}`,
			want:    ConversationEvent{Speaker: SpeakerCounterpart, Text: "Busy.", TimestampMs: 5},
		},
		{name: "malformed json", payload: `{"speaker":`, wantField: "body"},
		{name: "missing speaker", payload: `{"text":"hi","timestamp_ms":1}`, wantField: "speaker"},
		{name: "unknown speaker", payload: `{"speaker":"bot","text":"hi","timestamp_ms":1}`, wantField: "speaker"},
		{name: "padded speaker", payload: `{"speaker":" rep ","text":"hi","timestamp_ms":1}`, wantField: "speaker"},
		{name: "uppercase speaker", payload: `{"speaker":"REP","text":"hi","timestamp_ms":1}`, wantField: "speaker"},
		{name: "capitalized counterpart", payload: `{"speaker":"Counterpart","text":"hi","timestamp_ms":1}`, wantField: "speaker"},
		{name: "empty text", payload: `{"speaker":"rep","text":"","timestamp_ms":1}`, wantField: "text"},
		{name: "blank text", payload: `{"speaker":"rep","text":"   ","timestamp_ms":1}`, wantField: "text"},
		{name: "missing timestamp", payload: `{"speaker":"rep","text":"hi"}`, wantField: "timestamp_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeTranscript([]byte(tt.payload))
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Fatalf("got %+v, want %+v", got, tt.want)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Fatalf("expected field %q, got %q", tt.wantField, verr.Field)
			}
		})
	}
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"meeting_booked", "follow_up", "lost"} {
		if _, err := ParseOutcome(s); err != nil {
			t.Fatalf("ParseOutcome(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseOutcome("invalid_value"); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
	if OutcomeLost.IsWin() {
		t.Fatal("lost must not be a win")
	}
	if !OutcomeFollowUp.IsWin() || !OutcomeMeetingBooked.IsWin() {
		t.Fatal("follow_up and meeting_booked must be wins")
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	t.Parallel()

	s := SeedSnapshot(42)
	c := s.Clone()
	c.Suggestions[0] = "changed"
	if s.Suggestions[0] != WelcomeSuggestion {
		t.Fatalf("clone shares suggestions with original: %q", s.Suggestions[0])
	}
}
