// Package domain defines the core conversation coaching types.
package domain

import (
	"encoding/json"
	"strings"
)

// Speaker identifies who said a line of the conversation.
type Speaker string

const (
	// SpeakerRep is the person being coached.
	SpeakerRep Speaker = "rep"
	// SpeakerCounterpart is the other side of the conversation.
	SpeakerCounterpart Speaker = "counterpart"

	// legacy clients send "prospect" for the counterpart.
	speakerProspectAlias = "prospect"
)

// ParseSpeaker maps a wire value onto a Speaker. Values are matched exactly.
func ParseSpeaker(s string) (Speaker, bool) {
	switch s {
	case string(SpeakerRep):
		return SpeakerRep, true
	case string(SpeakerCounterpart), speakerProspectAlias:
		return SpeakerCounterpart, true
	default:
		return "", false
	}
}

// ConversationEvent is one utterance of the conversation. It is never
// modified after creation.
type ConversationEvent struct {
	Speaker     Speaker `json:"speaker"`
	Text        string  `json:"text"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// Validate checks the event invariants.
func (e ConversationEvent) Validate() error {
	if e.Speaker != SpeakerRep && e.Speaker != SpeakerCounterpart {
		return &ValidationError{Field: "speaker", Reason: "must be one of rep, counterpart"}
	}
	if strings.TrimSpace(e.Text) == "" {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	return nil
}

// transcriptPayload mirrors the transcript channel message. Pointers
// distinguish missing fields from zero values.
type transcriptPayload struct {
	Speaker     *string `json:"speaker"`
	Text        *string `json:"text"`
	TimestampMs *int64  `json:"timestamp_ms"`
}

// DecodeTranscript parses and validates one transcript channel message.
// Failures are always *ValidationError.
func DecodeTranscript(data []byte) (ConversationEvent, error) {
	var p transcriptPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return ConversationEvent{}, &ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}
	}
	if p.Speaker == nil {
		return ConversationEvent{}, &ValidationError{Field: "speaker", Reason: "is required"}
	}
	speaker, ok := ParseSpeaker(*p.Speaker)
	if !ok {
		return ConversationEvent{}, &ValidationError{Field: "speaker", Reason: "must be one of rep, counterpart"}
	}
	if p.Text == nil {
		return ConversationEvent{}, &ValidationError{Field: "text", Reason: "is required"}
	}
	if p.TimestampMs == nil {
		return ConversationEvent{}, &ValidationError{Field: "timestamp_ms", Reason: "is required"}
	}

	ev := ConversationEvent{
		Speaker:     speaker,
		Text:        *p.Text,
		TimestampMs: *p.TimestampMs,
	}
	if err := ev.Validate(); err != nil {
		return ConversationEvent{}, err
	}
	return ev, nil
}
