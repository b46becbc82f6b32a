package perception

import "github.com/ashureev/coachpad/internal/domain"

// defaultHistorySize matches the coach service's default window.
const defaultHistorySize = 50

// History is a fixed-capacity FIFO of conversation events. Once full, each
// append overwrites the oldest event. Arrival order is kept; events are
// never reordered by timestamp.
type History struct {
	buf  []domain.ConversationEvent
	size int
	head int // next write position
	n    int
}

// NewHistory creates a history holding at most size events.
func NewHistory(size int) *History {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &History{
		buf:  make([]domain.ConversationEvent, size),
		size: size,
	}
}

// Append adds ev, evicting the oldest event when full.
func (h *History) Append(ev domain.ConversationEvent) {
	h.buf[h.head] = ev
	h.head = (h.head + 1) % h.size
	if h.n < h.size {
		h.n++
	}
}

// Len returns the number of events held.
func (h *History) Len() int {
	return h.n
}

// Capacity returns the maximum number of events held.
func (h *History) Capacity() int {
	return h.size
}

// Last returns up to n most recent events, oldest first, as a new slice.
func (h *History) Last(n int) []domain.ConversationEvent {
	if n > h.n {
		n = h.n
	}
	if n <= 0 {
		return []domain.ConversationEvent{}
	}
	out := make([]domain.ConversationEvent, n)
	start := (h.head - n + h.size) % h.size
	for i := 0; i < n; i++ {
		out[i] = h.buf[(start+i)%h.size]
	}
	return out
}

// All returns every held event, oldest first.
func (h *History) All() []domain.ConversationEvent {
	return h.Last(h.n)
}
