// Package ranking implements the count-based suggestion ranker.
package ranking

import (
	"cmp"
	"container/list"
	"slices"

	"github.com/ashureev/coachpad/internal/domain"
)

// neutralScore is the prior for lines that were never shown.
const neutralScore = 0.5

// Entry tracks exposure and success of one suggestion line.
type Entry struct {
	Text       string `json:"text"`
	TimesShown int    `json:"times_shown"`
	TimesWon   int    `json:"times_won"`
}

// Score is the observed win rate, or the neutral prior when unseen.
func (e Entry) Score() float64 {
	if e.TimesShown == 0 {
		return neutralScore
	}
	return float64(e.TimesWon) / float64(e.TimesShown)
}

// Learner ranks suggestion lines by their historical win rate. Entries are
// keyed by exact text. With a positive capacity the table is bounded and
// the least recently shown entry is evicted first.
//
// Learner is not safe for concurrent use; the owning coordinator
// serializes access.
type Learner struct {
	capacity int
	entries  map[string]*list.Element // text -> element holding *Entry
	order    *list.List               // front = least recently shown
}

// NewLearner creates a learner. capacity <= 0 means unbounded.
func NewLearner(capacity int) *Learner {
	return &Learner{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Rank orders lines by (score, text) descending. Equal scores put the
// lexically greater text first.
func (l *Learner) Rank(lines []string) []string {
	type scored struct {
		score float64
		line  string
	}
	items := make([]scored, len(lines))
	for i, line := range lines {
		s := neutralScore
		if el, ok := l.entries[line]; ok {
			s = el.Value.(*Entry).Score()
		}
		items[i] = scored{score: s, line: line}
	}
	slices.SortStableFunc(items, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(b.line, a.line)
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.line
	}
	return out
}

// RegisterShown increments the exposure count of each distinct line once.
func (l *Learner) RegisterShown(lines []string) {
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}

		e := l.touch(line)
		e.TimesShown++
	}
}

// ApplyOutcome credits exactly one win to every line when the outcome is a
// win. lines must be the set that was actually shown. A line without an
// entry is created at 0/0. A win on a line that already won every time it
// was shown also counts one more show, so TimesWon never exceeds TimesShown.
func (l *Learner) ApplyOutcome(lines []string, outcome domain.Outcome) {
	win := outcome.IsWin()
	for _, line := range lines {
		e, ok := l.lookup(line)
		if !ok {
			e = l.touch(line)
		}
		if !win {
			continue
		}
		if e.TimesWon >= e.TimesShown {
			e.TimesShown++
		}
		e.TimesWon++
	}
}

// Entry returns a copy of the entry for text.
func (l *Learner) Entry(text string) (Entry, bool) {
	e, ok := l.lookup(text)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns copies of all entries, least recently shown first.
func (l *Learner) Entries() []Entry {
	out := make([]Entry, 0, l.order.Len())
	for el := l.order.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*Entry))
	}
	return out
}

// Len returns the number of tracked lines.
func (l *Learner) Len() int {
	return len(l.entries)
}

func (l *Learner) lookup(text string) (*Entry, bool) {
	el, ok := l.entries[text]
	if !ok {
		return nil, false
	}
	return el.Value.(*Entry), true
}

// touch returns the entry for text, creating it if needed, and marks it
// most recently shown.
func (l *Learner) touch(text string) *Entry {
	if el, ok := l.entries[text]; ok {
		l.order.MoveToBack(el)
		return el.Value.(*Entry)
	}

	e := &Entry{Text: text}
	l.entries[text] = l.order.PushBack(e)
	for l.capacity > 0 && l.order.Len() > l.capacity {
		oldest := l.order.Front()
		l.order.Remove(oldest)
		delete(l.entries, oldest.Value.(*Entry).Text)
	}
	return e
}
