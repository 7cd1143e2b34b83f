package agent

import "time"

// TransitionRecord is an append-only history entry for a state change.
type TransitionRecord struct {
	FromState   State     `json:"fromState"`
	ToState     State     `json:"toState"`
	Trigger     string    `json:"trigger"`
	Timestamp   time.Time `json:"timestamp"`
	RoundNumber int       `json:"roundNumber"`
}

// History is a fixed-capacity ring buffer of transition records.
// When full, appending evicts the oldest record.
type History struct {
	buf   []TransitionRecord
	start int
	size  int
}

// NewHistory creates a history holding at most capacity records.
// A capacity below one is treated as one.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]TransitionRecord, capacity)}
}

// Append adds a record, evicting the oldest one if the buffer is full.
func (h *History) Append(r TransitionRecord) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = r
		h.size++
		return
	}
	h.buf[h.start] = r
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored records.
func (h *History) Len() int {
	return h.size
}

// Cap returns the maximum number of stored records.
func (h *History) Cap() int {
	return len(h.buf)
}

// Records returns the stored records, oldest first.
func (h *History) Records() []TransitionRecord {
	out := make([]TransitionRecord, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Last returns the most recent record.
func (h *History) Last() (TransitionRecord, bool) {
	if h.size == 0 {
		return TransitionRecord{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}
