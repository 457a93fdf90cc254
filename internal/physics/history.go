package physics

import "math"

// HistoryBuffer keeps the most recent states for one entity in a fixed-size
// ring with FIFO eviction.
type HistoryBuffer struct {
	data  []State
	head  int
	count int
}

// NewHistoryBuffer constructs a buffer holding at most capacity states.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryBuffer{data: make([]State, capacity)}
}

// Capacity reports the maximum number of retained states.
func (b *HistoryBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Len reports the number of retained states.
func (b *HistoryBuffer) Len() int {
	if b == nil {
		return 0
	}
	return b.count
}

// Push appends a state, evicting the oldest entry once full.
func (b *HistoryBuffer) Push(state State) {
	if b == nil {
		return
	}
	idx := (b.head + b.count) % len(b.data)
	b.data[idx] = state
	if b.count < len(b.data) {
		b.count++
		return
	}
	b.head = (b.head + 1) % len(b.data)
}

// Latest returns the most recently pushed state.
func (b *HistoryBuffer) Latest() (State, bool) {
	if b == nil || b.count == 0 {
		return State{}, false
	}
	idx := (b.head + b.count - 1) % len(b.data)
	return b.data[idx], true
}

// States copies the retained states in chronological order.
func (b *HistoryBuffer) States() []State {
	if b == nil || b.count == 0 {
		return nil
	}
	out := make([]State, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.data[(b.head+i)%len(b.data)]
	}
	return out
}

// Closest returns the retained state whose timestamp has the minimum absolute
// difference to the target. Single nearest-sample semantics, no blending.
func (b *HistoryBuffer) Closest(timestamp float64) (State, bool) {
	if b == nil || b.count == 0 {
		return State{}, false
	}
	best := b.data[b.head]
	bestDiff := math.Abs(best.Timestamp - timestamp)
	for i := 1; i < b.count; i++ {
		candidate := b.data[(b.head+i)%len(b.data)]
		diff := math.Abs(candidate.Timestamp - timestamp)
		if diff < bestDiff {
			best = candidate
			bestDiff = diff
		}
	}
	return best, true
}

// TrimOlderThan drops states with a timestamp before cutoff and reports how
// many were removed. Entries are time-ordered, so eviction stops at the first
// survivor.
func (b *HistoryBuffer) TrimOlderThan(cutoff float64) int {
	if b == nil {
		return 0
	}
	removed := 0
	for b.count > 0 {
		oldest := b.data[b.head]
		if oldest.Timestamp >= cutoff {
			break
		}
		b.head = (b.head + 1) % len(b.data)
		b.count--
		removed++
	}
	return removed
}

// InputRecord retains one raw input sample for replay-on-correction.
type InputRecord struct {
	Data      []byte
	Timestamp float64
}

// InputBuffer keeps the most recent raw inputs for one entity, FIFO like the
// state history.
type InputBuffer struct {
	data  []InputRecord
	head  int
	count int
}

func NewInputBuffer(capacity int) *InputBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &InputBuffer{data: make([]InputRecord, capacity)}
}

func (b *InputBuffer) Len() int {
	if b == nil {
		return 0
	}
	return b.count
}

// Push appends a record, copying the raw bytes so callers can reuse their
// buffers.
func (b *InputBuffer) Push(record InputRecord) {
	if b == nil {
		return
	}
	if len(record.Data) > 0 {
		record.Data = append([]byte(nil), record.Data...)
	}
	idx := (b.head + b.count) % len(b.data)
	b.data[idx] = record
	if b.count < len(b.data) {
		b.count++
		return
	}
	b.head = (b.head + 1) % len(b.data)
}

// Records copies the retained inputs in chronological order.
func (b *InputBuffer) Records() []InputRecord {
	if b == nil || b.count == 0 {
		return nil
	}
	out := make([]InputRecord, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.data[(b.head+i)%len(b.data)]
	}
	return out
}
