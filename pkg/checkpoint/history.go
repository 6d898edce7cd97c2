package checkpoint

import (
	"fmt"
	"time"
)

// DefaultHistorySize is the number of recent checkpoints retained when no
// size is configured.
const DefaultHistorySize = 10

// pendingEntry locates a pending checkpoint independently of the bounded
// sequence, so it can still be resolved after its slot was evicted.
type pendingEntry struct {
	triggeredAt time.Time
	seq         uint64
}

// History retains the most recent checkpoints in trigger order, plus the
// latest completed, savepoint and failed records. The latest-of-kind records
// are stored separately and survive eviction from the sequence.
//
// History is not safe for concurrent use; Tracker serialises access to it.
type History struct {
	pending map[int64]pendingEntry

	latestCompleted *Record
	latestSavepoint *Record
	latestFailed    *Record

	// slots is a ring indexed by seq % capacity.
	slots    []Record
	next     uint64
	capacity int
}

// NewHistory creates a history retaining at most capacity checkpoints.
// A capacity of zero retains no sequence but still tracks latest-of-kind
// records. NewHistory panics on a negative capacity.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		panic("checkpoint: negative history capacity")
	}

	return &History{
		pending:  make(map[int64]pendingEntry),
		slots:    make([]Record, capacity),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of retained checkpoints.
func (h *History) Capacity() int { return h.capacity }

// Len returns the number of checkpoints currently in the sequence.
func (h *History) Len() int {
	return int(min(h.next, uint64(h.capacity)))
}

// RecordTriggered appends a pending record for id, evicting the oldest entry
// when the sequence is full.
func (h *History) RecordTriggered(id int64, triggeredAt time.Time) error {
	if _, ok := h.pending[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateCheckpoint, id)
	}

	seq := h.next
	h.next++

	h.pending[id] = pendingEntry{triggeredAt: triggeredAt, seq: seq}

	if h.capacity > 0 {
		h.slots[h.slot(seq)] = pendingRecord(id, triggeredAt)
	}

	return nil
}

// RecordCompleted resolves the pending checkpoint id as completed. The
// sequence entry is replaced only while it is still retained; the latest
// completed and savepoint records are updated either way.
func (h *History) RecordCompleted(id int64, completion Completion) (Record, error) {
	entry, ok := h.pending[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownCheckpoint, id)
	}

	delete(h.pending, id)

	rec := completedRecord(id, entry.triggeredAt, completion)
	h.replace(entry.seq, rec)

	if newer(h.latestCompleted, id) {
		h.latestCompleted = &rec
	}

	if rec.Savepoint && newer(h.latestSavepoint, id) {
		h.latestSavepoint = &rec
	}

	return rec, nil
}

// RecordFailed resolves the pending checkpoint id as failed, with the same
// retention rules as RecordCompleted.
func (h *History) RecordFailed(id int64, cause string, failedAt time.Time) (Record, error) {
	entry, ok := h.pending[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownCheckpoint, id)
	}

	delete(h.pending, id)

	rec := failedRecord(id, entry.triggeredAt, cause, failedAt)
	h.replace(entry.seq, rec)

	if newer(h.latestFailed, id) {
		h.latestFailed = &rec
	}

	return rec, nil
}

// Entries returns a copy of the retained sequence, oldest first.
func (h *History) Entries() []Record {
	n := h.Len()
	out := make([]Record, 0, n)

	for seq := h.next - uint64(n); seq < h.next; seq++ {
		out = append(out, h.slots[h.slot(seq)])
	}

	return out
}

// LatestCompleted returns the completed checkpoint with the highest id.
func (h *History) LatestCompleted() (Record, bool) { return deref(h.latestCompleted) }

// LatestSavepoint returns the completed savepoint with the highest id.
func (h *History) LatestSavepoint() (Record, bool) { return deref(h.latestSavepoint) }

// LatestFailed returns the failed checkpoint with the highest id.
func (h *History) LatestFailed() (Record, bool) { return deref(h.latestFailed) }

func (h *History) slot(seq uint64) int {
	return int(seq % uint64(h.capacity))
}

// replace overwrites the slot of seq if it has not been evicted yet.
func (h *History) replace(seq uint64, rec Record) {
	if h.capacity == 0 || h.next-seq > uint64(h.capacity) {
		return
	}

	h.slots[h.slot(seq)] = rec
}

func newer(current *Record, id int64) bool {
	return current == nil || id > current.ID
}

func deref(rec *Record) (Record, bool) {
	if rec == nil {
		return Record{}, false
	}

	return *rec, true
}
