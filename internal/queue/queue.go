// Package queue holds the bounded FIFO buffer between logging call
// sites and the delivery worker. Enqueue is called concurrently from any
// number of goroutines; Drain is called by the single delivery worker.
package queue

import (
	"sync"

	"logship/internal/models"
)

// Queue is a capacity-bounded FIFO of log records. When full, new
// records are rejected (oldest are preserved) so that a slow or dead
// collector sheds the freshest load instead of blocking producers.
type Queue struct {
	mu         sync.Mutex
	records    []models.LogRecord
	capacity   int
	nextSerial uint64
	dropped    uint64
}

// New creates a queue holding at most capacity records.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		records:  make([]models.LogRecord, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue appends the record and stamps its serial number. It returns
// false when the queue is full; the record is then discarded and the
// dropped counter incremented. Never blocks.
func (q *Queue) Enqueue(rec models.LogRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Dropped records consume a serial number too, so the collector can
	// see the gap.
	rec.SerialNo = q.nextSerial
	q.nextSerial++

	if len(q.records) >= q.capacity {
		q.dropped++
		return false
	}
	q.records = append(q.records, rec)
	return true
}

// Drain removes and returns up to max records in FIFO order.
func (q *Queue) Drain(max int) []models.LogRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 || max <= 0 {
		return nil
	}
	n := max
	if n > len(q.records) {
		n = len(q.records)
	}
	out := make([]models.LogRecord, n)
	copy(out, q.records[:n])
	remaining := copy(q.records, q.records[n:])
	q.records = q.records[:remaining]
	return out
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Dropped returns the cumulative number of records rejected on overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
