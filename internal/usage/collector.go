package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchInserter is the interface used by Collector to persist COUNTER
// records. It exists to allow testing without a real database.
type BatchInserter interface {
	BatchInsert(ctx context.Context, recs []CounterRecord) error
}

// Collector buffers ingested COUNTER records in memory and periodically
// flushes them to the store in batches. It is safe for concurrent use.
type Collector struct {
	store         BatchInserter
	buffer        []CounterRecord
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}
	onFlush       func(count int, err error)
}

// NewCollector creates a Collector that flushes to the given store when the
// buffer reaches batchSize or every flushInterval, whichever comes first.
func NewCollector(store BatchInserter, batchSize int, flushInterval time.Duration) *Collector {
	return &Collector{
		store:         store,
		buffer:        make([]CounterRecord, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// OnFlush installs a callback invoked after every flush attempt with the
// batch size and outcome. Must be called before Start.
func (c *Collector) OnFlush(fn func(count int, err error)) {
	c.onFlush = fn
}

// Start begins a background goroutine that flushes buffered records on a
// timer. It blocks until Stop is called or the context is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-ctx.Done():
			c.flush()
			return
		case <-c.done:
			c.flush()
			return
		}
	}
}

// Record adds records to the buffer. If the buffer reaches batchSize, a
// flush is triggered immediately.
func (c *Collector) Record(recs ...CounterRecord) {
	c.mu.Lock()
	c.buffer = append(c.buffer, recs...)
	shouldFlush := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		c.flush()
	}
}

// BufferLen reports the number of records waiting to be flushed.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// flush drains all buffered records and writes them to the store. It logs
// errors rather than returning them so callers are not blocked.
func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]CounterRecord, 0, c.batchSize)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.store.BatchInsert(ctx, batch)
	if err != nil {
		slog.Error("failed to flush counter records", "count", len(batch), "error", err)
	}
	if c.onFlush != nil {
		c.onFlush(len(batch), err)
	}
}

// Stop signals the background goroutine to exit and performs a final flush.
func (c *Collector) Stop() {
	close(c.done)
}
