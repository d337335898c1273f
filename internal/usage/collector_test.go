package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockStore records all batches that were inserted.
type mockStore struct {
	mu       sync.Mutex
	batches  [][]CounterRecord
	insertFn func(ctx context.Context, recs []CounterRecord) error
}

func (m *mockStore) BatchInsert(ctx context.Context, recs []CounterRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, recs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]CounterRecord, len(recs))
	copy(cp, recs)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *mockStore) totalInserted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func sampleRecord(rng string) CounterRecord {
	return CounterRecord{
		KBTitleID:         uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		UsageDateRange:    rng,
		TotalAccessCount:  5,
		UniqueAccessCount: 3,
	}
}

func TestCollector_RecordAddsToBuffer(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, time.Hour) // large batch size, long interval

	c.Record(sampleRecord("[2020-01-01,2020-02-01)"))
	c.Record(sampleRecord("[2020-02-01,2020-03-01)"))

	if c.BufferLen() != 2 {
		t.Fatalf("expected buffer length 2, got %d", c.BufferLen())
	}
	if ms.totalInserted() != 0 {
		t.Fatalf("expected 0 inserted before flush, got %d", ms.totalInserted())
	}
}

func TestCollector_FlushOnBatchSize(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		records   int
		wantFlush int
	}{
		{
			name:      "exact batch size triggers flush",
			batchSize: 3,
			records:   3,
			wantFlush: 3,
		},
		{
			name:      "under batch size does not flush",
			batchSize: 5,
			records:   3,
			wantFlush: 0,
		},
		{
			name:      "double batch size triggers two flushes",
			batchSize: 2,
			records:   4,
			wantFlush: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockStore{}
			c := NewCollector(ms, tt.batchSize, time.Hour)
			for i := 0; i < tt.records; i++ {
				c.Record(sampleRecord("[2020-01-01,2020-02-01)"))
			}
			if got := ms.totalInserted(); got != tt.wantFlush {
				t.Fatalf("expected %d flushed, got %d", tt.wantFlush, got)
			}
		})
	}
}

func TestCollector_RecordBatchFlushesOnce(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 3, time.Hour)

	c.Record(
		sampleRecord("[2020-01-01,2020-02-01)"),
		sampleRecord("[2020-02-01,2020-03-01)"),
		sampleRecord("[2020-03-01,2020-04-01)"),
	)

	if got := ms.totalInserted(); got != 3 {
		t.Fatalf("expected 3 flushed, got %d", got)
	}
	ms.mu.Lock()
	n := len(ms.batches)
	ms.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected a single batch, got %d", n)
	}
}

func TestCollector_StopFlushesRemainder(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, time.Hour)

	c.Record(sampleRecord("[2020-01-01,2020-02-01)"))

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()
	c.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
	if got := ms.totalInserted(); got != 1 {
		t.Fatalf("expected 1 flushed on stop, got %d", got)
	}
}
