package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

type captureStore struct {
	SQLiteAdapter // unused embedded methods satisfy ports.Storage

	mu      sync.Mutex
	batches [][]domain.Threat
}

func (c *captureStore) SaveThreatsBatch(threats []domain.Threat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, threats)
	return nil
}

func (c *captureStore) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestThreatWriterFlushesOnShutdown(t *testing.T) {
	store := &captureStore{}
	w := NewThreatWriter(store, 16, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	w.Enqueue(testThreat("dev1", domain.ThreatIMSICatcherSuspected, time.Now()))
	w.Enqueue(testThreat("dev2", domain.ThreatIMSICatcherSuspected, time.Now()))

	// Let the loop drain the queue before cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.Eventually(t, func() bool { return store.total() == 2 },
		time.Second, 10*time.Millisecond)
}

func TestThreatWriterDeduplicatesByID(t *testing.T) {
	store := &captureStore{}
	w := NewThreatWriter(store, 16, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	threat := testThreat("dev1", domain.ThreatIMSICatcherSuspected, time.Now())
	w.Enqueue(threat)
	w.Enqueue(threat)

	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.Eventually(t, func() bool { return store.total() == 1 },
		time.Second, 10*time.Millisecond)
}
