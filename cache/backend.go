package cache

import (
	"context"
	"sync"

	standup "github.com/chimerakang/standup-go"
)

// Backend persists raw cache rows. Data is the JSON encoding of the cached
// value; timestamp is the write time in milliseconds.
type Backend interface {
	Load(ctx context.Context, p standup.Partition, key string) (data []byte, timestamp int64, ok bool, err error)
	Store(ctx context.Context, p standup.Partition, key string, data []byte, timestamp int64) error
	// Clear empties the given partitions.
	Clear(ctx context.Context, partitions ...standup.Partition) error
	Close() error
}

// nopBackend stands in when no persistent storage is available:
// every read misses and every write is dropped.
type nopBackend struct{}

func (nopBackend) Load(context.Context, standup.Partition, string) ([]byte, int64, bool, error) {
	return nil, 0, false, nil
}
func (nopBackend) Store(context.Context, standup.Partition, string, []byte, int64) error { return nil }
func (nopBackend) Clear(context.Context, ...standup.Partition) error               { return nil }
func (nopBackend) Close() error                                                     { return nil }

type row struct {
	data      []byte
	timestamp int64
}

// MemoryBackend keeps rows in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	rows map[standup.Partition]map[string]row
}

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Backend = nopBackend{}
)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{rows: make(map[standup.Partition]map[string]row)}
}

func (m *MemoryBackend) Load(_ context.Context, p standup.Partition, key string) ([]byte, int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[p][key]
	if !ok {
		return nil, 0, false, nil
	}
	return append([]byte(nil), r.data...), r.timestamp, true, nil
}

func (m *MemoryBackend) Store(_ context.Context, p standup.Partition, key string, data []byte, timestamp int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, ok := m.rows[p]
	if !ok {
		part = make(map[string]row)
		m.rows[p] = part
	}
	part[key] = row{data: append([]byte(nil), data...), timestamp: timestamp}
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context, partitions ...standup.Partition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range partitions {
		delete(m.rows, p)
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
