package queryauth

import (
	"fmt"
	"net/url"
	"sync"

	standup "github.com/chimerakang/standup-go"
)

// MemoryStorage is an in-process per-tab key-value area.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ standup.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty storage area.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MemoryStorage) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// MemoryLocation is a Location held in memory. It records navigations
// instead of performing them.
type MemoryLocation struct {
	mu          sync.Mutex
	current     *url.URL
	replaced    int
	navigations []string
}

var _ standup.Location = (*MemoryLocation)(nil)

// NewLocation parses raw as the initial address.
func NewLocation(raw string) (*MemoryLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("standup/queryauth: parse location: %w", err)
	}
	return &MemoryLocation{current: u}, nil
}

func (l *MemoryLocation) URL() *url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := *l.current
	return &u
}

func (l *MemoryLocation) Replace(u *url.URL) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *u
	l.current = &c
	l.replaced++
}

func (l *MemoryLocation) Navigate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.navigations = append(l.navigations, path)
}

// Navigations returns every route passed to Navigate.
func (l *MemoryLocation) Navigations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.navigations...)
}

// Replacements counts calls to Replace.
func (l *MemoryLocation) Replacements() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replaced
}
