package memrepo

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-auth-client/sessions"
)

// InMemorySessionRepo keeps session records for the lifetime of the process
type InMemorySessionRepo struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ sessions.Repo = (*InMemorySessionRepo)(nil)

func New() *InMemorySessionRepo {
	return &InMemorySessionRepo{
		records: make(map[string][]byte),
	}
}

func (r *InMemorySessionRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (r *InMemorySessionRepo) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy so later changes by the caller do not leak in
	r.records[key] = append([]byte(nil), value...)
	return nil
}

func (r *InMemorySessionRepo) Delete(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, key)
	return nil
}
