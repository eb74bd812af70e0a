package fakesessionrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory repo. The error fields let tests simulate
// an unavailable backend.
type FakeSessionRepo struct {
	values map[string][]byte
	lock   sync.RWMutex

	GetErr    error
	SetErr    error
	DeleteErr error
	Sets      int
	Deletes   int
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		values: make(map[string][]byte),
	}
}

func (sr *FakeSessionRepo) Get(_ context.Context, key string) ([]byte, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	if sr.GetErr != nil {
		return nil, sr.GetErr
	}
	value, ok := sr.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (sr *FakeSessionRepo) Set(_ context.Context, key string, value []byte) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.Sets++
	if sr.SetErr != nil {
		return sr.SetErr
	}
	sr.values[key] = append([]byte(nil), value...)
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, key string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.Deletes++
	if sr.DeleteErr != nil {
		return sr.DeleteErr
	}
	delete(sr.values, key)
	return nil
}

// Raw returns the stored bytes for key without going through the error hooks
func (sr *FakeSessionRepo) Raw(key string) ([]byte, bool) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	value, ok := sr.values[key]
	return value, ok
}

// Put seeds a value without counting it as a write
func (sr *FakeSessionRepo) Put(key string, value []byte) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.values[key] = value
}
