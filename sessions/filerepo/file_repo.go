// Package filerepo persists session records as one file per key, the
// desktop equivalent of browser local storage.
package filerepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/pkg/errors"
)

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	dir string
}

// New stores records under dir, creating it on first write
func New(dir string) *Repo {
	return &Repo{dir: dir}
}

func (r *Repo) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid session key %q", key)
	}
	return filepath.Join(r.dir, key+".json"), nil
}

func (r *Repo) Get(_ context.Context, key string) ([]byte, error) {
	path, err := r.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[filerepo.Get]")
	}
	return data, nil
}

// Set writes through a temp file and rename so a crash never leaves a torn record
func (r *Repo) Set(_ context.Context, key string, value []byte) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return errors.Wrap(err, "[filerepo.Set] MkdirAll")
	}
	tmp, err := os.CreateTemp(r.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "[filerepo.Set] CreateTemp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filerepo.Set] Write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filerepo.Set] Chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[filerepo.Set] Close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "[filerepo.Set] Rename")
}

func (r *Repo) Delete(_ context.Context, key string) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filerepo.Delete]")
	}
	return nil
}
