package sessions

import (
	"context"
	"crypto/rand"
	"sync"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltLength  = 16
	nonceLength = 24

	// argon2id cost of deriving one sealing key
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
)

// SealedRepo encrypts values at rest with NaCl secretbox before handing them
// to the wrapped repo. Each record is salt|nonce|box; the key is derived from
// the passphrase and the record's salt with argon2id. A value that fails to
// open reads as malformed state.
type SealedRepo struct {
	inner      Repo
	passphrase []byte
	salt       [saltLength]byte // Used for every record this repo writes

	mu   sync.Mutex
	keys map[[saltLength]byte]*[32]byte
}

var _ Repo = (*SealedRepo)(nil)

func NewSealedRepo(inner Repo, passphrase string) *SealedRepo {
	r := &SealedRepo{
		inner:      inner,
		passphrase: []byte(passphrase),
		keys:       make(map[[saltLength]byte]*[32]byte),
	}
	_, _ = rand.Read(r.salt[:])
	return r
}

// keyFor derives the key for salt once and caches it
func (r *SealedRepo) keyFor(salt [saltLength]byte) *[32]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.keys[salt]; ok {
		return key
	}
	var key [32]byte
	copy(key[:], argon2.IDKey(r.passphrase, salt[:], argonTime, argonMemory, argonThreads, 32))
	r.keys[salt] = &key
	return &key
}

func (r *SealedRepo) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := r.inner.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}
	if len(sealed) < saltLength+nonceLength+secretbox.Overhead {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedState, "sealed record %s too short", key)
	}
	var salt [saltLength]byte
	var nonce [nonceLength]byte
	copy(salt[:], sealed[:saltLength])
	copy(nonce[:], sealed[saltLength:saltLength+nonceLength])

	opened, ok := secretbox.Open(nil, sealed[saltLength+nonceLength:], &nonce, r.keyFor(salt))
	if !ok {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedState, "sealed record %s failed to open", key)
	}
	return opened, nil
}

func (r *SealedRepo) Set(ctx context.Context, key string, value []byte) error {
	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return errors.Wrap(err, "[SealedRepo.Set] rand.Read")
	}
	out := make([]byte, 0, saltLength+nonceLength+len(value)+secretbox.Overhead)
	out = append(out, r.salt[:]...)
	out = append(out, nonce[:]...)
	return r.inner.Set(ctx, key, secretbox.Seal(out, value, &nonce, r.keyFor(r.salt)))
}

func (r *SealedRepo) Delete(ctx context.Context, key string) error {
	return r.inner.Delete(ctx, key)
}
