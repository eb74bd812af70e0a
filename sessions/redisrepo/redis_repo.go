// Package redisrepo keeps session records in Redis so several client
// processes (or a backend-for-frontend) can share one session.
package redisrepo

import (
	"context"
	"time"

	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Client is the subset of *redis.Client the repo needs
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ Client = (*redis.Client)(nil)
var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	client Client
	prefix string
	ttl    time.Duration
}

type Option func(*Repo)

// WithPrefix sets the key prefix. Default: "eduportal:session:".
func WithPrefix(prefix string) Option {
	return func(r *Repo) {
		r.prefix = prefix
	}
}

// WithTTL lets Redis evict records that outlive ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *Repo) {
		r.ttl = ttl
	}
}

func New(client Client, options ...Option) *Repo {
	r := &Repo{
		client: client,
		prefix: "eduportal:session:",
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Repo) key(key string) string {
	return r.prefix + key
}

func (r *Repo) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redisrepo.Get]")
	}
	return data, nil
}

func (r *Repo) Set(ctx context.Context, key string, value []byte) error {
	return errors.Wrap(r.client.Set(ctx, r.key(key), value, r.ttl).Err(), "[redisrepo.Set]")
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	return errors.Wrap(r.client.Del(ctx, r.key(key)).Err(), "[redisrepo.Delete]")
}

// NewClient connects to Redis and pings it with a short timeout
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[redisrepo.NewClient] ping %s", addr)
	}
	return client, nil
}
