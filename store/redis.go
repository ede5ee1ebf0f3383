package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/coindash"
	"github.com/redis/go-redis/v9"
)

// Redis stores the state as a single JSONL value under a key.
type Redis struct {
	rdb  *redis.Client
	name string
}

// NewRedis creates a store keeping the state named name in rdb.
func NewRedis(rdb *redis.Client, name string) *Redis {
	return &Redis{rdb: rdb, name: name}
}

// OpenRedis connects to the server at url, e.g. "redis://localhost:6379/0".
func OpenRedis(url, name string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opt), name), nil
}

// Close closes the connection.
func (s *Redis) Close() error { return s.rdb.Close() }

// Load reads the state. A missing key is an empty state.
func (s *Redis) Load(ctx context.Context) (coindash.State, error) {
	data, err := s.rdb.Get(ctx, stateKey(s.name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return coindash.State{}, nil
	}
	if err != nil {
		return coindash.State{}, fmt.Errorf("cannot read state %q: %w", s.name, err)
	}
	st, err := coindash.DecodeState(bytes.NewReader(data))
	if err != nil {
		return coindash.State{}, fmt.Errorf("cannot decode state %q: %w", s.name, err)
	}
	return st, nil
}

// Save writes the state and its save time in one transaction.
func (s *Redis) Save(ctx context.Context, st coindash.State) error {
	var buf bytes.Buffer
	if err := coindash.EncodeState(&buf, st); err != nil {
		return fmt.Errorf("cannot encode state: %w", err)
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, stateKey(s.name), buf.Bytes(), 0)
		pipe.Set(ctx, savedKey(s.name), time.Now().UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot write state %q: %w", s.name, err)
	}
	return nil
}

// Saved returns the last save time, zero if never saved.
func (s *Redis) Saved(ctx context.Context) (time.Time, error) {
	v, err := s.rdb.Get(ctx, savedKey(s.name)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}

func stateKey(name string) string { return fmt.Sprintf("coindash:%s:state", name) }
func savedKey(name string) string { return fmt.Sprintf("coindash:%s:saved", name) }
