// Package redisstore keeps snapshots in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/sarchlab/devskit/sim/snapshot"
)

// Store implements snapshot.Store on Redis. A bundle is one JSON document
// plus a hash of blobs. Per-model snapshots are plain keys. Two sets index
// what was saved.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL makes every saved key expire after ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the prefix of every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return NewFromClient(client, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "devskit:snapshot:",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) bundleKey(name string) string {
	return s.prefix + "bundle:" + name
}

func (s *Store) blobKey(name string) string {
	return s.prefix + "bundle:" + name + ":blobs"
}

func (s *Store) bundleIndex() string {
	return s.prefix + "bundles"
}

func (s *Store) modelKey(key snapshot.ModelKey) string {
	return s.prefix + "model:" + key.String()
}

func (s *Store) modelIndex() string {
	return s.prefix + "models"
}

type document struct {
	Meta      *snapshot.Bundle    `json:"meta"`
	Models    []string            `json:"models"`
	Relations []snapshot.Relation `json:"relations"`
}

// SaveBundle writes the bundle in one transaction.
func (s *Store) SaveBundle(ctx context.Context, b *snapshot.Bundle) error {
	data, err := json.Marshal(document{
		Meta:      b,
		Models:    b.Models,
		Relations: b.Relations,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()

	pipe.Set(ctx, s.bundleKey(b.Name), data, s.ttl)
	pipe.Del(ctx, s.blobKey(b.Name))

	if len(b.Models) > 0 {
		fields := make(map[string]any, len(b.Models))
		for _, m := range b.Models {
			fields[m] = b.Blobs[m]
		}

		pipe.HSet(ctx, s.blobKey(b.Name), fields)

		if s.ttl > 0 {
			pipe.Expire(ctx, s.blobKey(b.Name), s.ttl)
		}
	}

	pipe.SAdd(ctx, s.bundleIndex(), b.Name)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}

	return nil
}

// LoadBundle reads a bundle and its blobs.
func (s *Store) LoadBundle(
	ctx context.Context,
	name string,
) (*snapshot.Bundle, error) {
	data, err := s.client.Get(ctx, s.bundleKey(name)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrNotFound, name)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	doc := document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	b := doc.Meta
	b.Models = doc.Models
	b.Relations = doc.Relations
	b.Blobs = make(map[string][]byte, len(doc.Models))

	blobs, err := s.client.HGetAll(ctx, s.blobKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot blobs: %w", err)
	}

	for m, blob := range blobs {
		b.Blobs[m] = []byte(blob)
	}

	return b, nil
}

// ListBundles returns the names of the bundles that still exist, in
// lexical order. Expired names are dropped from the index.
func (s *Store) ListBundles(ctx context.Context) ([]string, error) {
	return s.listIndex(ctx, s.bundleIndex(), s.bundleKey)
}

func (s *Store) listIndex(
	ctx context.Context,
	index string,
	keyOf func(string) string,
) ([]string, error) {
	members, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", index, err)
	}

	pipe := s.client.Pipeline()

	exists := make([]*backend.IntCmd, len(members))
	for i, m := range members {
		exists[i] = pipe.Exists(ctx, keyOf(m))
	}

	if len(members) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	var live, expired []string

	for i, m := range members {
		if exists[i].Val() > 0 {
			live = append(live, m)
		} else {
			expired = append(expired, m)
		}
	}

	if len(expired) > 0 {
		err = s.client.SRem(ctx, index, toAny(expired)...).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to prune %s: %w", index, err)
		}
	}

	sort.Strings(live)

	return live, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}

	return out
}

// SaveModel writes a per-model snapshot.
func (s *Store) SaveModel(
	ctx context.Context,
	key snapshot.ModelKey,
	blob []byte,
) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.modelKey(key), blob, s.ttl)
	pipe.SAdd(ctx, s.modelIndex(), key.String())

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save model snapshot to redis: %w", err)
	}

	return nil
}

// LoadModel reads a per-model snapshot.
func (s *Store) LoadModel(
	ctx context.Context,
	key snapshot.ModelKey,
) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.modelKey(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get model snapshot from redis: %w", err)
	}

	return blob, nil
}

// ListModels returns the keys of the per-model snapshots that still exist.
func (s *Store) ListModels(ctx context.Context) ([]snapshot.ModelKey, error) {
	names, err := s.listIndex(ctx, s.modelIndex(), func(m string) string {
		return s.prefix + "model:" + m
	})
	if err != nil {
		return nil, err
	}

	keys := make([]snapshot.ModelKey, 0, len(names))

	for _, n := range names {
		key, err := snapshot.ParseModelKey(n)
		if err != nil {
			return nil, err
		}

		keys = append(keys, key)
	}

	return keys, nil
}

var _ snapshot.Store = (*Store)(nil)
