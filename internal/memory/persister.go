package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "terbot:memory:"

// Persister loads and saves facts across process runs.
// A missing prior state is an empty mapping, never an error.
type Persister interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, facts map[string]string) error
	Close() error
}

// snapshot is the on-disk and in-redis document
type snapshot struct {
	Facts     map[string]string `json:"facts"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NopPersister keeps nothing between runs
type NopPersister struct{}

func (NopPersister) Load(context.Context) (map[string]string, error) { return map[string]string{}, nil }
func (NopPersister) Save(context.Context, map[string]string) error   { return nil }
func (NopPersister) Close() error                                    { return nil }

// FilePersister stores facts as a JSON document on disk
type FilePersister struct {
	path string
}

// NewFilePersister creates a file-backed persister; the directory is created on first save
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the facts file
func (f *FilePersister) Load(_ context.Context) (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read memory file: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	var snap snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse memory file: %w", err)
	}
	if snap.Facts == nil {
		snap.Facts = map[string]string{}
	}
	return snap.Facts, nil
}

// Save writes the facts through a temp file and rename so a crash never leaves a torn file
func (f *FilePersister) Save(_ context.Context, facts map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	data, err := sonic.Marshal(snapshot{Facts: facts, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal memory data: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp memory file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close memory file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace memory file: %w", err)
	}
	return nil
}

func (f *FilePersister) Close() error { return nil }

// RedisPersister stores facts as a JSON value under terbot:memory:<profile>
type RedisPersister struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
}

// NewRedisPersister connects to redisURL and verifies the connection.
// ttl of zero keeps the value forever.
func NewRedisPersister(ctx context.Context, redisURL, profile string, ttl time.Duration) (*RedisPersister, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPersister{client: client, profile: profile, ttl: ttl}, nil
}

func (r *RedisPersister) key() string {
	return keyPrefix + r.profile
}

// Load reads the facts document; a missing key is an empty mapping
func (r *RedisPersister) Load(ctx context.Context) (map[string]string, error) {
	data, err := r.client.Get(ctx, r.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}

	var snap snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	if snap.Facts == nil {
		snap.Facts = map[string]string{}
	}
	return snap.Facts, nil
}

// Save overwrites the facts document and refreshes its TTL
func (r *RedisPersister) Save(ctx context.Context, facts map[string]string) error {
	data, err := sonic.Marshal(snapshot{Facts: facts, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	if err := r.client.Set(ctx, r.key(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// Delete removes the stored facts for this profile
func (r *RedisPersister) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisPersister) Close() error {
	return r.client.Close()
}
