// Package claims decides whether a question still needs processing.
package claims

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/reporting"
)

// Store hands out exclusive ownership of question ids.
type Store interface {
	// Claim reports whether the caller now owns id. false means the
	// question was already processed or is owned by another worker.
	Claim(ctx context.Context, category models.Category, id string) (bool, error)
	// Release gives up a claim for a question that produced no report.
	Release(ctx context.Context, category models.Category, id string) error
	Close() error
}

// FileStore claims a question by creating its markdown artifact. An
// existing artifact means the question was processed by an earlier run.
// Creation is exclusive, so concurrent workers sharing a local output
// directory cannot both win.
type FileStore struct {
	outDir string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(outDir string) *FileStore {
	return &FileStore{outDir: outDir}
}

func (s *FileStore) Claim(_ context.Context, category models.Category, id string) (bool, error) {
	path := reporting.ArtifactPath(s.outDir, category, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, f.Close()
}

func (s *FileStore) Release(_ context.Context, category models.Category, id string) error {
	err := os.Remove(reporting.ArtifactPath(s.outDir, category, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) Close() error { return nil }

// RedisStore layers a SETNX claim in redis over the FileStore so several
// processes writing to one output directory do not pick the same question.
type RedisStore struct {
	files  *FileStore
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

const keyPrefix = "physbench:claim:"

// NewRedisStore connects to the redis server at url.
func NewRedisStore(url, outDir string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisStore{
		files:  NewFileStore(outDir),
		client: redis.NewClient(opts),
		prefix: keyPrefix,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) key(category models.Category, id string) string {
	return s.prefix + string(category) + ":" + id
}

func (s *RedisStore) Claim(ctx context.Context, category models.Category, id string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(category, id), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming %s/%s: %w", category, id, err)
	}
	if !ok {
		return false, nil
	}

	owned, err := s.files.Claim(ctx, category, id)
	if err != nil || !owned {
		// Keep the redis key when the artifact already exists: the question
		// is done.
		if err != nil {
			_ = s.client.Del(ctx, s.key(category, id)).Err()
		}
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Release(ctx context.Context, category models.Category, id string) error {
	if err := s.files.Release(ctx, category, id); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key(category, id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Open builds the store selected by cfg.
func Open(cfg models.ClaimsConfig, outDir string) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(outDir), nil
	case "redis":
		return NewRedisStore(cfg.RedisURL, outDir, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown claims backend %q", cfg.Backend)
	}
}
