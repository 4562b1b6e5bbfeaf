package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"go.opentelemetry.io/otel/metric"
)

// LocalStore writes objects below a root directory. Used for development
// and single-node deployments without object storage.
type LocalStore struct {
	root    string
	logger  *slog.Logger
	metrics *Metrics
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the root directory if needed. meter may be nil.
func NewLocalStore(root string, logger *slog.Logger, meter metric.Meter) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &LocalStore{root: abs, logger: logger}
	if meter != nil {
		metrics, err := NewMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		s.metrics = metrics
	}
	return s, nil
}

func (s *LocalStore) Backend() string { return "local" }

// Put writes data atomically and returns a file:// URL.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	start := time.Now()
	location, err := s.put(key, data)
	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, s.Backend(), err, len(data), time.Since(start))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "local store failed", "key", key, "error", err)
		return "", err
	}
	s.logger.InfoContext(ctx, "stored document", "path", location, "bytes", len(data))
	return location, nil
}

func (s *LocalStore) put(key string, data []byte) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	// SecureJoin resolves the key as if root were the filesystem root, so
	// ".." segments and symlinks cannot escape it.
	target, err := securejoin.SecureJoin(s.root, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if target == s.root {
		return "", fmt.Errorf("%w: %q resolves to the store root", ErrInvalidKey, key)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return "", fmt.Errorf("%w: create dir: %v", ErrUploadFailed, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp: %v", ErrUploadFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write: %v", ErrUploadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close: %v", ErrUploadFailed, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("%w: rename: %v", ErrUploadFailed, err)
	}

	return "file://" + target, nil
}
