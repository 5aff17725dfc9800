package blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FSStore stores objects as files under a root directory. It serves
// single-host deployments that do not want an object storage account.
type FSStore struct {
	mu            sync.Mutex
	root          string
	publicBaseURL string
	logger        *slog.Logger
}

// NewFSStore creates a filesystem-backed blob store rooted at dir.
func NewFSStore(dir, publicBaseURL string, logger *slog.Logger) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("filesystem blob store requires a root directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", dir, err)
	}
	return &FSStore{
		root:          dir,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}, nil
}

// Put writes an object. The content type is ignored; file serving derives
// it from the key extension.
func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Blob write failed", "key", key, "path", path, "error", err)
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	return nil
}

// Delete removes an object. A missing file is not an error.
func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("Blob delete skipped because file was missing", "key", key)
			return nil
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an object is present.
func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}
	return true, nil
}

// PublicURL returns the public URL for a stored key.
func (s *FSStore) PublicURL(key string) string {
	return joinPublicURL(s.publicBaseURL, key)
}

// pathFor maps a key to a filesystem path, rejecting traversal outside
// the root.
func (s *FSStore) pathFor(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key: %s", key)
	}
	return filepath.Join(s.root, cleaned), nil
}
