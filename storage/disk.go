// Package storage holds the local implementation of the external file-store
// collaborator.
package storage

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"chat-core/contract"
)

// DiskFileStore deletes stored files under a root directory. Messages carry
// file references either as plain relative paths or as full upload URLs; both
// resolve to a path inside Root. Deletion is best effort: failures are logged
// and reported as false, never as an error into the caller's critical path.
type DiskFileStore struct {
	root string
	log  *slog.Logger
}

func NewDiskFileStore(root string, log *slog.Logger) *DiskFileStore {
	return &DiskFileStore{root: root, log: log}
}

var _ contract.FileStore = (*DiskFileStore)(nil)

func (s *DiskFileStore) DeleteFile(_ context.Context, reference string) bool {
	rel := s.relativePath(reference)
	if rel == "" {
		s.log.Warn("unresolvable file reference", "reference", reference)
		return false
	}

	path := filepath.Join(s.root, rel)
	// Join cleans the path; reject anything escaping the root.
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) {
		s.log.Warn("file reference escapes root", "reference", reference)
		return false
	}

	if err := os.Remove(path); err != nil {
		s.log.Warn("file delete failed", "path", path, "error", err)
		return false
	}
	return true
}

// relativePath extracts the path under the uploads root from a reference,
// stripping scheme/host and the leading "uploads" segment of full URLs.
func (s *DiskFileStore) relativePath(reference string) string {
	rel := reference
	if u, err := url.Parse(reference); err == nil && u.Scheme != "" {
		rel = u.Path
	}
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimPrefix(rel, "uploads/")
	if rel == "" || strings.Contains(rel, "..") {
		return ""
	}
	return rel
}
