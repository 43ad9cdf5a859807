// Package storage keeps passport photos on local disk. Incoming images land
// in a temp directory first; only a successfully confirmed submission
// promotes its file into the permanent photo directory. Everything else is
// removed before the request finishes.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/pkg/logger"
)

type PhotoStore struct {
	dir          string
	tempDir      string
	publicPrefix string
}

func NewPhotoStore(dir, tempDir, publicPrefix string) (*PhotoStore, error) {
	for _, d := range []string{dir, tempDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, &domain.StorageError{Op: "mkdir", Path: d, Err: err}
		}
	}
	return &PhotoStore{dir: dir, tempDir: tempDir, publicPrefix: strings.TrimSuffix(publicPrefix, "/")}, nil
}

// SaveTemp writes an incoming image to the temp directory and returns its
// path. The caller owns the file and must either promote or discard it.
func (s *PhotoStore) SaveTemp(data []byte, ext string) (string, error) {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	path := filepath.Join(s.tempDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}

// Promote moves a temp file into the permanent directory under a name tied
// to the upload link. Returns the stored file name.
func (s *PhotoStore) Promote(tempPath, uploadLink string) (string, error) {
	name := fmt.Sprintf("passport-%s-%d%s", uploadLink, time.Now().UnixMilli(), filepath.Ext(tempPath))
	dest := filepath.Join(s.dir, name)

	if err := os.Rename(tempPath, dest); err != nil {
		// Rename fails across filesystems; fall back to copy and delete.
		data, readErr := os.ReadFile(tempPath)
		if readErr != nil {
			return "", &domain.StorageError{Op: "promote", Path: tempPath, Err: err}
		}
		if writeErr := os.WriteFile(dest, data, 0o644); writeErr != nil {
			return "", &domain.StorageError{Op: "promote", Path: dest, Err: writeErr}
		}
		s.Discard(tempPath)
	}

	return name, nil
}

// Discard removes a file and tolerates its absence. A leftover temp file is
// worth a log line, never a failed request.
func (s *PhotoStore) Discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove photo file", "path", path, "error", err)
	}
}

// RemoveStored deletes a previously promoted photo by its stored name or
// public path.
func (s *PhotoStore) RemoveStored(name string) {
	if name == "" {
		return
	}
	name = strings.TrimPrefix(name, s.publicPrefix+"/")
	s.Discard(filepath.Join(s.dir, filepath.Base(name)))
}

// PublicPath is the URL path clients use to fetch a stored photo.
func (s *PhotoStore) PublicPath(name string) string {
	return s.publicPrefix + "/" + name
}

// Dir is the permanent photo directory, exposed for the static file route.
func (s *PhotoStore) Dir() string { return s.dir }
