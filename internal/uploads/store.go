// Package uploads keeps submitted images on disk so responses can link back
// to them.
package uploads

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for names that are not plain files inside the
// store directory.
var ErrInvalidName = errors.New("invalid upload name")

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

// Store writes uploads into a single directory under generated names.
type Store struct {
	dir string
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes data under a new random name whose extension follows the
// sniffed content type, and returns that name.
func (s *Store) Save(data []byte) (string, error) {
	ext, ok := extByType[http.DetectContentType(data)]
	if !ok {
		ext = ".img"
	}
	name := uuid.NewString() + ext

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return name, nil
}

// Path returns the on-disk path for name, rejecting anything that could
// resolve outside the store directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}
