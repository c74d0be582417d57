package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"subdetx/internal/textutil"
)

// RequestPrefix marks directories owned by a single upload request.
const RequestPrefix = "req-"

// RequestDir is a scratch directory owned by one request.
type RequestDir struct {
	ID   string
	Path string
}

// NewRequestDir creates a uuid-named directory under stagingDir. An empty id
// allocates a fresh uuid.
func NewRequestDir(stagingDir, id string) (*RequestDir, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, errors.New("staging directory not configured")
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("request id %q: %w", id, err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	path := filepath.Join(stagingDir, RequestPrefix+id)
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("create request dir: %w", err)
	}
	return &RequestDir{ID: id, Path: path}, nil
}

// Save copies r into the directory under a sanitized form of name and returns
// the written path and byte count.
func (d *RequestDir) Save(name string, r io.Reader) (string, int64, error) {
	base := textutil.SanitizeFileName(filepath.Base(name))
	if base == "" || base == "." {
		base = "upload"
	}
	target := filepath.Join(d.Path, base)
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return "", n, fmt.Errorf("write staged file: %w", copyErr)
	}
	if closeErr != nil {
		return "", n, fmt.Errorf("close staged file: %w", closeErr)
	}
	return target, n, nil
}

// Remove deletes the directory and everything in it.
func (d *RequestDir) Remove() error {
	if d == nil || d.Path == "" {
		return nil
	}
	return os.RemoveAll(d.Path)
}
