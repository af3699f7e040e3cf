// Package uploads is the binary-object collaborator: the core only ever
// sees the URLs it hands out.
package uploads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists an image and returns a public URL for it.
type Store interface {
	Store(ctx context.Context, data []byte, folder, filename string) (string, error)
	Delete(ctx context.Context, url string) error
}

// DiskStore writes files under Dir/<folder>/<ts>-<name> and serves them
// at BaseURL/uploads/<folder>/<file>.
type DiskStore struct {
	Dir     string
	BaseURL string
}

var _ Store = (*DiskStore)(nil)

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *DiskStore) Store(ctx context.Context, data []byte, folder, filename string) (string, error) {
	folder = sanitize(folder)
	filename = sanitize(filename)
	if filename == "" {
		return "", fmt.Errorf("empty filename")
	}
	dir := filepath.Join(d.Dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filename)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/uploads/%s/%s", d.BaseURL, folder, name), nil
}

func (d *DiskStore) Delete(ctx context.Context, url string) error {
	prefix := d.BaseURL + "/uploads/"
	if !strings.HasPrefix(url, prefix) {
		return fmt.Errorf("url not managed by this store: %s", url)
	}
	rel := strings.TrimPrefix(url, prefix)
	// reject traversal in stored URLs
	if strings.Contains(rel, "..") {
		return fmt.Errorf("bad upload path: %s", rel)
	}
	return os.Remove(filepath.Join(d.Dir, filepath.FromSlash(rel)))
}

// sanitize strips path separators so client-supplied names cannot
// escape the upload dir.
func sanitize(s string) string {
	s = filepath.Base(strings.ReplaceAll(s, "\\", "/"))
	if s == "." || s == "/" {
		return ""
	}
	return s
}
