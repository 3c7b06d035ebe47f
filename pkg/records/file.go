package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileArchive stores records as JSON files under a base directory,
// mirroring the key layout as a directory tree.
type FileArchive struct {
	baseDir string
	mu      sync.RWMutex
}

func NewFileArchive(baseDir string) (*FileArchive, error) {
	//nolint:gosec // G301: 0755 is intentional for a shared archive directory
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	return &FileArchive{baseDir: baseDir}, nil
}

func (a *FileArchive) Put(ctx context.Context, key string, v any) error {
	rel, err := cleanKey(key)
	if err != nil {
		return err
	}
	data, err := marshalRecord(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := filepath.Join(a.baseDir, rel)
	//nolint:gosec // G301: 0755 is intentional for a shared archive directory
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("ensure prefix dir: %w", err)
	}

	// Write to temp, then rename.
	tmp := path + ".tmp"
	//nolint:gosec // G306: 0644 is intentional for readable record files
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (a *FileArchive) Get(ctx context.Context, key string, out any) error {
	rel, err := cleanKey(key)
	if err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(a.baseDir, rel)) //nolint:gosec // key validated by cleanKey
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (a *FileArchive) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var infos []ObjectInfo
	err := filepath.WalkDir(a.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(a.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, ObjectInfo{Key: key, LastModified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk archive: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (a *FileArchive) Delete(ctx context.Context, key string) error {
	rel, err := cleanKey(key)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(filepath.Join(a.baseDir, rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// cleanKey maps an archive key onto a relative filesystem path and
// rejects keys that would escape the base directory. Task IDs arrive
// from external messages and cannot be trusted to be path-safe.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid archive key: %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid archive key: %q", key)
		}
	}
	return filepath.FromSlash(key), nil
}
