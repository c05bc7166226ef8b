package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

const currentFile = "CURRENT"

// FileStore keeps releases under dir/releases/<id>/ and publishes one by
// atomically replacing dir/CURRENT.
type FileStore struct {
	dir  string
	keep int
}

// NewFileStore returns a store rooted at dir that keeps the newest keep
// releases (at least 1).
func NewFileStore(dir string, keep int) *FileStore {
	if keep < 1 {
		keep = 1
	}
	return &FileStore{dir: dir, keep: keep}
}

func (s *FileStore) releasesDir() string {
	return filepath.Join(s.dir, "releases")
}

func (s *FileStore) Current(_ context.Context) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read current release: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *FileStore) Load(ctx context.Context) (*model.Bundle, error) {
	id, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.releasesDir(), id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read release %s: %w", id, err)
	}
	blobs := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		blobs[e.Name()] = data
	}
	return decode(blobs)
}

func (s *FileStore) Save(_ context.Context, b *model.Bundle) (string, error) {
	id := uuid.NewString()
	blobs, err := encode(b, id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.releasesDir(), 0o755); err != nil {
		return "", fmt.Errorf("create releases dir: %w", err)
	}

	staging, err := os.MkdirTemp(s.releasesDir(), ".staging-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	for name, data := range blobs {
		if err := writeFileSync(filepath.Join(staging, name), data); err != nil {
			_ = os.RemoveAll(staging)
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := syncDir(staging); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("sync staging dir: %w", err)
	}
	if err := os.Rename(staging, filepath.Join(s.releasesDir(), id)); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("finalise release: %w", err)
	}
	if err := syncDir(s.releasesDir()); err != nil {
		return "", fmt.Errorf("sync releases dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(s.dir, currentFile), []byte(id+"\n")); err != nil {
		return "", fmt.Errorf("publish release: %w", err)
	}
	s.prune(id)
	return id, nil
}

// prune removes all but the newest s.keep releases, never the current one.
func (s *FileStore) prune(current string) {
	entries, err := os.ReadDir(s.releasesDir())
	if err != nil {
		return
	}
	type rel struct {
		name string
		mod  int64
	}
	var rels []rel
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == current {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		rels = append(rels, rel{e.Name(), info.ModTime().UnixNano()})
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].mod > rels[j].mod })
	for i, r := range rels {
		if i+1 >= s.keep {
			_ = os.RemoveAll(filepath.Join(s.releasesDir(), r.name))
		}
	}
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := writeAndSync(f, data); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// writeFileSync writes data to path and flushes it to stable storage before
// returning.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return writeAndSync(f, data)
}

// writeAndSync writes, fsyncs and closes f.
func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir makes renames and creations inside dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
