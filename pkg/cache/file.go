package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const fileExt = ".mp"

// FileCache keeps one msgpack file per key under dir. The CLI uses it so
// that offline runs share metadata lookups across invocations.
type FileCache struct {
	dir string
}

// NewFileCache creates dir if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) Dir() string { return c.dir }

// fileEntry keeps the key so Clear can match prefixes without an index.
type fileEntry struct {
	Key     string    `msgpack:"k"`
	Data    []byte    `msgpack:"d"`
	Expires time.Time `msgpack:"e"`
}

func (e *fileEntry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && now.After(e.Expires)
}

func readEntry(path string) (*fileEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e fileEntry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Get treats unreadable and expired entries as misses and removes them.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	e, err := readEntry(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil, e.expired(time.Now()):
		_ = os.Remove(path)
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Set writes to a temp file and renames it into place so readers never see
// a partial entry.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	e := fileEntry{Key: key, Data: data}
	if ttl > 0 {
		e.Expires = time.Now().Add(ttl)
	}
	raw, err := msgpack.Marshal(&e)
	if err != nil {
		return err
	}
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes every entry whose key starts with prefix. Entries that
// cannot be decoded go too.
func (c *FileCache) Clear(ctx context.Context, prefix string) error {
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != fileExt {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if prefix != "" {
			if e, err := readEntry(path); err == nil && !strings.HasPrefix(e.Key, prefix) {
				return nil
			}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) Close() error { return nil }

// path shards entries by the first byte of the key's SHA-256.
func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(c.dir, name[:2], name[2:]+fileExt)
}

var _ Cache = (*FileCache)(nil)
