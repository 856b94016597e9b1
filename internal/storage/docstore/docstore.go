// Package docstore implements the file-backed document store: one JSON
// file per owner, read and written wholesale. This is the legacy backend
// and the desktop-mode persistence; the indexed store migrates from it on
// first read.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Store persists one data-set file per owner under a root directory.
// All operations are whole-document read-modify-write, serialized by a
// process-wide mutex: two writers in the same process cannot interleave
// between read and write.
type Store struct {
	dir    string
	prefix string

	mu sync.Mutex
}

var _ storage.Collections = (*Store)(nil)
var _ storage.Flags = (*Store)(nil)

// New creates a file store rooted at dir. The directory is created on
// first write, not here.
func New(dir, prefix string) *Store {
	if prefix == "" {
		prefix = "wb"
	}
	return &Store{dir: dir, prefix: prefix}
}

// ownerPath builds the per-tenant document path: {prefix}-admin-{owner}.json.
func (s *Store) ownerPath(owner string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-admin-%s.json", s.prefix, owner))
}

// flagsPath builds the per-tenant flag file path.
func (s *Store) flagsPath(owner string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-flags-%s.json", s.prefix, owner))
}

// read loads the owner's data set, returning a default-shaped set when the
// file does not exist.
func (s *Store) read(owner string) (*document.DataSet, error) {
	raw, err := os.ReadFile(s.ownerPath(owner))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document.NewDataSet(), nil
		}
		return nil, apperror.NewInternal(fmt.Errorf("read %s: %w", s.ownerPath(owner), err))
	}

	ds := document.NewDataSet()
	if err := json.Unmarshal(raw, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// write persists the data set atomically: temp file in the same directory,
// then rename. On a full medium it runs one cleanup pass over files tagged
// backup/temp/cache and retries once before giving up with a typed error.
func (s *Store) write(ctx context.Context, owner string, ds *document.DataSet) error {
	ds.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(ds)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("encode data set: %w", err))
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperror.NewInternal(fmt.Errorf("create data dir: %w", err))
	}

	path := s.ownerPath(owner)
	if err := s.writeAtomic(path, raw); err != nil {
		if !isNoSpace(err) {
			return apperror.NewInternal(fmt.Errorf("write %s: %w", path, err))
		}

		logger.Warn(ctx, "storage full, running cleanup pass", "owner", owner)
		s.cleanup(ctx)

		if err := s.writeAtomic(path, raw); err != nil {
			return apperror.NewQuotaExceeded(filepath.Base(path)).WithCause(err)
		}
	}
	return nil
}

// writeAtomic writes data to path via a same-directory temp file + rename.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		if werr != nil {
			return werr
		}
		return cerr
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// cleanup removes expendable files: anything under the store prefix tagged
// backup, temp or cache. Best effort, errors ignored.
func (s *Store) cleanup(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, s.prefix+"-") {
			continue
		}
		tag := strings.TrimPrefix(name, s.prefix+"-")
		if strings.HasPrefix(tag, "backup") || strings.HasPrefix(tag, "temp") || strings.HasPrefix(tag, "cache") {
			if os.Remove(filepath.Join(s.dir, name)) == nil {
				removed++
			}
		}
	}
	logger.Info(ctx, "storage cleanup finished", "removed", removed)
}

func isNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT)
}

// --- storage.Collections ---

func (s *Store) List(ctx context.Context, owner, collection string, includeDeleted bool) ([]document.Item, storage.Revision, error) {
	if !document.IsCollection(collection) {
		return nil, 0, apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.read(owner)
	if err != nil {
		return nil, 0, err
	}

	items := ds.Items(collection)
	if !includeDeleted {
		items = activeOnly(items)
	}
	return items, ds.Revisions[collection], nil
}

func (s *Store) Get(ctx context.Context, owner, collection string, id int64) (document.Item, error) {
	items, _, err := s.List(ctx, owner, collection, true)
	if err != nil {
		return document.Item{}, err
	}
	if i := document.FindByID(items, id); i >= 0 {
		return items[i], nil
	}
	return document.Item{}, apperror.NewNotFound(collection, id)
}

func (s *Store) Put(ctx context.Context, owner, collection string, item document.Item) error {
	return s.PutBatch(ctx, owner, collection, []document.Item{item})
}

func (s *Store) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	if !document.IsCollection(collection) {
		return apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.read(owner)
	if err != nil {
		return err
	}

	existing := ds.Items(collection)
	for _, item := range items {
		if i := document.FindByID(existing, item.ID); i >= 0 {
			existing[i] = item
		} else {
			existing = append(existing, item)
		}
	}
	ds.SetItems(collection, existing)

	return s.write(ctx, owner, ds)
}

func (s *Store) ReplaceAll(ctx context.Context, owner, collection string, items []document.Item, expected storage.Revision) error {
	if !document.IsCollection(collection) {
		return apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.read(owner)
	if err != nil {
		return err
	}
	if ds.Revisions[collection] != expected {
		return apperror.NewConcurrentModification(collection, owner).
			WithDetail("expected", expected).
			WithDetail("actual", ds.Revisions[collection])
	}

	ds.SetItems(collection, items)
	return s.write(ctx, owner, ds)
}

func (s *Store) ReadAll(ctx context.Context, owner string) (*document.DataSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(owner)
}

func (s *Store) WriteAll(ctx context.Context, owner string, ds *document.DataSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, owner, ds)
}

func (s *Store) Counts(ctx context.Context, owner string) (map[string]int, error) {
	ds, err := s.ReadAll(ctx, owner)
	if err != nil {
		return nil, err
	}
	return ds.Counts(), nil
}

func (s *Store) Wipe(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.ownerPath(owner))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperror.NewInternal(fmt.Errorf("wipe %s: %w", owner, err))
	}
	return nil
}

// --- storage.Flags ---

func (s *Store) GetFlag(ctx context.Context, owner, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.readFlags(owner)
	if err != nil {
		return "", err
	}
	return flags[name], nil
}

func (s *Store) SetFlag(ctx context.Context, owner, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.readFlags(owner)
	if err != nil {
		return err
	}
	flags[name] = value

	raw, err := json.Marshal(flags)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("encode flags: %w", err))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperror.NewInternal(fmt.Errorf("create data dir: %w", err))
	}
	if err := s.writeAtomic(s.flagsPath(owner), raw); err != nil {
		return apperror.NewInternal(fmt.Errorf("write flags: %w", err))
	}
	return nil
}

func (s *Store) readFlags(owner string) (map[string]string, error) {
	raw, err := os.ReadFile(s.flagsPath(owner))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, apperror.NewInternal(fmt.Errorf("read flags: %w", err))
	}
	var flags map[string]string
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, apperror.NewMalformed("flag file is not valid JSON").WithCause(err)
	}
	return flags, nil
}

func activeOnly(items []document.Item) []document.Item {
	out := make([]document.Item, 0, len(items))
	for _, it := range items {
		if !it.IsDeleted() {
			out = append(out, it)
		}
	}
	return out
}
