package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/reconcile"
)

var ErrNotFound = errors.New("not found")

// FileStore keeps the boiler catalog in a single JSON file, keyed by name.
// Every write rewrites the file through a temp file and a rename.
type FileStore struct {
	mu       sync.RWMutex
	boilers  map[string]*models.Boiler
	nextID   int64
	filename string
	now      func() time.Time
}

var _ reconcile.Store = (*FileStore)(nil)

func NewFileStore(filename string) (*FileStore, error) {
	fs := &FileStore{
		boilers:  make(map[string]*models.Boiler),
		nextID:   1,
		filename: filename,
		now:      time.Now,
	}

	if err := fs.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}

	return fs, nil
}

func (fs *FileStore) AllNames(_ context.Context) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	names := make([]string, 0, len(fs.boilers))
	for name := range fs.boilers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (fs *FileStore) FindNamesIn(_ context.Context, names []string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var found []string
	for _, name := range names {
		if _, ok := fs.boilers[name]; ok {
			found = append(found, name)
		}
	}
	return found, nil
}

// BulkInsert adds boilers whose name is not stored yet.
func (fs *FileStore) BulkInsert(_ context.Context, boilers []*models.Boiler) (int, error) {
	for _, b := range boilers {
		if b.Name == "" {
			return 0, fmt.Errorf("boiler name is required")
		}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := fs.now()
	next := fs.stage()
	nextID := fs.nextID
	var added []*models.Boiler
	for _, b := range boilers {
		if _, exists := next[b.Name]; exists {
			continue
		}
		stored := clone(b)
		stored.ID = nextID
		stored.CreatedAt = now
		stored.UpdatedAt = now
		nextID++

		next[b.Name] = stored
		added = append(added, b)
	}

	if len(added) == 0 {
		return 0, nil
	}
	if err := fs.save(next); err != nil {
		return 0, err
	}

	fs.boilers, fs.nextID = next, nextID
	for _, b := range added {
		stored := next[b.Name]
		b.ID, b.CreatedAt, b.UpdatedAt = stored.ID, stored.CreatedAt, stored.UpdatedAt
	}
	return len(added), nil
}

// BulkUpdate copies fields from each boiler onto the stored one with the
// same name. Names that are not stored are ignored.
func (fs *FileStore) BulkUpdate(_ context.Context, boilers []*models.Boiler, fields []string) (int, error) {
	probe := &models.Boiler{}
	for _, f := range fields {
		if _, ok := probe.Field(f); !ok || f == "name" {
			return 0, fmt.Errorf("unknown update field %q", f)
		}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := fs.now()
	next := fs.stage()
	updated := 0
	for _, b := range boilers {
		current, ok := next[b.Name]
		if !ok {
			continue
		}
		stored := clone(current)
		for _, f := range fields {
			v, _ := b.Field(f)
			stored.SetField(f, v)
		}
		stored.UpdatedAt = now
		next[b.Name] = stored
		updated++
	}

	if updated == 0 {
		return 0, nil
	}
	if err := fs.save(next); err != nil {
		return 0, err
	}
	fs.boilers = next
	return updated, nil
}

func (fs *FileStore) FindByNames(_ context.Context, names []string) ([]*models.Boiler, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var out []*models.Boiler
	for _, name := range names {
		if b, ok := fs.boilers[name]; ok {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

func (fs *FileStore) FindByName(_ context.Context, name string) (*models.Boiler, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	b, ok := fs.boilers[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return clone(b), nil
}

// List returns boilers ordered by name. Like SQL LIMIT, a limit of zero
// returns nothing.
func (fs *FileStore) List(_ context.Context, limit, offset int) ([]*models.Boiler, error) {
	if limit <= 0 {
		return nil, nil
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	names := make([]string, 0, len(fs.boilers))
	for name := range fs.boilers {
		names = append(names, name)
	}
	sort.Strings(names)

	if offset >= len(names) {
		return nil, nil
	}
	names = names[offset:]
	if limit < len(names) {
		names = names[:limit]
	}

	out := make([]*models.Boiler, 0, len(names))
	for _, name := range names {
		out = append(out, clone(fs.boilers[name]))
	}
	return out, nil
}

func (fs *FileStore) Count(_ context.Context) (int64, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return int64(len(fs.boilers)), nil
}

func clone(b *models.Boiler) *models.Boiler {
	c := *b
	c.Attributes = make(models.Attributes, len(b.Attributes))
	for k, v := range b.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

// stage copies the name map so a write can be built aside and only
// committed once the file is saved. Stored boilers are shared, never mutated.
func (fs *FileStore) stage() map[string]*models.Boiler {
	next := make(map[string]*models.Boiler, len(fs.boilers))
	for name, b := range fs.boilers {
		next[name] = b
	}
	return next
}

func (fs *FileStore) save(boilers map[string]*models.Boiler) error {
	list := make([]*models.Boiler, 0, len(boilers))
	for _, b := range boilers {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode boilers: %w", err)
	}

	if dir := filepath.Dir(fs.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmpFile, fs.filename); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	var list []*models.Boiler
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to decode boilers: %w", err)
	}

	for _, b := range list {
		if b.Attributes == nil {
			b.Attributes = models.Attributes{}
		}
		fs.boilers[b.Name] = b
		if b.ID >= fs.nextID {
			fs.nextID = b.ID + 1
		}
	}
	return nil
}
