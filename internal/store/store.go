// Package store keeps per-owner collections of JSON documents on disk. Each
// collection is one file rewritten atomically on every change.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an id does not exist for the given owner.
// Records of other owners are reported the same way.
var ErrNotFound = errors.New("not found")

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.New().String()
}

// Collection is a set of T keyed by owner and id.
type Collection[T any] struct {
	mu    sync.RWMutex
	path  string
	items map[string]map[string]T
}

// Open loads dir/name.json, creating an empty collection if the file does
// not exist yet.
func Open[T any](dir, name string) (*Collection[T], error) {
	c := &Collection[T]{
		path:  filepath.Join(dir, name+".json"),
		items: map[string]map[string]T{},
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return c, nil
}

// Memory returns a collection that is never written to disk.
func Memory[T any]() *Collection[T] {
	return &Collection[T]{items: map[string]map[string]T{}}
}

// List returns the owner's records ordered by id. Callers sort further.
func (c *Collection[T]) List(owner string) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byID := c.items[owner]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

func (c *Collection[T]) Get(owner, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[owner][id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return v, nil
}

// Put inserts or replaces a record.
func (c *Collection[T]) Put(owner, id string, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items[owner] == nil {
		c.items[owner] = map[string]T{}
	}
	c.items[owner][id] = v
	return c.persistLocked()
}

// PutMany inserts several records with a single write.
func (c *Collection[T]) PutMany(owner string, ids []string, vs []T) error {
	if len(ids) != len(vs) {
		return fmt.Errorf("put many: %d ids for %d records", len(ids), len(vs))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items[owner] == nil {
		c.items[owner] = map[string]T{}
	}
	for i, id := range ids {
		c.items[owner][id] = vs[i]
	}
	return c.persistLocked()
}

// Update loads a record, lets fn modify it and stores the result. Nothing is
// written when fn fails.
func (c *Collection[T]) Update(owner, id string, fn func(*T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[owner][id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	if err := fn(&v); err != nil {
		var zero T
		return zero, err
	}
	c.items[owner][id] = v
	return v, c.persistLocked()
}

func (c *Collection[T]) Delete(owner, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[owner][id]; !ok {
		return ErrNotFound
	}
	delete(c.items[owner], id)
	if len(c.items[owner]) == 0 {
		delete(c.items, owner)
	}
	return c.persistLocked()
}

// DeleteWhere removes the owner's records matching pred and returns how many
// were removed.
func (c *Collection[T]) DeleteWhere(owner string, pred func(T) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, v := range c.items[owner] {
		if pred(v) {
			delete(c.items[owner], id)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, c.persistLocked()
}

// Owners lists every owner with at least one record.
func (c *Collection[T]) Owners() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.items))
	for owner := range c.items {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}

func (c *Collection[T]) persistLocked() error {
	if c.path == "" {
		return nil
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	buf, err := json.MarshalIndent(c.items, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".planos-store-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (c *Collection[T]) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var payload map[string]map[string]T
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for owner, byID := range payload {
		c.items[owner] = byID
	}
	return nil
}
