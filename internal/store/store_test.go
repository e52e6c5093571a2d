package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCollectionPersists(t *testing.T) {
	dir := t.TempDir()
	c, err := Open[doc](dir, "docs")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := NewID()
	if err := c.Put("alice", id, doc{Name: "a", Count: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := c.Update("alice", id, func(d *doc) error { d.Count++; return nil }); err != nil {
		t.Fatalf("update: %v", err)
	}

	reopened, err := Open[doc](dir, "docs")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get("alice", id)
	if err != nil || got.Count != 2 {
		t.Fatalf("expected persisted count 2, got %+v %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "docs.json")); err != nil {
		t.Fatalf("expected docs.json: %v", err)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	c := Memory[doc]()
	_ = c.Put("alice", "1", doc{Name: "a"})
	if _, err := c.Get("bob", "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob must not see alice's record, got %v", err)
	}
	if err := c.Delete("bob", "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob must not delete alice's record, got %v", err)
	}
	if len(c.List("alice")) != 1 || len(c.List("bob")) != 0 {
		t.Fatalf("unexpected listing")
	}
}

func TestUpdateErrorKeepsRecord(t *testing.T) {
	c := Memory[doc]()
	_ = c.Put("alice", "1", doc{Name: "a", Count: 1})
	_, err := c.Update("alice", "1", func(d *doc) error {
		d.Count = 99
		return fmt.Errorf("nope")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got, _ := c.Get("alice", "1"); got.Count != 1 {
		t.Fatalf("failed update must not be stored, got %+v", got)
	}
}

func TestDeleteWhereAndOwners(t *testing.T) {
	c := Memory[doc]()
	_ = c.PutMany("alice", []string{"1", "2", "3"}, []doc{{Count: 1}, {Count: 2}, {Count: 3}})
	_ = c.Put("bob", "9", doc{})
	n, err := c.DeleteWhere("alice", func(d doc) bool { return d.Count >= 2 })
	if err != nil || n != 2 {
		t.Fatalf("expected 2 removed, got %d %v", n, err)
	}
	if owners := c.Owners(); len(owners) != 2 || owners[0] != "alice" {
		t.Fatalf("unexpected owners %v", owners)
	}
	if err := c.PutMany("alice", []string{"x"}, nil); err == nil {
		t.Fatalf("mismatched PutMany should fail")
	}
}
