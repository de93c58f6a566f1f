package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
)

func writeDoc(t *testing.T, dir, name, raw string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(raw), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestDirStore_LoadByName(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "work", `[{"url": "https://example.com/w.ics", "name": "w"}]`)

	store := NewDirStore(dir)

	doc, err := store.LoadByName("work")
	if err != nil {
		t.Fatalf("LoadByName failed: %v", err)
	}
	if len(doc.Feeds) != 1 || doc.Feeds[0].Name != "w" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestDirStore_NotFound(t *testing.T) {
	store := NewDirStore(t.TempDir())

	_, err := store.LoadByName("nope")
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want %s", err, apperr.CodeNotFound)
	}
}

func TestDirStore_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	// Place a real file outside the store dir that a traversal would reach.
	outside := filepath.Join(dir, "secret.json")
	if err := os.WriteFile(outside, []byte(`[]`), 0o600); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "store")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}

	store := NewDirStore(sub)
	for _, name := range []string{"", "../secret", "..", "a/b", `a\b`} {
		if _, err := store.LoadByName(name); !apperr.Is(err, apperr.CodeNotFound) {
			t.Errorf("LoadByName(%q) = %v, want %s", name, err, apperr.CodeNotFound)
		}
	}
}

func TestDirStore_ListAvailableNames(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "zeta", `[]`)
	writeDoc(t, dir, "alpha", `[]`)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewDirStore(dir)
	names, err := store.ListAvailableNames()
	if err != nil {
		t.Fatalf("ListAvailableNames failed: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("names = %v, want [alpha zeta]", names)
	}
}
