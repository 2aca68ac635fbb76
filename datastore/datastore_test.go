package datastore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataStore_AddGetDelete(t *testing.T) {
	ds, err := New(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer ds.Close()

	ds.Add("g1", map[string]any{"locale": "en"})

	got, ok := ds.Get("g1")
	if !ok {
		t.Fatal("expected g1 to exist")
	}
	if m, ok := got.(map[string]any); !ok || m["locale"] != "en" {
		t.Fatalf("unexpected value for g1: %v", got)
	}

	ds.Delete("g1")
	if _, ok := ds.Get("g1"); ok {
		t.Fatal("g1 should be gone after Delete")
	}
}

func TestDataStore_KeysAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	ds, err := New(path)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ds.Add("g1", "a")
	ds.Add("g2", "b")
	if got := len(ds.Keys()); got != 2 {
		t.Fatalf("Keys() returned %d entries, want 2", got)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()

	if v, ok := reopened.Get("g2"); !ok || v != "b" {
		t.Fatalf("g2 after reload = %v (exists=%v), want \"b\"", v, ok)
	}
}

func TestDataStore_SaveSkipsUnchangedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	ds, err := New(path)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer ds.Close()

	ds.Add("g1", "a")
	if err := ds.SaveToFile(); err != nil {
		t.Fatalf("SaveToFile returned error: %v", err)
	}

	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// Same content again: the checksum guard must skip the write.
	if err := ds.SaveToFile(); err != nil {
		t.Fatalf("second SaveToFile returned error: %v", err)
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("unchanged data should not be rewritten")
	}
}

func TestDataStore_RejectsEmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty file path")
	}
}

func TestDataStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected error for corrupt data file")
	}
}
