package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type record struct {
	Name  string  `json:"name"`
	Count float64 `json:"count"`
}

func TestFileStore_MissingFileLoadsEmpty(t *testing.T) {
	s := NewFileStore[record](filepath.Join(t.TempDir(), "missing.json"))

	records, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := NewFileStore[record](filepath.Join(t.TempDir(), "records.json"))

	want := []record{
		{Name: "first", Count: 1.5},
		{Name: "second", Count: 0},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("records[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFileStore_SaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "records.json")
	s := NewFileStore[record](path)

	if err := s.Save([]record{{Name: "x"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stat %s: %v", path, err)
	}
}

func TestFileStore_NilSavesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s := NewFileStore[record](path)

	if err := s.Save(nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("file = %q, want empty JSON array", string(data))
	}
}

func TestFileStore_WritesIndentedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s := NewFileStore[record](path)

	if err := s.Save([]record{{Name: "x", Count: 2}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "    \"name\"") {
		t.Errorf("file not indented with 4 spaces:\n%s", string(data))
	}
}

func TestFileStore_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore[record](path).Load()
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "parse")
	}
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore[record](filepath.Join(dir, "records.json"))

	if err := s.Save([]record{{Name: "x"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("dir entries = %v, want only records.json", names)
	}
}

func TestAppend(t *testing.T) {
	s := NewFileStore[record](filepath.Join(t.TempDir(), "records.json"))

	for i, r := range []record{{Name: "a"}, {Name: "b"}, {Name: "c"}} {
		if err := Append[record](s, r); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Name != "a" || got[1].Name != "b" || got[2].Name != "c" {
		t.Errorf("append order = %v %v %v, want a b c", got[0].Name, got[1].Name, got[2].Name)
	}
}
