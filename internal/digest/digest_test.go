package digest

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func TestTable_DigestMatchesStdlib(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bin")
	content := []byte("#!/bin/sh\necho hi\n")
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatal(err)
	}

	table := NewTable()
	got, err := table.Digest(path, 256)
	if err != nil {
		t.Fatal(err)
	}
	want := sha256.Sum256(content)
	if string(got) != string(want[:]) {
		t.Errorf("digest mismatch")
	}
}

func TestTable_MemoizesReads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bin")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := NewTable()
	first, err := table.Digest(path, 256)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := table.Digest(path, 256)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("Table.Digest should memoize and not re-read the file")
	}
}

func TestTable_UnsupportedWidth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	table := NewTable()
	if _, err := table.Digest(path, 128); err == nil {
		t.Errorf("expected an error for an unsupported digest width")
	}
}
