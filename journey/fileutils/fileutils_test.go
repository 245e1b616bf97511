package fileutils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckWritable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "journey.json")

	if err := CheckWritable(p, false); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := CheckWritable(p, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("err=%v, want ErrExists", err)
	}
	if !strings.Contains(err.Error(), p) {
		t.Fatalf("error should name the path: %v", err)
	}
	if err := CheckWritable(p, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "weekly.md")

	if err := WriteFileAtomic(p, []byte("# Week"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "# Week\n" {
		t.Fatalf("content=%q", string(b))
	}

	// Existing trailing newline is not doubled.
	if err := WriteFileAtomic(p, []byte("# Week 2\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	b, _ = os.ReadFile(p)
	if string(b) != "# Week 2\n" {
		t.Fatalf("content=%q", string(b))
	}

	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteJSONFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "run.json")
	v := map[string]any{"run_id": "abc", "messages_in": 3}

	if err := WriteJSONFileAtomic(p, v, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != `{"messages_in":3,"run_id":"abc"}`+"\n" {
		t.Fatalf("compact=%q", string(b))
	}

	if err := WriteJSONFileAtomic(p, v, true); err != nil {
		t.Fatalf("write pretty: %v", err)
	}
	b, _ = os.ReadFile(p)
	if !strings.Contains(string(b), "\n  \"messages_in\": 3,") {
		t.Fatalf("pretty=%q", string(b))
	}

	if err := WriteJSONFileAtomic(p, func() {}, false); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  short  ", 10); got != "short" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("abcdefghij", 4); got != "abcd…" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("abcdefghij", 0); got != "abcdefghij" {
		t.Fatalf("got=%q", got)
	}
}
