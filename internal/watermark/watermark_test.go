package watermark

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermark.txt")
	store := NewFileStore(path)

	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if err := store.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Load = %v, want %v", got, want)
	}

	// File content is the human-readable date plus newline
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "15 Mar 2024\n" {
		t.Errorf("file content = %q, want %q", string(data), "15 Mar 2024\n")
	}
}

func TestFileStoreMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.txt"))

	_, err := store.Load()
	if !errors.Is(err, ErrNoWatermark) {
		t.Errorf("Load on missing file = %v, want ErrNoWatermark", err)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermark.txt")
	if err := os.WriteFile(path, []byte("not a date\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	store := NewFileStore(path)
	_, err := store.Load()
	if !errors.Is(err, ErrBadWatermark) {
		t.Errorf("Load on corrupt file = %v, want ErrBadWatermark", err)
	}
}

func TestFileStoreTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermark.txt")
	if err := os.WriteFile(path, []byte("  01 Jan 2000\n\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	store := NewFileStore(path)
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.Equal(Sentinel) {
		t.Errorf("Load = %v, want %v", got, Sentinel)
	}
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "watermark.txt"))

	if err := store.Save(Sentinel); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "watermark.txt.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should be removed after Save")
	}
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	lock := NewFileLock(path)

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Second acquisition must fail while held
	other := NewFileLock(path)
	if err := other.Acquire(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire = %v, want ErrLocked", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// Released lock can be taken again
	if err := other.Acquire(); err != nil {
		t.Errorf("Acquire after Release failed: %v", err)
	}
	other.Release()
}
