package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --------------------------------------------------------------------------
// Tests for Local.Put / Local.Get
// --------------------------------------------------------------------------

func TestLocal_PutGet(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir)
	ctx := context.Background()

	content := `{"version":1}`
	if err := store.Put(ctx, "quotify_state.json", []byte(content), "application/json"); err != nil {
		t.Fatalf("Put: unexpected error: %v", err)
	}

	// Verify file was written.
	data, err := os.ReadFile(filepath.Join(dir, "quotify_state.json"))
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != content {
		t.Errorf("file content = %q, want %q", string(data), content)
	}

	got, err := store.Get(ctx, "quotify_state.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != content {
		t.Errorf("Get = %q, want %q", got, content)
	}
}

func TestLocal_Put_Overwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir)
	ctx := context.Background()

	for _, v := range []string{"first", "second"} {
		if err := store.Put(ctx, "state", []byte(v), "text/plain"); err != nil {
			t.Fatalf("Put %s: %v", v, err)
		}
	}
	got, err := store.Get(ctx, "state")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get = %q, want second", got)
	}

	// No temporary files are left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestLocal_Put_NestedKey(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir)

	if err := store.Put(context.Background(), "sessions/abc/state.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("Put nested key: %v", err)
	}

	// Verify subdirectories were created.
	if _, err := os.Stat(filepath.Join(dir, "sessions", "abc", "state.json")); err != nil {
		t.Errorf("nested file not found: %v", err)
	}
}

func TestLocal_Put_InvalidBasePath(t *testing.T) {
	// /dev/null is a device file, so no subdirectories can be created under it.
	store := NewLocal("/dev/null")

	err := store.Put(context.Background(), "sub/state.json", []byte("data"), "application/json")
	if err == nil {
		t.Fatal("expected error when base path is invalid, got nil")
	}
	if !strings.Contains(err.Error(), "creating directory") {
		t.Errorf("expected directory creation error, got: %v", err)
	}
}

func TestLocal_Put_ReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	roDir := filepath.Join(dir, "readonly")
	os.MkdirAll(roDir, 0o755)
	os.Chmod(roDir, 0o555)
	t.Cleanup(func() { os.Chmod(roDir, 0o755) })

	store := NewLocal(roDir)
	err := store.Put(context.Background(), "state.json", []byte("data"), "application/json")
	if err == nil {
		t.Fatal("expected error writing to read-only directory, got nil")
	}
	if !strings.Contains(err.Error(), "creating file") {
		t.Errorf("expected file creation error, got: %v", err)
	}
}

func TestLocal_Get_NotFound(t *testing.T) {
	store := NewLocal(t.TempDir())
	_, err := store.Get(context.Background(), "missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestLocal_InvalidKeys(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "/", "../outside", "a/../../b"} {
		if err := store.Put(ctx, key, []byte("x"), "text/plain"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q): err = %v, want ErrInvalidKey", key, err)
		}
		if _, err := store.Get(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q): err = %v, want ErrInvalidKey", key, err)
		}
	}
}

// --------------------------------------------------------------------------
// Tests for Local.Delete
// --------------------------------------------------------------------------

func TestLocal_Delete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir)
	ctx := context.Background()

	// Create a file first.
	path := filepath.Join(dir, "to-delete.json")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("creating test file: %v", err)
	}

	if err := store.Delete(ctx, "to-delete.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Verify file is gone.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file to be deleted")
	}
}

func TestLocal_Delete_NonExistent(t *testing.T) {
	store := NewLocal(t.TempDir())

	// Deleting a non-existent file should not error.
	if err := store.Delete(context.Background(), "does-not-exist.json"); err != nil {
		t.Errorf("Delete non-existent: expected no error, got %v", err)
	}
}

func TestLocal_Delete_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	subDir := filepath.Join(dir, "protected")
	os.MkdirAll(subDir, 0o755)

	// Create a file inside, then remove write permission from the directory.
	os.WriteFile(filepath.Join(subDir, "locked.json"), []byte("data"), 0o644)
	os.Chmod(subDir, 0o555)
	t.Cleanup(func() { os.Chmod(subDir, 0o755) })

	store := NewLocal(subDir)
	err := store.Delete(context.Background(), "locked.json")
	if err == nil {
		t.Fatal("expected error deleting from read-only directory, got nil")
	}
	if !strings.Contains(err.Error(), "removing file") {
		t.Errorf("expected removing file error, got: %v", err)
	}
}

// --------------------------------------------------------------------------
// Tests for Put + Delete round-trip
// --------------------------------------------------------------------------

func TestLocal_PutThenDelete(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()

	if err := store.Put(ctx, "roundtrip.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "roundtrip.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "roundtrip.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: err = %v, want ErrNotFound", err)
	}
}
