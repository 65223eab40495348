package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tryon/internal/domain"
)

var _ domain.ImageStore = (*FileStore)(nil)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx := context.Background()

	key, err := s.Put(ctx, "/users/u1/closet/../closet/top-1.png", []byte("png"))
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if key != "users/u1/closet/top-1.png" {
		t.Fatalf("key = %q", key)
	}
	if _, err := os.Stat(filepath.Join(dir, "users", "u1", "closet", "top-1.png")); err != nil {
		t.Fatalf("file not written: %v", err)
	}
	data, err := s.Read(ctx, key)
	if err != nil || string(data) != "png" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if got := s.URL(key); got != "http://localhost:8080/static/users/u1/closet/top-1.png" {
		t.Fatalf("URL = %q", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
	if _, err := s.Read(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", "../etc/passwd", "a/../../b", ".", ".."} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected error for %q", key)
		}
	}
	got, err := sanitizeKey(`users\u1\a.png`)
	if err != nil || got != "users/u1/a.png" {
		t.Fatalf("sanitizeKey = %q, %v", got, err)
	}
}

func TestFileStoreURLEscapes(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "/static")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	if got := s.URL("users/a b/x.png"); got != "/static/users/a%20b/x.png" {
		t.Fatalf("URL = %q", got)
	}
}

func TestFileStoreHonorsContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "a.png", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
