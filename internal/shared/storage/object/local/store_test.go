package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"healthjournal-backend/internal/shared/storage/object"
)

func TestSaveOpenDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	content := []byte("%PDF-1.4 test content")
	key, size, mimeType, err := store.Save(ctx, "user-1", "labs.pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}
	if mimeType != "application/pdf" {
		t.Fatalf("mime = %q", mimeType)
	}
	if !strings.Contains(key, "labs.pdf") {
		t.Fatalf("key = %q, want sanitized name preserved", key)
	}
	if !store.Exists(ctx, key) {
		t.Fatal("Exists() = false after save")
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch: %q", got)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if store.Exists(ctx, key) {
		t.Fatal("Exists() = true after delete")
	}
	if err := store.Delete(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("second Delete() = %v, want ErrNotFound", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Open() after delete = %v, want ErrNotFound", err)
	}
}

func TestSaveRandomizesNames(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key1, _, _, err := store.Save(ctx, "user-1", "same.pdf", strings.NewReader("first"))
	if err != nil {
		t.Fatal(err)
	}
	key2, _, _, err := store.Save(ctx, "user-1", "same.pdf", strings.NewReader("second"))
	if err != nil {
		t.Fatal(err)
	}
	if key1 == key2 {
		t.Fatal("two saves of the same name must not collide")
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	store := New(t.TempDir()).(*Store)

	for _, key := range []string{"../escape", "/etc/passwd", "a/../../b"} {
		if _, err := store.Path(key); err == nil {
			t.Errorf("Path(%q) accepted a traversal key", key)
		}
	}
}

func TestSaveSniffsMime(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	_, _, mimeType, err := store.Save(ctx, "user-1", "scan.png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatal(err)
	}
	if mimeType != "image/png" {
		t.Fatalf("mime = %q, want image/png", mimeType)
	}
}
