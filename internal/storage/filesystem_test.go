package storage

import (
	"context"
	"testing"
)

func TestFileStoreWriteReadURL(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "https://cdn.example.com/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	key, err := store.Write(ctx, "/exports/wb-1/../wb-1/cutout.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "exports/wb-1/cutout.png" {
		t.Fatalf("key = %q", key)
	}
	data, err := store.Read(ctx, key)
	if err != nil || string(data) != "png" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if got := store.URL(key); got != "https://cdn.example.com/static/exports/wb-1/cutout.png" {
		t.Fatalf("URL = %q", got)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", "../etc/passwd", "a/../../b", "."} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("sanitizeKey(%q) accepted", key)
		}
	}
}
