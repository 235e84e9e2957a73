package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"productstudio/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/data/cache")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Get(ctx, "analysis_cache"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Put(ctx, "analysis_cache", []byte(`[]`)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := store.Put(ctx, "analysis_cache", []byte(`[["k",{}]]`)); err != nil {
		t.Fatalf("Put overwrite returned error: %v", err)
	}
	got, err := store.Get(ctx, "analysis_cache")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != `[["k",{}]]` {
		t.Fatalf("Get mismatch: %q", got)
	}

	entries, err := afero.ReadDir(fs, "/data/cache")
	if err != nil {
		t.Fatalf("ReadDir returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "analysis_cache.json" {
		t.Fatalf("temp files left behind: %v", entries)
	}

	if err := store.Delete(ctx, "analysis_cache"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Delete(ctx, "analysis_cache"); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(afero.NewMemMapFs(), "/data")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	for _, key := range []string{"", "../secrets", "..", "  "} {
		if err := store.Put(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
