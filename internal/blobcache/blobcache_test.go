package blobcache

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/liutentor/tentor/internal/db"
)

func setupCache(t *testing.T) *SQLiteCache {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLiteCache(database)
}

func TestPutGetRoundTrip(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	blob := []byte("%PDF-1.7 fake document body")
	c.Put(ctx, "doc-123", blob)

	got := c.Get(ctx, "doc-123")
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if len(got) != len(blob) {
		t.Errorf("expected %d bytes, got %d", len(blob), len(got))
	}
	if !bytes.Equal(got, blob) {
		t.Error("cached bytes differ from stored bytes")
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	c := setupCache(t)
	if got := c.Get(context.Background(), "absent"); got != nil {
		t.Errorf("expected nil on miss, got %d bytes", len(got))
	}
}

func TestPutOverwrites(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.Put(ctx, "doc", []byte("old"))
	c.Put(ctx, "doc", []byte("newer"))

	if got := c.Get(ctx, "doc"); string(got) != "newer" {
		t.Errorf("expected overwritten value, got %q", got)
	}
}

func TestDecodeBase64(t *testing.T) {
	payload := []byte{0xfb, 0xff, 0x00, 0x41, 0x42}
	std := base64.StdEncoding.EncodeToString(payload)

	got, err := DecodeBase64(std)
	if err != nil {
		t.Fatalf("DecodeBase64(standard): %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("standard alphabet round trip failed")
	}

	// URL-safe alphabet with embedded whitespace.
	urlSafe := base64.RawURLEncoding.EncodeToString(payload)
	noisy := urlSafe[:2] + "\n " + urlSafe[2:]
	got, err = DecodeBase64(noisy)
	if err != nil {
		t.Fatalf("DecodeBase64(url-safe, noisy): %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("url-safe round trip failed")
	}
}

func TestDecodeBase64Malformed(t *testing.T) {
	if _, err := DecodeBase64("!!not base64!!"); err == nil {
		t.Error("expected error for malformed payload")
	}
}
