package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestURLSigner_SignVerify(t *testing.T) {
	signer := NewURLSigner("secret", time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	key := "5b1c/1700000000.jpg"

	token := signer.Sign(key, now)
	if err := signer.Verify(key, token, now.Add(30*time.Second)); err != nil {
		t.Fatalf("expected valid token: %v", err)
	}
	if err := signer.Verify("other/key.jpg", token, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if err := signer.Verify(key, token, now.Add(2*time.Minute)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry error, got %v", err)
	}
	if err := NewURLSigner("different", time.Minute).Verify(key, token, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestLocalStore_PutOpenDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/files", NewURLSigner("secret", time.Minute))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	key := "wo-1/123.png"

	if err := store.Put(ctx, key, strings.NewReader("image-bytes")); err != nil {
		t.Fatalf("put: %v", err)
	}
	reader, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(reader)
	reader.Close()
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected contents %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "", nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Put(context.Background(), "../escape.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestFileHandler_ServesSignedURL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://example.test/files", NewURLSigner("secret", time.Minute))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key := "wo-2/1.jpg"
	if err := store.Put(context.Background(), key, strings.NewReader("jpeg")); err != nil {
		t.Fatalf("put: %v", err)
	}

	signed, err := url.Parse(store.URL(key))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	handler := NewFileHandler(store, "/files")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, signed.RequestURI(), nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg" {
		t.Fatalf("expected 200 with body, got %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", ct)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/"+key+"?token=bogus", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bad token, got %d", rec.Code)
	}
}
