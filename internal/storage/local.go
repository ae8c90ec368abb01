// Package storage keeps work order photo blobs and resolves them to signed URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when a blob key does not exist.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the binary object storage used for photo attachments.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// LocalStore keeps blobs under a directory on disk.
type LocalStore struct {
	root    string
	baseURL string
	signer  *URLSigner
	now     func() time.Time
}

// NewLocalStore creates root if needed. baseURL is the public prefix served by
// the /files handler.
func NewLocalStore(root, baseURL string, signer *URLSigner) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if signer == nil {
		signer = NewURLSigner("", 0)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		now:     time.Now,
	}, nil
}

// Put writes body to key, replacing any existing blob.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, &contextReader{ctx: ctx, r: body}); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close blob %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	log.Printf("[STORAGE] stored %s", key)
	return nil
}

// Open returns a reader for key.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return file, nil
}

// Delete removes key. Deleting a missing blob reports ErrNotFound.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	log.Printf("[STORAGE] deleted %s", key)
	return nil
}

// URL returns a signed, expiring URL for key.
func (s *LocalStore) URL(key string) string {
	token := s.signer.Sign(key, s.now())
	escaped := (&url.URL{Path: key}).EscapedPath()
	return fmt.Sprintf("%s/%s?token=%s", s.baseURL, escaped, url.QueryEscape(token))
}

// Verify checks a token previously issued by URL.
func (s *LocalStore) Verify(key, token string) error {
	return s.signer.Verify(key, token, s.now())
}

// resolve maps a key onto a path inside root and rejects traversal.
func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
