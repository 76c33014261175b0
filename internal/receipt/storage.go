package receipt

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/zombor/receipt-processor/internal/scanning"
)

// ErrObjectNotFound is returned when a referenced document does not exist
var ErrObjectNotFound = errors.New("object not found")

// Storage defines the interface for document storage operations
type Storage interface {
	// Save stores a document under the reference
	Save(ctx context.Context, ref scanning.DocumentRef, data []byte, contentType string) error

	// Fetch retrieves a document and its content type
	Fetch(ctx context.Context, ref scanning.DocumentRef) ([]byte, string, error)

	// Head verifies that a document exists
	Head(ctx context.Context, ref scanning.DocumentRef) error

	// Delete removes a document
	Delete(ctx context.Context, ref scanning.DocumentRef) error
}

// LocalStorage implements the Storage interface on the local filesystem.
// Buckets are directories below basePath.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// path resolves a reference to a file below basePath
func (l *LocalStorage) path(ref scanning.DocumentRef) (string, error) {
	if ref.Bucket == "" || ref.Key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	full := filepath.Join(l.basePath, ref.Bucket, filepath.FromSlash(ref.Key))
	rel, err := filepath.Rel(l.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid document reference %s", ref)
	}
	return full, nil
}

// Save writes a document to local storage
func (l *LocalStorage) Save(ctx context.Context, ref scanning.DocumentRef, data []byte, contentType string) error {
	path, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating bucket directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// Fetch reads a document from local storage. The content type is derived
// from the extension, falling back to content sniffing.
func (l *LocalStorage) Fetch(ctx context.Context, ref scanning.DocumentRef) ([]byte, string, error) {
	path, err := l.path(ref)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("reading %s: %w", ref, ErrObjectNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading file: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// Head checks that the document exists
func (l *LocalStorage) Head(ctx context.Context, ref scanning.DocumentRef) error {
	path, err := l.path(ref)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return fmt.Errorf("checking %s: %w", ref, ErrObjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking file: %w", err)
	}
	return nil
}

// Delete removes a document from local storage
func (l *LocalStorage) Delete(ctx context.Context, ref scanning.DocumentRef) error {
	path, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
