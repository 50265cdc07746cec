package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/example/fleetledger/internal/apperr"
)

// MaxDocuments is the most files accepted in one upload.
const MaxDocuments = 10

var allowedDocumentExt = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".pdf":  true,
}

// BlobStore keeps uploaded documents and hands back opaque references.
type BlobStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// DiskStore writes documents under a single directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save stores r under a fresh reference that keeps the original extension.
func (s *DiskStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	ref := uuid.NewString() + strings.ToLower(filepath.Ext(filename))

	f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}
	return ref, nil
}

// Delete removes a stored document. Unknown references are not an error.
func (s *DiskStore) Delete(_ context.Context, ref string) error {
	if ref == "" || ref != filepath.Base(ref) {
		return fmt.Errorf("invalid document reference %q", ref)
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// CheckDocument rejects files with an unsupported type or over maxBytes.
func CheckDocument(filename string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedDocumentExt[ext] {
		return apperr.Validation("%s: only .jpeg, .jpg, .png and .pdf files are allowed", filename)
	}
	if maxBytes > 0 && size > maxBytes {
		return apperr.Validation("%s: file exceeds %d bytes", filename, maxBytes)
	}
	return nil
}
