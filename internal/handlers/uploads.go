package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/fleetledger/internal/apperr"
	"github.com/example/fleetledger/internal/services"
)

const documentsField = "documents"

// Uploader stores multipart "documents" files and returns their references.
type Uploader struct {
	blobs    services.BlobStore
	maxBytes int64
	logger   *zap.Logger
}

func NewUploader(blobs services.BlobStore, maxBytes int64, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{blobs: blobs, maxBytes: maxBytes, logger: logger}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// Collect validates every uploaded file before storing any of them.
// Requests that are not multipart carry no files.
func (u *Uploader) Collect(c *fiber.Ctx) ([]string, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}

	files := form.File[documentsField]
	if len(files) > services.MaxDocuments {
		return nil, apperr.Validation("at most %d documents may be uploaded", services.MaxDocuments)
	}
	for _, fh := range files {
		if err := services.CheckDocument(fh.Filename, fh.Size, u.maxBytes); err != nil {
			return nil, err
		}
	}

	refs := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		ref, err := u.blobs.Save(c.UserContext(), fh.Filename, f)
		f.Close()
		if err != nil {
			u.Discard(c.UserContext(), refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Discard removes documents stored for a request that was then rejected.
func (u *Uploader) Discard(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := u.blobs.Delete(ctx, ref); err != nil {
			u.logger.Warn("failed to discard uploaded document", zap.String("ref", ref), zap.Error(err))
		}
	}
}
