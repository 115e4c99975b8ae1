package service

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/internal/dto"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
	"github.com/coopvalles/asamblea-api/pkg/storage"
)

// AttachmentService pre-uploads aviso images. Upload is an independent step:
// the returned ref is consumed by aviso creation, and objects orphaned by an
// abandoned compose flow are left to the storage backend's lifecycle.
type AttachmentService struct {
	store        storage.ObjectStore
	maxSizeBytes int64
	allowedMIMEs map[string]struct{}
	logger       *zap.Logger
}

// NewAttachmentService builds the service. An empty MIME list allows any image type.
func NewAttachmentService(store storage.ObjectStore, maxSizeBytes int64, allowedMIMEs []string, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	mimes := make(map[string]struct{}, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		mimes[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &AttachmentService{store: store, maxSizeBytes: maxSizeBytes, allowedMIMEs: mimes, logger: logger}
}

// Upload stores the image and returns its reference and public URL.
func (s *AttachmentService) Upload(ctx context.Context, filename, contentType string, data []byte) (*dto.UploadImageResponse, error) {
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty upload")
	}
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload exceeds size limit")
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only image uploads are accepted")
	}
	if len(s.allowedMIMEs) > 0 {
		if _, ok := s.allowedMIMEs[contentType]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported image type")
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	ref := "avisos/" + uuid.NewString() + ext

	url, err := s.store.Put(ctx, ref, contentType, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}

	s.logger.Info("attachment uploaded", zap.String("ref", ref), zap.Int("bytes", len(data)))
	return &dto.UploadImageResponse{Success: true, Ref: ref, ImagenURL: url}, nil
}

// Exists reports whether a previously uploaded attachment is present.
func (s *AttachmentService) Exists(ctx context.Context, ref string) (bool, error) {
	return s.store.Exists(ctx, ref)
}
