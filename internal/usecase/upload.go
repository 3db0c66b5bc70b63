package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"github.com/Nengock/katepeh/internal/domain"
	"github.com/Nengock/katepeh/internal/recognition"
)

// UploadUseCase stores incoming card photos. The stored file never carries
// extracted data, only the raw upload under a generated key.
type UploadUseCase struct {
	storage domain.FileStorage
	pre     *recognition.Preprocessor
	logger  *slog.Logger
}

func NewUploadUseCase(storage domain.FileStorage, pre *recognition.Preprocessor, logger *slog.Logger) *UploadUseCase {
	return &UploadUseCase{storage: storage, pre: pre, logger: logger}
}

// UploadResult carries the generated file ID and a URL the stored file can
// be fetched from.
type UploadResult struct {
	FileID string
	URL    string
}

// Upload verifies the bytes decode as an image and writes them to storage.
// The storage backend decides the base path, so the key is just the
// generated ID plus the upload's extension.
func (u *UploadUseCase) Upload(ctx context.Context, data []byte, meta UploadMeta) (*UploadResult, error) {
	if _, err := u.pre.Decode(data); err != nil {
		return nil, err
	}

	id := uuid.New()
	ext := path.Ext(meta.FileName)
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("%s%s", id, ext)

	if _, err := u.storage.Upload(ctx, key, meta.ContentType, data); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	url, err := u.storage.GetURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload url: %w", err)
	}

	u.logger.Info("stored upload",
		slog.String("file_id", id.String()),
		slog.Int64("size_bytes", meta.SizeBytes))

	return &UploadResult{FileID: id.String(), URL: url}, nil
}
