package upload

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipe-service/domain"
)

const defaultURLTTL = 10 * time.Minute

var allowedExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type (
	// RawBucket is the raw-upload bucket as seen by the upload flow.
	RawBucket interface {
		PublicURL(key string) string
		PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, time.Time, error)
	}

	UploadService interface {
		InitUpload(ctx context.Context, req domain.UploadInitRequest) (domain.UploadInitResponse, error)
	}

	uploadService struct {
		bucket RawBucket
		ttl    time.Duration
	}
)

func NewUploadService(bucket RawBucket, ttl time.Duration) UploadService {
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	return &uploadService{bucket: bucket, ttl: ttl}
}

// InitUpload reserves a fresh raw blob name and returns a presigned PUT url for it.
func (s *uploadService) InitUpload(ctx context.Context, req domain.UploadInitRequest) (domain.UploadInitResponse, error) {
	blobName := "recipes/" + uuid.NewString() + resolveExtension(req.FileName, req.ContentType)

	uploadURL, expiresOn, err := s.bucket.PresignUpload(ctx, blobName, strings.TrimSpace(req.ContentType), s.ttl)
	if err != nil {
		return domain.UploadInitResponse{}, err
	}
	return domain.UploadInitResponse{
		BlobName:   blobName,
		RawBlobURL: s.bucket.PublicURL(blobName),
		UploadURL:  uploadURL,
		ExpiresOn:  expiresOn,
	}, nil
}

func resolveExtension(fileName, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))); ext != "" {
		return ext
	}
	if ext, ok := allowedExtensions[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return ext
	}
	return ".bin"
}
