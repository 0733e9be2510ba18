package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	domainlistings "tumbi/internal/domain/listings"
)

const uploadImagesKey = "media.images.upload"

var (
	ErrNoImages       = errors.New("media: at least one image is required")
	ErrTooManyImages  = fmt.Errorf("media: at most %d images per upload", domainlistings.MaxImages)
	ErrUploadDisabled = errors.New("media: uploader is not configured")
)

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
}

// Image is one already-sniffed upload part.
type Image struct {
	ObjectKey   string
	ContentType string
	Data        []byte
}

type UploadImagesCommand struct {
	UserID string
	Images []Image
}

func (c UploadImagesCommand) Key() string     { return uploadImagesKey }
func (c UploadImagesCommand) ActorID() string { return c.UserID }

func (c UploadImagesCommand) Validate() error {
	switch {
	case len(c.Images) == 0:
		return ErrNoImages
	case len(c.Images) > domainlistings.MaxImages:
		return ErrTooManyImages
	}
	for _, img := range c.Images {
		if len(img.Data) == 0 || strings.TrimSpace(img.ObjectKey) == "" {
			return ErrNoImages
		}
	}
	return nil
}

// UploadImagesHandler pushes every image to object storage and returns URLs in
// request order. Objects already written stay in the bucket if a later part fails.
type UploadImagesHandler struct {
	Logger   *slog.Logger
	Uploader Uploader
}

func (h *UploadImagesHandler) Handle(ctx context.Context, cmd UploadImagesCommand) (dto.UploadResult, error) {
	if h.Uploader == nil {
		return dto.UploadResult{}, ErrUploadDisabled
	}
	urls := make([]string, 0, len(cmd.Images))
	for _, img := range cmd.Images {
		publicURL, err := h.Uploader.Upload(ctx, img.ObjectKey, bytes.NewReader(img.Data), img.ContentType)
		if err != nil {
			return dto.UploadResult{}, fmt.Errorf("upload image: %w", err)
		}
		urls = append(urls, publicURL)
	}
	if h.Logger != nil {
		h.Logger.Info("images uploaded", "user_id", cmd.UserID, "count", len(urls))
	}
	return dto.UploadResult{URLs: urls}, nil
}

var _ commands.Handler[UploadImagesCommand, dto.UploadResult] = (*UploadImagesHandler)(nil)
