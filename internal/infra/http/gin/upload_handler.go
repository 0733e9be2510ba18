package ginserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	mediaapp "tumbi/internal/app/handlers/media"
	domainlistings "tumbi/internal/domain/listings"
)

const defaultMaxImageBytes = 10 << 20

type UploadHTTP interface {
	Upload(c *gin.Context)
}

// UploadHandler accepts multipart "images" parts and stores them as uploaded.
type UploadHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
	MaxBytes int64
}

func (h UploadHandler) Upload(c *gin.Context) {
	maxBytes := h.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	form, err := c.MultipartForm()
	if err != nil {
		respondBadRequest(c, "multipart form with images is required")
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		respondBadRequest(c, "no images uploaded")
		return
	}
	if len(files) > domainlistings.MaxImages {
		respondBadRequest(c, fmt.Sprintf("at most %d images per upload", domainlistings.MaxImages))
		return
	}

	userID := principalID(c)
	images := make([]mediaapp.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size <= 0 {
			respondBadRequest(c, "file is empty")
			return
		}
		if fh.Size > maxBytes {
			respondBadRequest(c, fmt.Sprintf("file too large (max %d MB)", maxBytes>>20))
			return
		}
		file, err := fh.Open()
		if err != nil {
			respondBadRequest(c, "cannot read file")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		_ = file.Close()
		if err != nil {
			respondError(c, h.Logger, fmt.Errorf("read upload part: %w", err))
			return
		}
		if int64(len(data)) > maxBytes {
			respondBadRequest(c, fmt.Sprintf("file too large (max %d MB)", maxBytes>>20))
			return
		}
		contentType := http.DetectContentType(data)
		if !isAllowedImageType(contentType) {
			respondBadRequest(c, "unsupported content type: "+contentType)
			return
		}
		images = append(images, mediaapp.Image{
			ObjectKey:   buildImageObjectKey(userID, fh.Filename, contentType),
			ContentType: contentType,
			Data:        data,
		})
	}

	cmd := mediaapp.UploadImagesCommand{UserID: userID, Images: images}
	result, err := commands.Dispatch[mediaapp.UploadImagesCommand, dto.UploadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ UploadHTTP = UploadHandler{}

func isAllowedImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// buildImageObjectKey names an object listings/<user>/<uuid><ext>.
func buildImageObjectKey(userID, filename, contentType string) string {
	ext := extensionForContentType(contentType)
	if ext == "" {
		ext = strings.ToLower(path.Ext(filename))
	}
	if ext == "" {
		ext = ".img"
	}
	return fmt.Sprintf("listings/%s/%s%s", sanitizePathToken(userID), uuid.NewString(), ext)
}

func sanitizePathToken(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if result := strings.Trim(b.String(), "-"); result != "" {
		return result
	}
	return "anonymous"
}
