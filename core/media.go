package core

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxImageBytes = 10 << 20

	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeGIF  = "image/gif"
	MediaTypeWebP = "image/webp"
)

// MediaTypeFromFileName maps the uploaded file extension to the media type the
// vision model is told about. Unknown extensions fall back to JPEG.
func MediaTypeFromFileName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return MediaTypePNG
	case ".gif":
		return MediaTypeGIF
	case ".webp":
		return MediaTypeWebP
	default:
		return MediaTypeJPEG
	}
}

// CheckDeclaredType rejects a declared content type that is not an image. An
// empty or generic declaration is resolved by sniffing the payload.
func CheckDeclaredType(declared string, data []byte) error {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		if strings.HasPrefix(declared, "image/") {
			return nil
		}

		return ErrNotImage
	}

	if len(data) == 0 {
		return nil
	}

	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return ErrNotImage
	}

	return nil
}

func ValidateImage(image Image) error {
	if len(image.Data) == 0 {
		return ErrNoImage
	}

	if len(image.Data) > MaxImageBytes {
		return ErrImageTooLarge
	}

	return nil
}
