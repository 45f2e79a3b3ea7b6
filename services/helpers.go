package services

import (
	"path"
	"strings"
)

// logoExtension подбирает расширение файла для ключа в хранилище.
// Принимаются только изображения.
func logoExtension(contentType, filename string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	}

	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) != 2 || parts[0] != "image" || parts[1] == "" {
		return "", ErrInvalidLogo
	}
	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		return ext, nil
	}
	return "." + strings.Split(parts[1], "+")[0], nil
}
