package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// ErrUnsupportedFormat файл не является изображением или видео, которое мы умеем разбирать
var ErrUnsupportedFormat = errors.New("unsupported media format")

// Kind тип источника для постера
type Kind string

const (
	KindUnknown Kind = ""
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
)

// FormatInfo содержит информацию о формате файла
type FormatInfo struct {
	Kind              Kind
	DetectedMIME      string // MIME тип определенный по содержимому
	DetectedExtension string // Расширение определенное по содержимому
	ClaimedExtension  string // Расширение из имени файла
	ExtensionMatches  bool
}

var (
	supportedImages = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
	}

	supportedVideos = map[string]bool{
		"video/mp4":        true,
		"video/quicktime":  true, // .mov
		"video/x-matroska": true, // .mkv
		"video/webm":       true,
		"video/mpeg":       true,
	}
)

// DetectFormat определяет реальный формат файла по magic bytes
func DetectFormat(path string) (*FormatInfo, error) {
	info := &FormatInfo{
		ClaimedExtension: strings.ToLower(filepath.Ext(path)),
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Читаем заголовок файла
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return info, nil
	}

	info.DetectedMIME = kind.MIME.Value
	info.DetectedExtension = "." + kind.Extension
	info.ExtensionMatches = strings.EqualFold(info.ClaimedExtension, info.DetectedExtension)

	switch {
	case supportedImages[info.DetectedMIME]:
		info.Kind = KindImage
	case supportedVideos[info.DetectedMIME]:
		info.Kind = KindVideo
	}

	return info, nil
}
