package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/skbvisuals/skb/internal/catalog"
	"github.com/skbvisuals/skb/internal/config"
)

// ErrNoSource у элемента нет ни постера, ни видео на диске
var ErrNoSource = errors.New("no local source for thumbnail")

// ThumbnailGenerator генерирует постеры карточек ленты
type ThumbnailGenerator struct {
	cfg        *config.Config
	assetsPath string
	cachePath  string
}

// NewThumbnailGenerator создает новый генератор превью
func NewThumbnailGenerator(cfg *config.Config) *ThumbnailGenerator {
	return &ThumbnailGenerator{
		cfg:        cfg,
		assetsPath: cfg.Storage.AssetsPath,
		cachePath:  cfg.Storage.CachePath,
	}
}

// EnsureCacheDir создает директорию кэша если не существует
func (t *ThumbnailGenerator) EnsureCacheDir() error {
	thumbDir := filepath.Join(t.cachePath, "thumbs")
	return os.MkdirAll(thumbDir, 0755)
}

// GetThumbnailPath возвращает путь к превью
func (t *ThumbnailGenerator) GetThumbnailPath(itemID int) string {
	return filepath.Join(t.cachePath, "thumbs", strconv.Itoa(itemID)+".jpg")
}

// ThumbnailExists проверяет существование превью
func (t *ThumbnailGenerator) ThumbnailExists(itemID int) bool {
	_, err := os.Stat(t.GetThumbnailPath(itemID))
	return err == nil
}

// DeleteThumbnail удаляет превью элемента
func (t *ThumbnailGenerator) DeleteThumbnail(itemID int) {
	os.Remove(t.GetThumbnailPath(itemID)) // файла может не быть
}

// AssetPath переводит URI вида /assets/... в путь на диске.
// Внешние адреса (http://...) локального файла не имеют.
func (t *ThumbnailGenerator) AssetPath(uri string) (string, bool) {
	if uri == "" || strings.Contains(uri, "://") {
		return "", false
	}
	rel := strings.TrimPrefix(uri, "/assets/")
	rel = filepath.Clean("/" + rel)
	return filepath.Join(t.assetsPath, rel), true
}

// GenerateThumbnail генерирует превью для элемента каталога
func (t *ThumbnailGenerator) GenerateThumbnail(ctx context.Context, item catalog.MediaItem) (string, error) {
	if err := t.EnsureCacheDir(); err != nil {
		return "", err
	}

	thumbPath := t.GetThumbnailPath(item.ID)

	// Если превью уже существует, возвращаем путь
	if _, err := os.Stat(thumbPath); err == nil {
		return thumbPath, nil
	}

	img, err := t.loadSource(ctx, item)
	if err != nil {
		return "", fmt.Errorf("failed to load source: %w", err)
	}

	thumb := imaging.Fill(img, t.cfg.Thumbnails.Width, t.cfg.Thumbnails.Height, imaging.Center, imaging.Lanczos)

	// Пишем во временный файл, чтобы не отдать недописанный JPEG
	tmp := thumbPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: t.cfg.Thumbnails.Quality}); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}

	if err := os.Rename(tmp, thumbPath); err != nil {
		return "", err
	}

	return thumbPath, nil
}

func (t *ThumbnailGenerator) loadSource(ctx context.Context, item catalog.MediaItem) (image.Image, error) {
	for _, uri := range []string{item.ThumbURI, item.VideoURI} {
		path, ok := t.AssetPath(uri)
		if !ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return t.decodeSource(ctx, path)
	}
	return nil, ErrNoSource
}

// decodeSource выбирает способ чтения по содержимому файла, а не по расширению
func (t *ThumbnailGenerator) decodeSource(ctx context.Context, path string) (image.Image, error) {
	info, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	switch info.Kind {
	case KindImage:
		return t.loadImage(path)
	case KindVideo:
		return t.extractVideoFrame(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// loadImage загружает постер с учетом EXIF-ориентации
func (t *ThumbnailGenerator) loadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	if o := ReadOrientation(path); o > 1 {
		img = applyOrientation(img, o)
	}
	return img, nil
}

// extractVideoFrame извлекает кадр из видео через ffmpeg
func (t *ThumbnailGenerator) extractVideoFrame(ctx context.Context, path string) (image.Image, error) {
	// ffmpeg -i video.mp4 -ss 00:00:01 -vframes 1 -f image2pipe -vcodec mjpeg -
	cmd := exec.CommandContext(ctx, t.cfg.Tools.Ffmpeg,
		"-i", path,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)

	output, err := cmd.Output()
	if err != nil || len(output) == 0 {
		// Пробуем с начала файла, если 1 секунда недоступна
		cmd = exec.CommandContext(ctx, t.cfg.Tools.Ffmpeg,
			"-i", path,
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-",
		)
		output, err = cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg failed: %w", err)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(output))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}

	return img, nil
}

// applyOrientation применяет EXIF ориентацию к изображению
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
