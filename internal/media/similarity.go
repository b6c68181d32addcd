package media

import (
	"fmt"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

// PosterHash вычисляет perceptual hash (dHash) готового постера
func (t *ThumbnailGenerator) PosterHash(itemID int) (uint64, error) {
	img, err := imaging.Open(t.GetThumbnailPath(itemID))
	if err != nil {
		return 0, err
	}

	// DifferenceHash хорошо находит один и тот же кадр после перекодирования
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate hash: %w", err)
	}

	return hash.GetHash(), nil
}

// HashDistance возвращает расстояние Хэмминга между двумя dHash.
// distance < 10 обычно означает похожие изображения.
func HashDistance(a, b uint64) int {
	d, err := goimagehash.NewImageHash(a, goimagehash.DHash).
		Distance(goimagehash.NewImageHash(b, goimagehash.DHash))
	if err != nil {
		return 64
	}
	return d
}
