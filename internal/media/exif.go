package media

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// ReadOrientation читает EXIF-ориентацию постера.
// Не все файлы имеют EXIF: в этом случае возвращается 1.
func ReadOrientation(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 1
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	val, err := tag.Int(0)
	if err != nil || val < 1 || val > 8 {
		return 1
	}
	return val
}
