package attachment

import (
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder for image.Decode
	"image/jpeg"
	_ "image/png" // register PNG decoder for image.Decode
	"os"

	"github.com/disintegration/imaging"
)

const (
	thumbnailWidth   = 400
	thumbnailQuality = 85
)

// renderThumbnail decodes the image at src and writes a width-bounded JPEG
// thumbnail to dst. Height scales to preserve aspect ratio.
func renderThumbnail(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Close()
}
