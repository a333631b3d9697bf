package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxSourcePixels bounds decoded source images before any pixel buffer is allocated.
const maxSourcePixels = 64 << 20

// decodeAndResize decodes a png, jpeg, gif or webp body and stretches it to size x size.
func decodeAndResize(data []byte, size int) (*image.RGBA, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("empty %s image", format)
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return nil, errTooManyPixels
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	// Aspect ratio is not preserved; every artifact has the same square shape.
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

var errTooManyPixels = errors.New("source image exceeds pixel limit")
