package fetch

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeAndResizeStretchesToSquare(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	data := encodePNG(t, solidImage(30, 10, red))

	img, err := decodeAndResize(data, 400)
	if err != nil {
		t.Fatalf("decodeAndResize error: %v", err)
	}

	if got := img.Bounds(); got != image.Rect(0, 0, 400, 400) {
		t.Fatalf("bounds = %v, want 400x400", got)
	}
	if got := img.RGBAAt(200, 200); got != red {
		t.Fatalf("center pixel = %v, want %v", got, red)
	}
}

func TestDecodeAndResizeFormats(t *testing.T) {
	src := solidImage(8, 8, color.RGBA{G: 200, A: 255})

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, src, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, src, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	for name, data := range map[string][]byte{"jpeg": jpegBuf.Bytes(), "gif": gifBuf.Bytes(), "png": encodePNG(t, src)} {
		img, err := decodeAndResize(data, 16)
		if err != nil {
			t.Fatalf("%s: decodeAndResize error: %v", name, err)
		}
		if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
			t.Fatalf("%s: bounds = %v, want 16x16", name, img.Bounds())
		}
	}
}

func TestDecodeAndResizeRejectsGarbage(t *testing.T) {
	if _, err := decodeAndResize([]byte("<html>not an image</html>"), 400); err == nil {
		t.Fatal("expected decode error")
	}
}
