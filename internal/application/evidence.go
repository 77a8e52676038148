package app

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
)

// ErrNoFrame — камера не вернула кадр.
var ErrNoFrame = errors.New("no frame available")

// EncodeJPEG кодирует кадр в JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoFrame
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
