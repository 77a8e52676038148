//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotate рисует рамку и подпись на JPEG-кадре и возвращает новый JPEG.
// Исходные байты не изменяются.
func Annotate(imageData []byte, a Annotation) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}

	src, err := jpeg.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)

	c := image.NewUniform(a.color())
	r := img.Bounds()
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+borderWidth), c, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-borderWidth, r.Max.X, r.Max.Y), c, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+borderWidth, r.Max.Y), c, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Max.X-borderWidth, r.Min.Y, r.Max.X, r.Max.Y), c, image.Point{}, draw.Src)

	// Подложка под текст.
	banner := image.Rect(borderWidth, borderWidth, r.Max.X-borderWidth, min(borderWidth+bannerHeight, r.Max.Y))
	draw.Draw(img, banner, image.NewUniform(color.Black), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  c,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(borderWidth+4, borderWidth+15),
	}
	d.DrawString(a.Text())

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
