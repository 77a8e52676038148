//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"

	"gocv.io/x/gocv"
)

// Annotate рисует рамку и подпись на JPEG-кадре и возвращает новый JPEG.
// Исходные байты не изменяются.
func Annotate(imageData []byte, a Annotation) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}

	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	c := a.color()
	rect := image.Rect(0, 0, mat.Cols(), mat.Rows())
	gocv.Rectangle(&mat, rect.Inset(borderWidth/2), c, borderWidth)

	banner := image.Rect(borderWidth, borderWidth, mat.Cols()-borderWidth, min(borderWidth+bannerHeight, mat.Rows()))
	gocv.Rectangle(&mat, banner, color.RGBA{A: 255}, -1)
	gocv.PutText(&mat, a.Text(), image.Pt(borderWidth+4, borderWidth+16), gocv.FontHersheySimplex, 0.5, c, 1)

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}
