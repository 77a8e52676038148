package camera

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"equipment-guard/internal/domain/port"
)

const noSignalText = "No Camera Signal"

// Config параметры камеры.
type Config struct {
	Source string // индекс устройства или URL потока
	Width  int
	Height int
	FPS    int
}

// Placeholder рисует чёрный кадр с надписью об отсутствии сигнала.
func Placeholder(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(width/4, height/2),
	}
	d.DrawString(noSignalText)
	return img
}

// PlaceholderCamera всегда отдаёт заглушку; используется, когда камера недоступна.
type PlaceholderCamera struct {
	frame image.Image
}

// NewPlaceholderCamera создаёт камеру-заглушку заданного размера.
func NewPlaceholderCamera(width, height int) *PlaceholderCamera {
	return &PlaceholderCamera{frame: Placeholder(width, height)}
}

// Read возвращает заглушку.
func (c *PlaceholderCamera) Read() image.Image {
	return c.frame
}

var _ port.Camera = (*PlaceholderCamera)(nil)
