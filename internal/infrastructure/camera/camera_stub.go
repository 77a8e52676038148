//go:build !gocv
// +build !gocv

package camera

import (
	"context"
	"errors"
	"image"

	"go.uber.org/zap"
)

// GoCVCamera — заглушка для сборки без OpenCV.
type GoCVCamera struct {
	placeholder image.Image
}

// Open возвращает ошибку, если сборка без тега gocv.
func Open(cfg Config, logger *zap.Logger) (*GoCVCamera, error) {
	_ = cfg
	_ = logger
	return nil, errors.New("gocv build tag is not enabled")
}

// Start ничего не делает без OpenCV.
func (c *GoCVCamera) Start(ctx context.Context) {
	<-ctx.Done()
}

// Read возвращает заглушку.
func (c *GoCVCamera) Read() image.Image {
	return c.placeholder
}
