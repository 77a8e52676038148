//go:build gocv
// +build gocv

package camera

import (
	"context"
	"errors"
	"image"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"equipment-guard/internal/domain/port"
)

// GoCVCamera читает кадры в фоне и отдаёт последний без блокировки.
type GoCVCamera struct {
	cfg         Config
	logger      *zap.Logger
	capture     *gocv.VideoCapture
	placeholder image.Image

	mu    sync.RWMutex
	frame image.Image
}

// backends перебираются по порядку, пока устройство не откроется.
var backends = []gocv.VideoCaptureAPI{
	gocv.VideoCaptureV4L2,
	gocv.VideoCaptureDshow,
	gocv.VideoCaptureAny,
}

// Open открывает камеру и читает первый кадр после прогрева.
func Open(cfg Config, logger *zap.Logger) (*GoCVCamera, error) {
	var device interface{} = cfg.Source
	if id, err := strconv.Atoi(cfg.Source); err == nil {
		device = id
	}

	var capture *gocv.VideoCapture
	for _, api := range backends {
		vc, err := gocv.OpenVideoCaptureWithAPI(device, api)
		if err == nil && vc.IsOpened() {
			logger.Info("Camera opened", zap.String("source", cfg.Source), zap.Int("backend", int(api)))
			capture = vc
			break
		}
		if vc != nil {
			vc.Close()
		}
	}
	if capture == nil {
		return nil, errors.New("failed to open camera")
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	time.Sleep(time.Second)

	c := &GoCVCamera{
		cfg:         cfg,
		logger:      logger,
		capture:     capture,
		placeholder: Placeholder(cfg.Width, cfg.Height),
	}
	if !c.grab() {
		logger.Warn("Camera opened but failed to read frame")
	}
	return c, nil
}

// Start читает кадры до отмены контекста и затем закрывает устройство.
func (c *GoCVCamera) Start(ctx context.Context) {
	defer c.capture.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !c.capture.IsOpened() {
			time.Sleep(time.Second)
			continue
		}
		if !c.grab() {
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Read возвращает последний кадр или заглушку. Кадры не изменяются после публикации.
func (c *GoCVCamera) Read() image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frame != nil {
		return c.frame
	}
	return c.placeholder
}

func (c *GoCVCamera) grab() bool {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		return false
	}
	img, err := mat.ToImage()
	if err != nil {
		c.logger.Debug("Frame conversion failed", zap.Error(err))
		return false
	}

	c.mu.Lock()
	c.frame = img
	c.mu.Unlock()
	return true
}

var _ port.Camera = (*GoCVCamera)(nil)
