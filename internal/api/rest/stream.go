package rest

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

const (
	streamWidth    = 800
	streamHeight   = 600
	streamBoundary = "frame"
)

// stream handles GET /stream: MJPEG с кадрами 800x600.
func (s *Server) stream(c *gin.Context) {
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		if frame := s.camera.Read(); frame != nil {
			buf.Reset()
			scaled := resize.Resize(streamWidth, streamHeight, frame, resize.Bilinear)
			if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 80}); err != nil {
				s.logger.Warn("Failed to encode stream frame", zap.Error(err))
			} else if err := writePart(c, buf.Bytes()); err != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(c *gin.Context, img []byte) error {
	if _, err := fmt.Fprintf(c.Writer, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(img)); err != nil {
		return err
	}
	if _, err := c.Writer.Write(img); err != nil {
		return err
	}
	if _, err := c.Writer.Write([]byte("\r\n")); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
