package vision

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"equipment-guard/internal/domain/entity"
)

// ErrEmptyImage — нечего аннотировать.
var ErrEmptyImage = errors.New("empty image")

var (
	faultColor  = color.RGBA{R: 255, A: 255}
	normalColor = color.RGBA{G: 255, A: 255}
)

const (
	borderWidth  = 4
	bannerHeight = 22
)

// Annotation — подпись для кадра-доказательства.
type Annotation struct {
	Label      string
	Confidence float64 // проценты
	IsFault    bool
	At         time.Time
}

// EvidenceAnnotation строит подпись из метки и уверенности самого кадра.
func EvidenceAnnotation(ev *entity.EvidenceCapture) Annotation {
	return Annotation{Label: ev.Label, Confidence: ev.Confidence, IsFault: true, At: ev.CapturedAt}
}

// Text возвращает строку, которая рисуется на кадре.
func (a Annotation) Text() string {
	s := fmt.Sprintf("%s %.1f%%", strings.ToUpper(a.Label), a.Confidence)
	if !a.At.IsZero() {
		s += " " + a.At.UTC().Format("2006-01-02 15:04:05Z")
	}
	return s
}

func (a Annotation) color() color.RGBA {
	if a.IsFault {
		return faultColor
	}
	return normalColor
}
