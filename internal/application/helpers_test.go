package app

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"equipment-guard/internal/domain/entity"
)

var testLabels = []string{"bearing_failure", "connect_disconnection", "normal", "overheating"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func normalPrediction(conf float64) *entity.Prediction {
	rest := (1 - conf) / 3
	return &entity.Prediction{
		Label:            entity.LabelNormal,
		Confidence:       conf,
		NormalConfidence: conf,
		DefectConfidence: rest,
		Probabilities:    entity.NewClassProbabilities(testLabels, []float64{rest, rest, conf, rest}),
	}
}

func faultPrediction(label string, conf float64) *entity.Prediction {
	rest := (1 - conf) / 3
	values := []float64{rest, rest, rest, rest}
	for i, l := range testLabels {
		if l == label {
			values[i] = conf
		}
	}
	return &entity.Prediction{
		Label:            label,
		Confidence:       conf,
		IsFault:          true,
		NormalConfidence: rest,
		DefectConfidence: conf,
		Probabilities:    entity.NewClassProbabilities(testLabels, values),
	}
}

func frame(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type fakeCamera struct {
	mu    sync.Mutex
	frame image.Image
}

func (c *fakeCamera) Read() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

type fakeClassifier struct {
	preds []*entity.Prediction
	err   error
	calls int
}

func (c *fakeClassifier) Predict(image.Image) (*entity.Prediction, error) {
	if c.err != nil {
		return nil, c.err
	}
	p := c.preds[min(c.calls, len(c.preds)-1)]
	c.calls++
	return p, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []entity.StateChange
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, change entity.StateChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

func (p *fakePublisher) All() []entity.StateChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.StateChange(nil), p.changes...)
}

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
	images  [][]byte
}

func (l *fakeLLM) Generate(_ context.Context, prompt string, image []byte) (string, error) {
	l.prompts = append(l.prompts, prompt)
	l.images = append(l.images, image)
	return l.reply, l.err
}
