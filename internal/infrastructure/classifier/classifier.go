package classifier

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"equipment-guard/internal/domain/entity"
	"equipment-guard/internal/domain/port"
)

// Input — подготовленный тензор; заполнено ровно одно поле согласно типу входа модели.
type Input struct {
	Uint8   []uint8
	Float32 []float32
}

// Engine выполняет прямой проход модели и возвращает сырые выходные значения.
type Engine interface {
	Run(in Input) ([]float32, error)
}

// Options настройки классификатора.
type Options struct {
	Thresholds Thresholds
	Policy     QuantizationPolicy
	Logger     *zap.Logger
}

// Classifier — квантованный классификатор кадров. Состояния между вызовами нет.
type Classifier struct {
	engine     Engine
	meta       Metadata
	labels     []string
	height     int
	width      int
	thresholds Thresholds
	policy     QuantizationPolicy
	logger     *zap.Logger
}

// New проверяет модель и метки и собирает классификатор.
func New(engine Engine, meta Metadata, labels []string, opts Options) (*Classifier, error) {
	if engine == nil {
		return nil, loadError("", "engine is not configured")
	}
	meta.applyDefaults()
	if err := meta.Validate(); err != nil {
		return nil, &ModelLoadError{Err: err}
	}
	if err := validateLabels(labels, meta.OutputWidth()); err != nil {
		return nil, &ModelLoadError{Err: err}
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if opts.Policy == "" {
		opts.Policy = PolicyRequantize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	h, w, _ := meta.Geometry()
	c := &Classifier{
		engine:     engine,
		meta:       meta,
		labels:     append([]string(nil), labels...),
		height:     h,
		width:      w,
		thresholds: opts.Thresholds,
		policy:     opts.Policy,
		logger:     opts.Logger,
	}

	c.logger.Info("Classifier ready",
		zap.Strings("labels", c.labels),
		zap.String("input_type", string(meta.InputType)),
		zap.Float64("input_scale", meta.InputQuantization.Scale),
		zap.Int("input_zero_point", meta.InputQuantization.ZeroPoint),
		zap.String("policy", string(c.policy)))

	return c, nil
}

// Labels возвращает метки классов.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Predict классифицирует кадр: подготовка, прямой проход, деквантование,
// softmax и адаптивное решение.
func (c *Classifier) Predict(frame image.Image) (*entity.Prediction, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrInvalidFrame
	}

	input := c.prepare(frame)

	raw, err := c.engine.Run(input)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("inference failed: empty output")
	}

	var scores []float64
	if c.meta.OutputQuantization.Scale > 0 {
		scores = Dequantize(raw, c.meta.OutputQuantization)
	} else {
		scores = make([]float64, len(raw))
		for i, v := range raw {
			scores[i] = float64(v)
		}
	}

	probs := entity.NewClassProbabilities(c.labels, Softmax(scores))
	pred := Decide(probs, c.thresholds)

	c.logger.Debug("Prediction",
		zap.String("label", pred.Label),
		zap.Float64("confidence", pred.Confidence),
		zap.Float64("normal", pred.NormalConfidence),
		zap.Float64("defect", pred.DefectConfidence))

	return pred, nil
}

// prepare приводит кадр к размеру, порядку каналов и представлению входа модели.
func (c *Classifier) prepare(frame image.Image) Input {
	resized := resize.Resize(uint(c.width), uint(c.height), frame, resize.Bilinear)
	bounds := resized.Bounds()

	pixels := c.width * c.height
	raw := make([]uint8, 3*pixels)
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			px := [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
			if c.meta.ChannelOrder == OrderBGR {
				px[0], px[2] = px[2], px[0]
			}

			i := y*c.width + x
			for ch := 0; ch < 3; ch++ {
				if c.meta.Layout == LayoutNCHW {
					raw[ch*pixels+i] = px[ch]
				} else {
					raw[i*3+ch] = px[ch]
				}
			}
		}
	}

	if c.meta.InputType == Float32 {
		data := make([]float32, len(raw))
		for i, v := range raw {
			data[i] = float32(v) / 255
		}
		return Input{Float32: data}
	}

	q := c.meta.InputQuantization
	if c.policy == PolicyRaw || q.Degenerate() {
		return Input{Uint8: raw}
	}
	for i, v := range raw {
		raw[i] = Quantize(float64(v)/255, q)
	}
	return Input{Uint8: raw}
}

var _ port.Classifier = (*Classifier)(nil)
