package classifier

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ElementType тип элементов тензора.
type ElementType string

const (
	Uint8   ElementType = "uint8"
	Float32 ElementType = "float32"
)

const (
	LayoutNHWC = "NHWC"
	LayoutNCHW = "NCHW"

	OrderRGB = "RGB"
	OrderBGR = "BGR"
)

// DefaultLabels используется, если файл меток не найден.
var DefaultLabels = []string{"bearing_failure", "connect_disconnection", "normal", "overheating"}

// Quantization — аффинные параметры квантования тензора.
type Quantization struct {
	Scale     float64 `json:"scale"`
	ZeroPoint int     `json:"zero_point"`
}

// Metadata описывает артефакт модели: форму и тип входа/выхода, квантование и классы.
type Metadata struct {
	InputName          string       `json:"input_name"`
	OutputName         string       `json:"output_name"`
	InputShape         []int64      `json:"input_shape"`
	OutputShape        []int64      `json:"output_shape"`
	InputType          ElementType  `json:"input_type"`
	OutputType         ElementType  `json:"output_type"`
	Layout             string       `json:"layout"`
	ChannelOrder       string       `json:"channel_order"`
	InputQuantization  Quantization `json:"input_quantization"`
	OutputQuantization Quantization `json:"output_quantization"`
	Classes            []string     `json:"classes"`
	ImageSize          int          `json:"image_size"`
}

// LoadMetadata читает JSON-описание модели и подставляет значения по умолчанию.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, &ModelLoadError{Path: path, Err: fmt.Errorf("failed to read metadata: %w", err)}
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, &ModelLoadError{Path: path, Err: fmt.Errorf("failed to parse metadata: %w", err)}
	}

	meta.applyDefaults()
	return meta, nil
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if m.InputType == "" {
		m.InputType = Float32
	}
	if m.OutputType == "" {
		m.OutputType = Float32
	}
	m.Layout = strings.ToUpper(m.Layout)
	if m.Layout == "" {
		m.Layout = LayoutNHWC
	}
	m.ChannelOrder = strings.ToUpper(m.ChannelOrder)
	if m.ChannelOrder == "" {
		m.ChannelOrder = OrderRGB
	}
	if m.ImageSize == 0 {
		m.ImageSize = 224
	}
	if len(m.InputShape) == 0 {
		s := int64(m.ImageSize)
		if m.Layout == LayoutNCHW {
			m.InputShape = []int64{1, 3, s, s}
		} else {
			m.InputShape = []int64{1, s, s, 3}
		}
	}
	if len(m.OutputShape) == 0 && len(m.Classes) > 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
}

// Geometry возвращает высоту и ширину входа модели.
func (m Metadata) Geometry() (height, width int, err error) {
	if len(m.InputShape) != 4 {
		return 0, 0, fmt.Errorf("input shape %v: expected 4 dimensions", m.InputShape)
	}
	if m.InputShape[0] != 1 {
		return 0, 0, fmt.Errorf("input shape %v: batch size must be 1", m.InputShape)
	}

	var c int64
	switch m.Layout {
	case LayoutNHWC:
		height, width, c = int(m.InputShape[1]), int(m.InputShape[2]), m.InputShape[3]
	case LayoutNCHW:
		c, height, width = m.InputShape[1], int(m.InputShape[2]), int(m.InputShape[3])
	default:
		return 0, 0, fmt.Errorf("unsupported layout %q", m.Layout)
	}

	if c != 3 {
		return 0, 0, fmt.Errorf("input shape %v: expected 3 channels", m.InputShape)
	}
	if height <= 0 || width <= 0 {
		return 0, 0, fmt.Errorf("input shape %v: non-positive spatial size", m.InputShape)
	}
	return height, width, nil
}

// OutputWidth возвращает число выходных каналов (произведение измерений кроме batch).
func (m Metadata) OutputWidth() int {
	if len(m.OutputShape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range m.OutputShape[1:] {
		n *= d
	}
	if len(m.OutputShape) == 1 {
		n = m.OutputShape[0]
	}
	return int(n)
}

// Validate проверяет, что модель поддерживается.
func (m Metadata) Validate() error {
	if _, _, err := m.Geometry(); err != nil {
		return err
	}
	if m.InputType != Uint8 && m.InputType != Float32 {
		return fmt.Errorf("unsupported input type %q", m.InputType)
	}
	if m.OutputType != Uint8 && m.OutputType != Float32 {
		return fmt.Errorf("unsupported output type %q", m.OutputType)
	}
	if m.ChannelOrder != OrderRGB && m.ChannelOrder != OrderBGR {
		return fmt.Errorf("unsupported channel order %q", m.ChannelOrder)
	}
	if m.OutputWidth() <= 0 {
		return fmt.Errorf("output shape %v: no classes", m.OutputShape)
	}
	return nil
}

// LoadLabels читает метки (по одной на строку). Если файла нет, используется
// fallback, а если и он пуст — DefaultLabels.
func LoadLabels(path string, fallback []string) ([]string, error) {
	defaults := func() []string {
		if len(fallback) > 0 {
			return append([]string(nil), fallback...)
		}
		return append([]string(nil), DefaultLabels...)
	}

	if path == "" {
		return defaults(), nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults(), nil
	}
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: fmt.Errorf("failed to open labels: %w", err)}
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ModelLoadError{Path: path, Err: fmt.Errorf("failed to read labels: %w", err)}
	}
	return labels, nil
}

func validateLabels(labels []string, width int) error {
	if len(labels) == 0 {
		return errors.New("label list is empty")
	}
	if len(labels) != width {
		return fmt.Errorf("model emits %d classes, label list has %d", width, len(labels))
	}

	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		key := strings.ToLower(strings.TrimSpace(l))
		if key == "" {
			return errors.New("blank label")
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate label %q", l)
		}
		seen[key] = struct{}{}
	}
	return nil
}
