package classifier

import (
	"fmt"
	"math"
)

// QuantizationPolicy определяет, как готовить 8-битный вход модели.
type QuantizationPolicy string

const (
	// PolicyRequantize: norm/scale + zero_point; при вырожденном scale — сырые пиксели.
	PolicyRequantize QuantizationPolicy = "requantize"
	// PolicyRaw: всегда сырые пиксели 0..255.
	PolicyRaw QuantizationPolicy = "raw"
)

// ParseQuantizationPolicy разбирает значение из конфигурации.
func ParseQuantizationPolicy(s string) (QuantizationPolicy, error) {
	switch QuantizationPolicy(s) {
	case "", PolicyRequantize:
		return PolicyRequantize, nil
	case PolicyRaw:
		return PolicyRaw, nil
	}
	return "", fmt.Errorf("unknown quantization policy %q", s)
}

// Degenerate сообщает, что параметры не задают осмысленного квантования
// (scale ≈ 0 или scale ≈ 1 при zero_point = 0).
func (q Quantization) Degenerate() bool {
	if math.Abs(q.Scale) < 1e-9 {
		return true
	}
	return math.Abs(q.Scale-1) < 1e-6 && q.ZeroPoint == 0
}

// Quantize переводит нормированное значение [0,1] в uint8: round(v/scale) + zero_point.
func Quantize(v float64, q Quantization) uint8 {
	x := math.Round(v/q.Scale) + float64(q.ZeroPoint)
	return uint8(max(0, min(255, x)))
}

// Dequantize возвращает (raw - zero_point) * scale для каждого значения.
func Dequantize(raw []float32, q Quantization) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = (float64(v) - float64(q.ZeroPoint)) * q.Scale
	}
	return out
}

// Softmax нормирует оценки в распределение вероятностей.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	peak := scores[0]
	for _, v := range scores[1:] {
		peak = max(peak, v)
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, v := range scores {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
