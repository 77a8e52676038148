package entity

import (
	"encoding/json"
	"math"
)

// ClassProbabilities — упорядоченный набор вероятностей по классам.
// После создания не изменяется, поэтому его можно отдавать читателям без копирования.
type ClassProbabilities struct {
	labels []string
	values []float64
}

// NewClassProbabilities связывает метки и значения по индексу.
// Если длины различаются, берётся общая часть.
func NewClassProbabilities(labels []string, values []float64) ClassProbabilities {
	n := min(len(labels), len(values))
	p := ClassProbabilities{
		labels: make([]string, n),
		values: make([]float64, n),
	}
	copy(p.labels, labels[:n])
	copy(p.values, values[:n])
	return p
}

// Len возвращает количество классов.
func (p ClassProbabilities) Len() int {
	return len(p.labels)
}

// Labels возвращает метки в порядке модели.
func (p ClassProbabilities) Labels() []string {
	out := make([]string, len(p.labels))
	copy(out, p.labels)
	return out
}

// At возвращает метку и вероятность по индексу.
func (p ClassProbabilities) At(i int) (string, float64) {
	return p.labels[i], p.values[i]
}

// Get возвращает вероятность класса.
func (p ClassProbabilities) Get(label string) (float64, bool) {
	for i, l := range p.labels {
		if l == label {
			return p.values[i], true
		}
	}
	return 0, false
}

// Sum возвращает сумму всех вероятностей.
func (p ClassProbabilities) Sum() float64 {
	var s float64
	for _, v := range p.values {
		s += v
	}
	return s
}

// Map возвращает копию в виде map.
func (p ClassProbabilities) Map() map[string]float64 {
	out := make(map[string]float64, len(p.labels))
	for i, l := range p.labels {
		out[l] = p.values[i]
	}
	return out
}

// Percent возвращает вероятности в процентах с одним знаком после запятой.
func (p ClassProbabilities) Percent() map[string]float64 {
	out := make(map[string]float64, len(p.labels))
	for i, l := range p.labels {
		out[l] = ToPercent(p.values[i])
	}
	return out
}

func (p ClassProbabilities) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

// ToPercent переводит вероятность [0,1] в проценты, округляя до 0.1.
func ToPercent(v float64) float64 {
	return math.Round(v*1000) / 10
}
