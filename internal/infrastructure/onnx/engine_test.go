package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"equipment-guard/internal/infrastructure/classifier"
)

func TestNewEngine_RejectsInvalidMetadata(t *testing.T) {
	meta := classifier.Metadata{
		InputShape:   []int64{1, 224, 224, 1},
		OutputShape:  []int64{1, 4},
		InputType:    classifier.Uint8,
		OutputType:   classifier.Uint8,
		Layout:       classifier.LayoutNHWC,
		ChannelOrder: classifier.OrderRGB,
	}

	_, err := NewEngine("", "model.onnx", meta)
	var loadErr *classifier.ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, "model.onnx", loadErr.Path)
}

func TestNewEngine_MissingModel(t *testing.T) {
	meta := classifier.Metadata{
		InputName:    "input",
		OutputName:   "output",
		InputShape:   []int64{1, 224, 224, 3},
		OutputShape:  []int64{1, 4},
		InputType:    classifier.Uint8,
		OutputType:   classifier.Uint8,
		Layout:       classifier.LayoutNHWC,
		ChannelOrder: classifier.OrderRGB,
	}

	missing := filepath.Join(t.TempDir(), "missing.onnx")
	_, err := NewEngine(os.Getenv("ONNXRUNTIME_LIB"), missing, meta)
	var loadErr *classifier.ModelLoadError
	require.ErrorAs(t, err, &loadErr)
}
