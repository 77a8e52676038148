package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"equipment-guard/internal/infrastructure/classifier"
)

// Engine выполняет модель через ONNX Runtime с заранее выделенными тензорами.
// Тензоры общие, поэтому Run сериализован.
type Engine struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   ort.ArbitraryTensor
	output  ort.ArbitraryTensor
	inU8    *ort.Tensor[uint8]
	inF32   *ort.Tensor[float32]
	outU8   *ort.Tensor[uint8]
	outF32  *ort.Tensor[float32]
}

// NewEngine загружает модель. Все ошибки возвращаются как *classifier.ModelLoadError.
func NewEngine(libPath, modelPath string, meta classifier.Metadata) (*Engine, error) {
	if err := meta.Validate(); err != nil {
		return nil, &classifier.ModelLoadError{Path: modelPath, Err: err}
	}

	if !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, &classifier.ModelLoadError{Path: modelPath, Err: fmt.Errorf("failed to initialize ONNX environment: %w", err)}
		}
	}

	e := &Engine{}
	if err := e.allocate(meta); err != nil {
		e.Close()
		return nil, &classifier.ModelLoadError{Path: modelPath, Err: err}
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{e.input}, []ort.ArbitraryTensor{e.output},
		nil)
	if err != nil {
		e.Close()
		return nil, &classifier.ModelLoadError{Path: modelPath, Err: fmt.Errorf("failed to create ONNX session: %w", err)}
	}
	e.session = session

	return e, nil
}

func (e *Engine) allocate(meta classifier.Metadata) error {
	inputShape := ort.NewShape(meta.InputShape...)
	outputShape := ort.NewShape(meta.OutputShape...)

	var err error
	switch meta.InputType {
	case classifier.Uint8:
		e.inU8, err = ort.NewEmptyTensor[uint8](inputShape)
		e.input = e.inU8
	default:
		e.inF32, err = ort.NewEmptyTensor[float32](inputShape)
		e.input = e.inF32
	}
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}

	switch meta.OutputType {
	case classifier.Uint8:
		e.outU8, err = ort.NewEmptyTensor[uint8](outputShape)
		e.output = e.outU8
	default:
		e.outF32, err = ort.NewEmptyTensor[float32](outputShape)
		e.output = e.outF32
	}
	if err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}
	return nil
}

// Run копирует вход в тензор, выполняет сессию и возвращает сырой выход.
func (e *Engine) Run(in classifier.Input) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.inU8 != nil:
		if len(in.Uint8) != len(e.inU8.GetData()) {
			return nil, fmt.Errorf("input size %d, model expects %d", len(in.Uint8), len(e.inU8.GetData()))
		}
		copy(e.inU8.GetData(), in.Uint8)
	case e.inF32 != nil:
		if len(in.Float32) != len(e.inF32.GetData()) {
			return nil, fmt.Errorf("input size %d, model expects %d", len(in.Float32), len(e.inF32.GetData()))
		}
		copy(e.inF32.GetData(), in.Float32)
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}

	if e.outU8 != nil {
		data := e.outU8.GetData()
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(v)
		}
		return out, nil
	}
	return append([]float32(nil), e.outF32.GetData()...), nil
}

// Close освобождает тензоры, сессию и окружение.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inU8 != nil {
		e.inU8.Destroy()
	}
	if e.inF32 != nil {
		e.inF32.Destroy()
	}
	if e.outU8 != nil {
		e.outU8.Destroy()
	}
	if e.outF32 != nil {
		e.outF32.Destroy()
	}
	if e.session != nil {
		e.session.Destroy()
	}
	ort.DestroyEnvironment()
}

var _ classifier.Engine = (*Engine)(nil)
