package classifier

import (
	"errors"
	"fmt"
)

// ErrInvalidFrame возвращается для пустого кадра; тик нужно пропустить.
var ErrInvalidFrame = errors.New("invalid frame")

// ModelLoadError — модель не удалось открыть или она не соответствует описанию.
// Ошибка фатальна для запуска и не повторяется.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load model: %v", e.Err)
	}
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

func loadError(path string, format string, args ...any) error {
	return &ModelLoadError{Path: path, Err: fmt.Errorf(format, args...)}
}
