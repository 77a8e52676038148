package port

import (
	"image"

	"equipment-guard/internal/domain/entity"
)

// Classifier интерфейс классификатора состояния оборудования
type Classifier interface {
	// Predict классифицирует кадр и принимает решение норма/неисправность
	Predict(frame image.Image) (*entity.Prediction, error)
}
