package classifier

import (
	"fmt"
	"strings"

	"equipment-guard/internal/domain/entity"
)

// Thresholds — пороги адаптивного решения.
// Strong и Moderate сейчас дают одинаковый результат, но настраиваются отдельно.
type Thresholds struct {
	StrongDefect      float64 // defect > Strong -> неисправность
	ModerateDefect    float64 // defect > Moderate -> неисправность
	WeakDefect        float64 // defect > Weak и normal < WeakNormalCeiling -> неисправность
	WeakNormalCeiling float64
}

// DefaultThresholds возвращает рабочие пороги.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongDefect:      0.40,
		ModerateDefect:    0.25,
		WeakDefect:        0.15,
		WeakNormalCeiling: 0.60,
	}
}

// Validate проверяет порядок порогов.
func (t Thresholds) Validate() error {
	if t.WeakDefect < 0 || t.StrongDefect > 1 || t.WeakNormalCeiling < 0 || t.WeakNormalCeiling > 1 {
		return fmt.Errorf("thresholds out of [0,1]: %+v", t)
	}
	if !(t.WeakDefect <= t.ModerateDefect && t.ModerateDefect <= t.StrongDefect) {
		return fmt.Errorf("thresholds must satisfy weak <= moderate <= strong: %+v", t)
	}
	return nil
}

// Decide принимает решение по вероятностям классов.
// При равенстве побеждает дефект, встретившийся первым в порядке меток.
func Decide(probs entity.ClassProbabilities, t Thresholds) *entity.Prediction {
	var normalConf, defectConf float64
	bestDefect := entity.LabelNormal

	for i := 0; i < probs.Len(); i++ {
		label, p := probs.At(i)
		if strings.EqualFold(label, entity.LabelNormal) {
			normalConf = p
			continue
		}
		if p > defectConf {
			defectConf = p
			bestDefect = label
		}
	}

	pred := &entity.Prediction{
		NormalConfidence: normalConf,
		DefectConfidence: defectConf,
		Probabilities:    probs,
	}

	switch {
	case defectConf > t.StrongDefect:
		pred.Label, pred.Confidence, pred.IsFault = bestDefect, defectConf, true
	case defectConf > t.ModerateDefect:
		pred.Label, pred.Confidence, pred.IsFault = bestDefect, defectConf, true
	case defectConf > t.WeakDefect && normalConf < t.WeakNormalCeiling:
		pred.Label, pred.Confidence, pred.IsFault = bestDefect, defectConf, true
	default:
		pred.Label, pred.Confidence = entity.LabelNormal, normalConf
	}

	return pred
}
