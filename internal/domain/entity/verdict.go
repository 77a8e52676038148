package entity

const (
	LabelNormal       = "normal"
	LabelInitializing = "initializing"
)

// Prediction — результат классификации одного кадра.
type Prediction struct {
	Label            string  // итоговая метка (дефект или normal)
	Confidence       float64 // уверенность в итоговой метке, [0,1]
	IsFault          bool
	NormalConfidence float64 // вероятность класса normal
	DefectConfidence float64 // максимальная вероятность среди дефектов
	Probabilities    ClassProbabilities
}

// Verdict — опубликованное решение о состоянии оборудования.
type Verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"conf"` // проценты, [0,100]
	IsFault    bool    `json:"is_fault"`
}

// InitialVerdict возвращает решение до первого тика.
func InitialVerdict() Verdict {
	return Verdict{Label: LabelInitializing}
}

// VerdictFromPrediction строит решение из результата классификации.
func VerdictFromPrediction(p *Prediction) Verdict {
	if !p.IsFault {
		return Verdict{
			Label:      LabelNormal,
			Confidence: ToPercent(p.NormalConfidence),
		}
	}
	return Verdict{
		Label:      p.Label,
		Confidence: ToPercent(p.Confidence),
		IsFault:    true,
	}
}
