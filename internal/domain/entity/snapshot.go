package entity

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceCapture хранит JPEG-кадр, на котором была зафиксирована неисправность.
type EvidenceCapture struct {
	Image      []byte
	CapturedAt time.Time
	Label      string
	Confidence float64 // проценты
}

// Snapshot — согласованная копия текущего состояния монитора.
type Snapshot struct {
	Verdict       Verdict
	Probabilities ClassProbabilities
	Evidence      *EvidenceCapture
	HysteresisEnd time.Time
	EpisodeID     uuid.UUID // uuid.Nil, если неисправностей ещё не было
	UpdatedAt     time.Time
}

// HasEvidence сообщает, есть ли сохранённый кадр.
func (s Snapshot) HasEvidence() bool {
	return s.Evidence != nil && len(s.Evidence.Image) > 0
}

// StateChange описывает переход NORMAL <-> FAULT.
type StateChange struct {
	EpisodeID uuid.UUID `json:"episode_id"`
	Previous  Verdict   `json:"previous"`
	Current   Verdict   `json:"current"`
	At        time.Time `json:"at"`
}

// Entered сообщает, что началась новая неисправность.
func (c StateChange) Entered() bool {
	return !c.Previous.IsFault && c.Current.IsFault
}
