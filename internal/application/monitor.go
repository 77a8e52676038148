package app

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"equipment-guard/internal/domain/entity"
)

// CapturePolicy определяет, когда обновлять кадр-доказательство.
type CapturePolicy string

const (
	// CaptureEveryTick: новый кадр при входе в неисправность и на каждом тике неисправности.
	CaptureEveryTick CapturePolicy = "every_tick"
	// CaptureCooldown: новый кадр не чаще одного раза за Cooldown.
	CaptureCooldown CapturePolicy = "cooldown"
)

// ParseCapturePolicy разбирает значение из конфигурации.
func ParseCapturePolicy(s string) (CapturePolicy, error) {
	switch CapturePolicy(s) {
	case "", CaptureEveryTick:
		return CaptureEveryTick, nil
	case CaptureCooldown:
		return CaptureCooldown, nil
	}
	return "", fmt.Errorf("unknown capture policy %q", s)
}

// MonitorOptions настройки конечного автомата.
type MonitorOptions struct {
	Hold     time.Duration // удержание неисправности после последнего тика с дефектом
	Policy   CapturePolicy
	Cooldown time.Duration
	Now      func() time.Time
}

// DefaultMonitorOptions возвращает рабочие значения.
func DefaultMonitorOptions() MonitorOptions {
	return MonitorOptions{
		Hold:     4 * time.Second,
		Policy:   CaptureEveryTick,
		Cooldown: 10 * time.Second,
		Now:      time.Now,
	}
}

// FaultMonitor — конечный автомат NORMAL/FAULT с гистерезисом.
// Пишет только цикл инспекции; читателей может быть сколько угодно.
type FaultMonitor struct {
	hold     time.Duration
	policy   CapturePolicy
	cooldown time.Duration
	now      func() time.Time

	mu            sync.RWMutex
	verdict       entity.Verdict
	probs         entity.ClassProbabilities
	evidence      *entity.EvidenceCapture
	hysteresisEnd time.Time
	episode       uuid.UUID
	updatedAt     time.Time
}

// NewFaultMonitor создаёт автомат в состоянии NORMAL с меткой initializing.
func NewFaultMonitor(opts MonitorOptions) *FaultMonitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == "" {
		opts.Policy = CaptureEveryTick
	}
	return &FaultMonitor{
		hold:     opts.Hold,
		policy:   opts.Policy,
		cooldown: opts.Cooldown,
		now:      opts.Now,
		verdict:  entity.InitialVerdict(),
	}
}

// Observe применяет решение одного тика. Возвращает StateChange при переходе
// NORMAL <-> FAULT. Ошибка означает только неудачную запись кадра; решение
// при этом всё равно опубликовано.
func (m *FaultMonitor) Observe(pred *entity.Prediction, frame image.Image) (*entity.StateChange, error) {
	now := m.now()

	// Кадр кодируется до захвата блокировки.
	var capture *entity.EvidenceCapture
	var captureErr error
	if pred.IsFault && m.captureDue(now) {
		img, err := EncodeJPEG(frame)
		if err != nil {
			captureErr = fmt.Errorf("encode evidence: %w", err)
		} else {
			capture = &entity.EvidenceCapture{
				Image:      img,
				CapturedAt: now,
				Label:      pred.Label,
				Confidence: entity.ToPercent(pred.Confidence),
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.verdict
	switch {
	case pred.IsFault:
		if !prev.IsFault {
			m.episode = uuid.New()
		}
		m.verdict = entity.VerdictFromPrediction(pred)
		m.hysteresisEnd = now.Add(m.hold)
		if capture != nil {
			m.evidence = capture
		}
	case prev.IsFault && now.Before(m.hysteresisEnd):
		// Нормальный тик внутри окна удержания подавляется.
		return nil, captureErr
	default:
		m.verdict = entity.VerdictFromPrediction(pred)
	}
	m.probs = pred.Probabilities
	m.updatedAt = now

	if prev.IsFault == m.verdict.IsFault {
		return nil, captureErr
	}
	return &entity.StateChange{
		EpisodeID: m.episode,
		Previous:  prev,
		Current:   m.verdict,
		At:        now,
	}, captureErr
}

func (m *FaultMonitor) captureDue(now time.Time) bool {
	if m.policy != CaptureCooldown {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evidence == nil || now.Sub(m.evidence.CapturedAt) >= m.cooldown
}

// Snapshot возвращает согласованную копию состояния.
// EvidenceCapture не изменяется после создания, поэтому указатель можно разделять.
func (m *FaultMonitor) Snapshot() entity.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return entity.Snapshot{
		Verdict:       m.verdict,
		Probabilities: m.probs,
		Evidence:      m.evidence,
		HysteresisEnd: m.hysteresisEnd,
		EpisodeID:     m.episode,
		UpdatedAt:     m.updatedAt,
	}
}

// Evidence возвращает сохранённый кадр или nil.
func (m *FaultMonitor) Evidence() *entity.EvidenceCapture {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evidence
}
