package app

import (
	"image/color"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"equipment-guard/internal/domain/entity"
)

func newTestMonitor(clock *fakeClock, policy CapturePolicy) *FaultMonitor {
	opts := DefaultMonitorOptions()
	opts.Now = clock.Now
	opts.Policy = policy
	return NewFaultMonitor(opts)
}

func TestFaultMonitor_InitialState(t *testing.T) {
	m := newTestMonitor(newFakeClock(), CaptureEveryTick)

	snap := m.Snapshot()
	require.Equal(t, entity.LabelInitializing, snap.Verdict.Label)
	require.False(t, snap.Verdict.IsFault)
	require.Zero(t, snap.Verdict.Confidence)
	require.False(t, snap.HasEvidence())
	require.Equal(t, uuid.Nil, snap.EpisodeID)
	require.Nil(t, m.Evidence())
}

func TestFaultMonitor_HysteresisScenario(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, CaptureEveryTick)
	red := frame(color.RGBA{R: 200, A: 255})

	change, err := m.Observe(normalPrediction(0.9), red)
	require.NoError(t, err)
	require.Nil(t, change)
	require.Equal(t, entity.Verdict{Label: entity.LabelNormal, Confidence: 90}, m.Snapshot().Verdict)

	clock.Advance(time.Second)
	change, err = m.Observe(faultPrediction("overheating", 0.5), red)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.True(t, change.Entered())
	require.Equal(t, entity.Verdict{Label: "overheating", Confidence: 50, IsFault: true}, change.Current)

	snap := m.Snapshot()
	require.True(t, snap.HasEvidence())
	require.Equal(t, "overheating", snap.Evidence.Label)
	require.Equal(t, 50.0, snap.Evidence.Confidence)
	require.Equal(t, clock.Now().Add(4*time.Second), snap.HysteresisEnd)

	// t=2 и t=3: нормальные тики подавляются.
	for i := 0; i < 2; i++ {
		clock.Advance(time.Second)
		change, err = m.Observe(normalPrediction(0.95), red)
		require.NoError(t, err)
		require.Nil(t, change)
		require.Equal(t, "overheating", m.Snapshot().Verdict.Label)
	}

	// t=4.9: всё ещё внутри окна.
	clock.Advance(1900 * time.Millisecond)
	change, err = m.Observe(normalPrediction(0.95), red)
	require.NoError(t, err)
	require.Nil(t, change)
	require.True(t, m.Snapshot().Verdict.IsFault)

	// t=5: окно закрыто.
	clock.Advance(100 * time.Millisecond)
	change, err = m.Observe(normalPrediction(0.95), red)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.False(t, change.Current.IsFault)
	require.Equal(t, entity.LabelNormal, change.Current.Label)
	require.Equal(t, 95.0, change.Current.Confidence)
	require.Equal(t, "overheating", change.Previous.Label)

	// Кадр-доказательство сохраняется после возврата в норму.
	require.True(t, m.Snapshot().HasEvidence())
}

func TestFaultMonitor_SuppressedTickKeepsProbabilities(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, CaptureEveryTick)

	_, err := m.Observe(faultPrediction("bearing_failure", 0.7), frame(color.RGBA{A: 255}))
	require.NoError(t, err)
	before := m.Snapshot()

	clock.Advance(time.Second)
	_, err = m.Observe(normalPrediction(0.99), frame(color.RGBA{A: 255}))
	require.NoError(t, err)

	after := m.Snapshot()
	require.Equal(t, before.Verdict, after.Verdict)
	require.Equal(t, before.Probabilities.Map(), after.Probabilities.Map())
	require.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestFaultMonitor_FaultTicksExtendWindowAndKeepEpisode(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, CaptureEveryTick)
	img := frame(color.RGBA{G: 100, A: 255})

	change, err := m.Observe(faultPrediction("overheating", 0.5), img)
	require.NoError(t, err)
	require.NotNil(t, change)
	episode := change.EpisodeID
	require.NotEqual(t, uuid.Nil, episode)

	clock.Advance(3 * time.Second)
	change, err = m.Observe(faultPrediction("bearing_failure", 0.45), img)
	require.NoError(t, err)
	require.Nil(t, change)

	snap := m.Snapshot()
	require.Equal(t, "bearing_failure", snap.Verdict.Label)
	require.Equal(t, episode, snap.EpisodeID)
	require.Equal(t, clock.Now().Add(4*time.Second), snap.HysteresisEnd)
	require.Equal(t, "bearing_failure", snap.Evidence.Label)

	clock.Advance(4 * time.Second)
	change, err = m.Observe(normalPrediction(0.9), img)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, episode, change.EpisodeID)

	clock.Advance(time.Second)
	change, err = m.Observe(faultPrediction("overheating", 0.5), img)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.NotEqual(t, episode, change.EpisodeID)
}

func TestFaultMonitor_ObserveIsIdempotentForRepeatedNormal(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, CaptureEveryTick)

	for i := 0; i < 3; i++ {
		change, err := m.Observe(normalPrediction(0.8), frame(color.RGBA{A: 255}))
		require.NoError(t, err)
		require.Nil(t, change)
		clock.Advance(250 * time.Millisecond)
	}
	require.Equal(t, entity.Verdict{Label: entity.LabelNormal, Confidence: 80}, m.Snapshot().Verdict)
	require.False(t, m.Snapshot().HasEvidence())
}

func TestFaultMonitor_EveryTickRecaptures(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, CaptureEveryTick)

	_, err := m.Observe(faultPrediction("overheating", 0.5), frame(color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)
	first := m.Evidence()

	clock.Advance(250 * time.Millisecond)
	_, err = m.Observe(faultPrediction("overheating", 0.5), frame(color.RGBA{B: 255, A: 255}))
	require.NoError(t, err)
	second := m.Evidence()

	require.NotSame(t, first, second)
	require.NotEqual(t, first.Image, second.Image)
	require.Equal(t, clock.Now(), second.CapturedAt)
}

func TestFaultMonitor_CooldownKeepsEvidence(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, CaptureCooldown)

	_, err := m.Observe(faultPrediction("overheating", 0.5), frame(color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)
	first := m.Evidence()
	image := append([]byte(nil), first.Image...)

	clock.Advance(5 * time.Second)
	_, err = m.Observe(faultPrediction("overheating", 0.5), frame(color.RGBA{B: 255, A: 255}))
	require.NoError(t, err)
	require.Same(t, first, m.Evidence())
	require.Equal(t, image, m.Evidence().Image)

	clock.Advance(5 * time.Second)
	_, err = m.Observe(faultPrediction("overheating", 0.5), frame(color.RGBA{B: 255, A: 255}))
	require.NoError(t, err)
	require.NotSame(t, first, m.Evidence())
}

func TestFaultMonitor_CaptureFailureStillPublishes(t *testing.T) {
	m := newTestMonitor(newFakeClock(), CaptureEveryTick)

	change, err := m.Observe(faultPrediction("overheating", 0.5), nil)
	require.ErrorIs(t, err, ErrNoFrame)
	require.NotNil(t, change)
	require.True(t, m.Snapshot().Verdict.IsFault)
	require.Nil(t, m.Evidence())
}

func TestParseCapturePolicy(t *testing.T) {
	p, err := ParseCapturePolicy("")
	require.NoError(t, err)
	require.Equal(t, CaptureEveryTick, p)

	p, err = ParseCapturePolicy("cooldown")
	require.NoError(t, err)
	require.Equal(t, CaptureCooldown, p)

	_, err = ParseCapturePolicy("sometimes")
	require.Error(t, err)
}

func TestFaultMonitor_ConcurrentReadersSeeConsistentState(t *testing.T) {
	clock := newFakeClock()
	opts := DefaultMonitorOptions()
	opts.Now = clock.Now
	opts.Hold = 0
	m := NewFaultMonitor(opts)

	faults := map[string]float64{"overheating": 0.5, "bearing_failure": 0.7}
	img := frame(color.RGBA{R: 200, A: 255})

	var stop atomic.Bool
	var wg sync.WaitGroup
	errs := make(chan string, 4)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				snap := m.Snapshot()
				v := snap.Verdict
				if v.IsFault {
					if conf := faults[v.Label]; v.Confidence != entity.ToPercent(conf) {
						errs <- "verdict " + v.Label + " has foreign confidence"
						return
					}
					if p, ok := snap.Probabilities.Get(v.Label); !ok || math.Abs(p-faults[v.Label]) > 1e-9 {
						errs <- "probabilities do not belong to verdict " + v.Label
						return
					}
				}
				if ev := m.Evidence(); ev != nil && ev.Confidence != entity.ToPercent(faults[ev.Label]) {
					errs <- "evidence " + ev.Label + " has foreign confidence"
					return
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		clock.Advance(10 * time.Millisecond)
		var pred *entity.Prediction
		switch i % 3 {
		case 0:
			pred = faultPrediction("overheating", faults["overheating"])
		case 1:
			pred = normalPrediction(0.9)
		default:
			pred = faultPrediction("bearing_failure", faults["bearing_failure"])
		}
		_, err := m.Observe(pred, img)
		require.NoError(t, err)
	}
	stop.Store(true)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	require.Equal(t, entity.LabelNormal, m.Snapshot().Verdict.Label)
}
