// Framecast
// Copyright (C) 2026 Framecast Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package player

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladhopper/framecast/pkg/decoder"
	"github.com/gladhopper/framecast/pkg/pixel"
)

type extractorFunc func(ctx context.Context, source string, seek time.Duration,
	width, height int) decoder.Outcome

func (f extractorFunc) ExtractFrame(ctx context.Context, source string,
	seek time.Duration, width, height int,
) decoder.Outcome {
	return f(ctx, source, seek, width, height)
}

type proberFunc func(ctx context.Context, source, fallback string) float64

func (f proberFunc) DurationOrDefault(ctx context.Context, source, fallback string) float64 {
	return f(ctx, source, fallback)
}

func fixedDuration(seconds float64) proberFunc {
	return func(context.Context, string, string) float64 { return seconds }
}

func successOutcome(width, height int) decoder.Outcome {
	return decoder.Outcome{
		Kind:    decoder.KindSuccess,
		Data:    make([]byte, pixel.ExpectedSize(width, height)),
		Elapsed: time.Millisecond,
	}
}

func failureOutcome(kind decoder.Kind) decoder.Outcome {
	return decoder.Outcome{Kind: kind, Elapsed: time.Millisecond}
}

// newTestPlayer builds an initialized player with a 1-second source at the
// default 10 fps, so totalFrames is 10 unless the config says otherwise.
func newTestPlayer(t *testing.T, config Config, ex extractor) *Player {
	t.Helper()

	config.Source = "test.mp4"
	nop := zerolog.Nop()
	p := New(&config, ex, fixedDuration(1.0), &nop)
	require.NoError(t, p.Init(context.Background()))

	return p
}

func TestInitSizesCursorFromProbe(t *testing.T) {
	config := ConfigDefault()
	nop := zerolog.Nop()
	p := New(&config, nil, fixedDuration(12.5), &nop)

	require.NoError(t, p.Init(context.Background()))
	assert.Equal(t, 125, p.Status().TotalFrames)
}

func TestInitDefaultDurationOnProbeFailure(t *testing.T) {
	// The prober absorbs its own failures into the default 60s duration;
	// startup proceeds and the cursor is sized from it.
	config := ConfigDefault()
	nop := zerolog.Nop()
	p := New(&config, nil, fixedDuration(decoder.DefaultDurationSeconds), &nop)

	require.NoError(t, p.Init(context.Background()))
	assert.Equal(t, 600, p.Status().TotalFrames)
}

func TestTotalFramesFloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, totalFramesFor(0.01, 10))
	assert.Equal(t, 1, totalFramesFor(0, 10))
	assert.Equal(t, 600, totalFramesFor(60, 10))
}

func TestSuccessAdvancesMonotonically(t *testing.T) {
	config := ConfigDefault()
	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			return successOutcome(w, h)
		}))

	for i := 0; i < 25; i++ {
		require.True(t, p.tick(context.Background()))
	}

	st := p.Status()
	assert.Equal(t, 25%10, st.Index)
	assert.Equal(t, 0, st.ErrorStreak)
	assert.Equal(t, uint64(25), st.DecodeCount)
}

func TestCursorWrapsAtTotalFrames(t *testing.T) {
	config := ConfigDefault()
	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			return successOutcome(w, h)
		}))

	p.mu.Lock()
	p.cur.index = 9
	p.mu.Unlock()

	require.True(t, p.tick(context.Background()))
	assert.Equal(t, 0, p.Status().Index)
}

func TestSeekTimeFollowsCursor(t *testing.T) {
	var seeks []time.Duration

	config := ConfigDefault()
	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, seek time.Duration, w, h int) decoder.Outcome {
			seeks = append(seeks, seek)

			return successOutcome(w, h)
		}))

	for i := 0; i < 3; i++ {
		p.tick(context.Background())
	}

	// 10 fps: frame i sits at i*100ms.
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}, seeks)
}

func TestGateAllowsOneDecodeInFlight(t *testing.T) {
	var (
		inFlight    atomic.Int32
		maxInFlight atomic.Int32
	)

	release := make(chan struct{})

	config := ConfigDefault()
	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}

			<-release
			inFlight.Add(-1)

			return successOutcome(w, h)
		}))

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		p.tick(context.Background())
	}()

	// Wait until the first decode holds the gate.
	require.Eventually(t, func() bool {
		return inFlight.Load() == 1
	}, time.Second, time.Millisecond)

	// Overlapping ticks must be swallowed, not queued.
	for i := 0; i < 10; i++ {
		assert.False(t, p.tick(context.Background()))
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, uint64(1), p.Status().DecodeCount)
}

func TestStreakResetsOnSuccess(t *testing.T) {
	fail := true

	config := ConfigDefault()
	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			if fail {
				return failureOutcome(decoder.KindTimeout)
			}

			return successOutcome(w, h)
		}))

	p.tick(context.Background())
	p.tick(context.Background())
	assert.Equal(t, 2, p.Status().ErrorStreak)

	fail = false

	p.tick(context.Background())
	assert.Equal(t, 0, p.Status().ErrorStreak)
}

func TestFailureBandsStepThenSkip(t *testing.T) {
	config := ConfigDefault() // low=2, high=6, skip defaults to 2*fps=20
	config.SkipStep = 5

	p := newTestPlayer(t, config,
		extractorFunc(func(context.Context, string, time.Duration, int, int) decoder.Outcome {
			return failureOutcome(decoder.KindSubprocessError)
		}))

	// Streak 1 and 2: single-step skips.
	p.tick(context.Background())
	assert.Equal(t, 1, p.Status().Index)
	p.tick(context.Background())
	assert.Equal(t, 2, p.Status().Index)

	// Streak 3: jumps by SkipStep, modulo 10.
	p.tick(context.Background())
	assert.Equal(t, 7, p.Status().Index)
}

func TestPauseAfterSustainedFailures(t *testing.T) {
	var calls atomic.Int32

	config := ConfigDefault()
	config.LowThreshold = 1
	config.HighThreshold = 2
	config.PauseCooldown = 10 * time.Second

	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			if calls.Add(1) > 3 {
				return successOutcome(w, h)
			}

			return failureOutcome(decoder.KindTimeout)
		}))

	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	// Streak 1 steps, streak 2 skips, streak 3 crosses the high threshold.
	p.tick(context.Background())
	p.tick(context.Background())
	p.tick(context.Background())
	require.Equal(t, StatePaused.String(), p.Status().State)

	// Paused: ticks issue zero decode calls until the cooldown elapses.
	before := calls.Load()

	for i := 0; i < 5; i++ {
		assert.False(t, p.tick(context.Background()))

		now = now.Add(time.Second)
	}

	assert.Equal(t, before, calls.Load())

	// Past the cooldown the streak resets and decoding resumes.
	now = now.Add(10 * time.Second)

	require.True(t, p.tick(context.Background()))

	st := p.Status()
	assert.Equal(t, StateIdle.String(), st.State)
	assert.Equal(t, 0, st.ErrorStreak)
}

func TestCurrentFrameFallbackBeforeFirstDecode(t *testing.T) {
	config := ConfigDefault()
	p := newTestPlayer(t, config, nil)

	snap := p.CurrentFrame()
	require.NotNil(t, snap)
	assert.True(t, snap.Fallback)
	assert.Len(t, snap.Pixels, config.Width*config.Height)
}

func TestReadersKeepLastGoodFrame(t *testing.T) {
	outcome := successOutcome(ConfigDefault().Width, ConfigDefault().Height)
	outcome.Data[0] = 42

	config := ConfigDefault()
	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, seek time.Duration, w, h int) decoder.Outcome {
			if seek == 0 {
				return outcome
			}

			return failureOutcome(decoder.KindTimeout)
		}))

	p.tick(context.Background())
	good := p.CurrentFrame()
	require.False(t, good.Fallback)
	assert.Equal(t, pixel.Pixel{42, 0, 0}, good.Pixels[0])

	// Failures never surface to readers; the last good frame stays published.
	p.tick(context.Background())
	p.tick(context.Background())

	assert.Equal(t, good, p.CurrentFrame())
	assert.Equal(t, 2, p.Status().ErrorStreak)
}

func TestSizeMismatchPublishesTruncatedFrame(t *testing.T) {
	config := ConfigDefault()
	short := decoder.Outcome{
		Kind: decoder.KindSizeMismatch,
		Data: make([]byte, pixel.ExpectedSize(config.Width, config.Height)-pixel.BytesPerPixel),
	}

	p := newTestPlayer(t, config,
		extractorFunc(func(context.Context, string, time.Duration, int, int) decoder.Outcome {
			return short
		}))

	p.tick(context.Background())

	// The truncated frame is published, but the attempt still counts as failed.
	snap := p.CurrentFrame()
	assert.Len(t, snap.Pixels, config.Width*config.Height-1)
	assert.Equal(t, 1, p.Status().ErrorStreak)
	assert.Equal(t, uint64(1), p.Status().FailureCount)
}

func TestFrameAtServesCacheAndEvictsOldest(t *testing.T) {
	config := ConfigDefault()
	config.CacheSize = 2

	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			return successOutcome(w, h)
		}))

	for i := 0; i < 3; i++ {
		p.tick(context.Background())
	}

	_, ok := p.FrameAt(0)
	assert.False(t, ok, "oldest entry should be evicted")

	for _, idx := range []int{1, 2} {
		snap, ok := p.FrameAt(idx)
		require.True(t, ok)
		assert.Equal(t, idx, snap.Index)
	}
}

func TestSubscribeReceivesPublishedFrames(t *testing.T) {
	config := ConfigDefault()
	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			return successOutcome(w, h)
		}))

	ch, cancel := p.Subscribe()
	defer cancel()

	p.tick(context.Background())

	select {
	case snap := <-ch:
		assert.Equal(t, 0, snap.Index)
	default:
		t.Fatal("expected a published snapshot")
	}
}

func TestRunAdaptiveStopsOnContextCancel(t *testing.T) {
	config := ConfigDefault()
	config.MinDelay = time.Millisecond

	p := newTestPlayer(t, config,
		extractorFunc(func(_ context.Context, _ string, _ time.Duration, w, h int) decoder.Outcome {
			return successOutcome(w, h)
		}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotZero(t, p.Status().DecodeCount)
}
