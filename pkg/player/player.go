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

// Package player implements the frame-pacing controller. It drives the
// external decoder at a target rate, keeps exactly one decode in flight,
// absorbs decode failures with an escalating policy, and publishes the
// current frame for non-blocking readers.
package player

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gladhopper/framecast/pkg/decoder"
	"github.com/gladhopper/framecast/pkg/pixel"
)

const (
	lCooldown    = "cooldown"
	lDuration    = "duration"
	lElapsed     = "elapsed"
	lIndex       = "frameIndex"
	lKind        = "kind"
	lSeek        = "seekTime"
	lSource      = "source"
	lState       = "state"
	lStreak      = "errorStreak"
	lTotalFrames = "totalFrames"
)

//nolint:gochecknoglobals // allows logging from non-method funcs
var log zerolog.Logger

// State is the controller's scheduling state.
type State int

const (
	StateIdle State = iota
	StateDecoding
	StatePaused
)

var stateStrings = map[State]string{
	StateIdle:     "idle",
	StateDecoding: "decoding",
	StatePaused:   "paused",
}

func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}

	return "unknown"
}

// Config configures the Player.
type Config struct { //nolint:govet // Don't care about alignment.
	Source         string        `yaml:"source" json:"source" env:"SOURCE" doc:"Video source, local path or URL"`
	FallbackSource string        `yaml:"fallbackSource" json:"fallbackSource" env:"FALLBACK_SOURCE" doc:"Secondary source tried when probing the primary fails"`
	Width          int           `yaml:"width" json:"width" doc:"Output frame width in pixels"`
	Height         int           `yaml:"height" json:"height" doc:"Output frame height in pixels"`
	TargetFPS      float64       `yaml:"targetFps" json:"targetFps" doc:"Target decode rate in frames per second"`
	FixedTick      bool          `yaml:"fixedTick" json:"fixedTick" doc:"Fire ticks at a fixed rate instead of rescheduling after each decode"`
	MinDelay       time.Duration `yaml:"minDelay" json:"minDelay" doc:"Adaptive mode floor between decode attempts"`
	LowThreshold   int           `yaml:"lowThreshold" json:"lowThreshold" doc:"Error streak above which failures skip ahead instead of stepping"`
	HighThreshold  int           `yaml:"highThreshold" json:"highThreshold" doc:"Error streak above which decoding pauses"`
	SkipStep       int           `yaml:"skipStep" json:"skipStep" doc:"Frames skipped per failure in the mid-streak band; 0 means two seconds worth"`
	PauseCooldown  time.Duration `yaml:"pauseCooldown" json:"pauseCooldown" doc:"How long decoding stays paused after a sustained failure streak"`
	CacheSize      int           `yaml:"cacheSize" json:"cacheSize" doc:"Recent decoded frames kept for index lookups"`
}

// ConfigDefault returns the default values for a Config.
func ConfigDefault() Config {
	return Config{
		Width:         160,
		Height:        90,
		TargetFPS:     10,
		MinDelay:      50 * time.Millisecond,
		LowThreshold:  2,
		HighThreshold: 6,
		PauseCooldown: 10 * time.Second,
		CacheSize:     8,
	}
}

// extractor is the decode capability consumed by the controller.
type extractor interface {
	ExtractFrame(ctx context.Context, source string, seekTime time.Duration,
		width, height int) decoder.Outcome
}

// prober is the metadata capability consumed once at startup.
type prober interface {
	DurationOrDefault(ctx context.Context, source, fallback string) float64
}

// Snapshot is one published frame plus its position. Snapshots are immutable
// once published; readers always see either the old or the new one in full.
type Snapshot struct {
	Pixels      []pixel.Pixel
	Index       int
	TotalFrames int
	Width       int
	Height      int
	Timestamp   time.Time
	Fallback    bool
}

// Status is the observable controller state for the serving layer.
type Status struct {
	State         string  `json:"state"`
	Index         int     `json:"frameIndex"`
	TotalFrames   int     `json:"totalFrames"`
	ErrorStreak   int     `json:"errorStreak"`
	LastOutcome   string  `json:"lastOutcome"`
	LastDecodeMS  int64   `json:"lastDecodeMs"`
	DecodeCount   uint64  `json:"decodeCount"`
	FailureCount  uint64  `json:"failureCount"`
	Source        string  `json:"source"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Player owns all mutable pacing state. Multiple instances don't collide,
// so tests can run controllers side by side.
type Player struct {
	config *Config
	ex     extractor
	prober prober

	now     func() time.Time
	started time.Time

	current atomic.Pointer[Snapshot]

	// mu guards the scheduling state below. The busy flag is the gate that
	// keeps at most one decode in flight.
	mu          sync.Mutex
	state       State
	busy        bool
	cur         cursor
	streak      int
	pauseUntil  time.Time
	lastElapsed time.Duration
	lastKind    decoder.Kind
	decodes     uint64
	failures    uint64
	cache       *frameCache
	policy      failurePolicy

	fallbackOnce sync.Once
	fallback     *Snapshot

	subsLock sync.Mutex
	subs     map[chan *Snapshot]struct{}
}

// New returns a new Player instance.
func New(config *Config, ex extractor, pr prober, logger *zerolog.Logger) *Player {
	log = logger.With().Str("pkg", "player").Logger()

	skip := config.SkipStep
	if skip <= 0 {
		skip = int(config.TargetFPS * 2)
	}

	if skip < 2 {
		skip = 2
	}

	return &Player{
		config: config,
		ex:     ex,
		prober: pr,

		now:     time.Now,
		started: time.Now(),

		cur: cursor{totalFrames: 1},
		policy: failurePolicy{
			low:      config.LowThreshold,
			high:     config.HighThreshold,
			skipStep: skip,
			cooldown: config.PauseCooldown,
		},
		cache: newFrameCache(config.CacheSize),
		subs:  make(map[chan *Snapshot]struct{}),
	}
}

// Init probes the source duration and sizes the cursor. Probing failure is
// absorbed inside the prober, so Init cannot fail and startup always proceeds.
func (p *Player) Init(ctx context.Context) error {
	duration := p.prober.DurationOrDefault(ctx, p.config.Source, p.config.FallbackSource)
	total := totalFramesFor(duration, p.config.TargetFPS)

	p.mu.Lock()
	p.cur = cursor{totalFrames: total}
	p.mu.Unlock()

	log.Info().Str(lSource, p.config.Source).Float64(lDuration, duration).
		Int(lTotalFrames, total).Msg("player init")

	return nil
}

// interval is the target spacing between decode attempts.
func (p *Player) interval() time.Duration {
	if p.config.TargetFPS <= 0 {
		return time.Second
	}

	return time.Duration(float64(time.Second) / p.config.TargetFPS)
}

// Run is the main pacing loop. In adaptive mode (the default) the next
// attempt is scheduled max(minDelay, interval-lastDecode) after the previous
// one completes, so slow decodes shrink the effective rate instead of
// stacking. In fixed mode a ticker fires at the target rate regardless and
// the busy gate turns overlapping ticks into no-ops.
func (p *Player) Run(ctx context.Context) error {
	log.Info().Str(lSource, p.config.Source).Bool("fixedTick", p.config.FixedTick).
		Dur("interval", p.interval()).Msg("player starting")

	if p.config.FixedTick {
		return p.runFixed(ctx)
	}

	return p.runAdaptive(ctx)
}

func (p *Player) runFixed(ctx context.Context) error {
	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// The attempt outlives the tick so the next tick can fire on
			// schedule; the gate rejects it if this one is still decoding.
			go p.tick(ctx)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Player) runAdaptive(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			p.tick(ctx)

			p.mu.Lock()
			elapsed := p.lastElapsed
			p.mu.Unlock()

			delay := p.interval() - elapsed
			if delay < p.config.MinDelay {
				delay = p.config.MinDelay
			}

			timer.Reset(delay)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tick performs at most one decode attempt. Returns false if the gate or the
// paused state swallowed the tick.
func (p *Player) tick(ctx context.Context) bool {
	index, seek, ok := p.beginAttempt()
	if !ok {
		return false
	}

	outcome := p.ex.ExtractFrame(ctx, p.config.Source, seek,
		p.config.Width, p.config.Height)

	frame := p.frameFromOutcome(&outcome)
	p.finishAttempt(index, outcome, frame)

	return true
}

// beginAttempt takes the gate and reads the cursor. It refuses while a decode
// is in flight, and while paused until the cooldown elapses, at which point
// the streak resets and decoding resumes.
func (p *Player) beginAttempt() (index int, seek time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePaused {
		if p.now().Before(p.pauseUntil) {
			return 0, 0, false
		}

		p.streak = 0
		p.state = StateIdle

		log.Info().Str(lSource, p.config.Source).Msg("cooldown elapsed, resuming")
	}

	if p.busy {
		return 0, 0, false
	}

	p.busy = true
	p.state = StateDecoding

	return p.cur.index, p.cur.seekTime(p.config.TargetFPS), true
}

// frameFromOutcome converts decoded bytes to a pixel frame. On size mismatch
// this is the best-effort truncated conversion; anything else failed has no
// pixels to offer.
func (p *Player) frameFromOutcome(o *decoder.Outcome) *pixel.Frame {
	switch o.Kind {
	case decoder.KindSuccess, decoder.KindSizeMismatch:
		frame, err := pixel.Decode(o.Data, p.config.Width, p.config.Height)
		if frame == nil && o.Kind == decoder.KindSuccess {
			log.Warn().Err(err).Msg("full-size buffer failed pixel conversion")
			o.Kind = decoder.KindEmptyOutput
		}

		return frame

	default:
		return nil
	}
}

// finishAttempt releases the gate, applies the failure policy, and publishes
// whatever frame the attempt yielded. Cursor movement happens here only,
// after the outcome is fully known.
func (p *Player) finishAttempt(index int, outcome decoder.Outcome, frame *pixel.Frame) {
	var snap *Snapshot

	p.mu.Lock()

	p.busy = false
	p.lastElapsed = outcome.Elapsed
	p.lastKind = outcome.Kind
	p.decodes++

	if !outcome.Failed() {
		p.streak = 0
		p.state = StateIdle
		p.cur.advance(1)

		snap = p.snapshotLocked(index, frame, false)
		p.cache.put(index, snap)
	} else {
		p.failures++
		p.streak++

		act := p.policy.onFailure(p.streak)
		if act.pause {
			p.state = StatePaused
			p.pauseUntil = p.now().Add(p.policy.cooldown)

			log.Warn().Int(lStreak, p.streak).Dur(lCooldown, p.policy.cooldown).
				Stringer(lKind, outcome.Kind).Msg("sustained failures, pausing decode")
		} else {
			p.state = StateIdle
			p.cur.advance(act.advance)
		}

		// A truncated frame from a size mismatch still beats a stale one.
		if frame != nil {
			snap = p.snapshotLocked(index, frame, false)
		}
	}

	streak := p.streak
	p.mu.Unlock()

	if snap != nil {
		p.current.Store(snap)
		p.broadcast(snap)
	}

	if outcome.Failed() {
		log.Info().Int(lIndex, index).Int(lStreak, streak).
			Stringer(lKind, outcome.Kind).Dur(lElapsed, outcome.Elapsed).
			Str("stderr", outcome.Stderr).Msg("decode failed")
	} else {
		log.Debug().Int(lIndex, index).Dur(lElapsed, outcome.Elapsed).
			Msg("decode ok")
	}
}

// snapshotLocked builds a Snapshot from a decoded frame. p.mu must be held.
func (p *Player) snapshotLocked(index int, frame *pixel.Frame, fallback bool) *Snapshot {
	return &Snapshot{
		Pixels:      frame.Pixels,
		Index:       index,
		TotalFrames: p.cur.totalFrames,
		Width:       frame.Width,
		Height:      frame.Height,
		Timestamp:   p.now(),
		Fallback:    fallback,
	}
}

// CurrentFrame returns the last published snapshot without blocking. Before
// the first successful decode it returns the procedural fallback pattern.
func (p *Player) CurrentFrame() *Snapshot {
	if s := p.current.Load(); s != nil {
		return s
	}

	p.fallbackOnce.Do(func() {
		frame := pixel.TestPattern(p.config.Width, p.config.Height, 0)

		p.mu.Lock()
		p.fallback = p.snapshotLocked(0, frame, true)
		p.mu.Unlock()
	})

	return p.fallback
}

// FrameAt returns the cached snapshot for a specific index, if still held.
func (p *Player) FrameAt(index int) (*Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cache.get(index)
}

// Status returns the observable controller state.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Status{
		State:         p.state.String(),
		Index:         p.cur.index,
		TotalFrames:   p.cur.totalFrames,
		ErrorStreak:   p.streak,
		LastOutcome:   p.lastKind.String(),
		LastDecodeMS:  p.lastElapsed.Milliseconds(),
		DecodeCount:   p.decodes,
		FailureCount:  p.failures,
		Source:        p.config.Source,
		UptimeSeconds: p.now().Sub(p.started).Seconds(),
	}
}

// Subscribe registers for published snapshots. Slow consumers miss frames
// rather than slow the controller. The returned func unsubscribes.
func (p *Player) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	p.subsLock.Lock()
	p.subs[ch] = struct{}{}
	p.subsLock.Unlock()

	cancel := func() {
		p.subsLock.Lock()
		delete(p.subs, ch)
		p.subsLock.Unlock()
	}

	return ch, cancel
}

func (p *Player) broadcast(s *Snapshot) {
	p.subsLock.Lock()
	defer p.subsLock.Unlock()

	for ch := range p.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
