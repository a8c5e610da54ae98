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

// Package decoder drives the external ffmpeg/ffprobe subprocesses that
// extract single frames and probe source metadata. The extractor never
// blocks past its configured timeout; on timeout the subprocess is killed
// and whatever it wrote is discarded.
package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gladhopper/framecast/pkg/pixel"
)

const (
	lAttempt  = "attempt"
	lDuration = "duration"
	lElapsed  = "elapsed"
	lKind     = "kind"
	lMimeType = "mimeType"
	lSeek     = "seekTime"
	lSource   = "source"
	lStderr   = "stderr"
)

//nolint:gochecknoglobals // allows logging from non-method funcs
var log zerolog.Logger

// Config configures the extractor and the prober.
type Config struct { //nolint:govet // Don't care about alignment.
	FFmpegPath    string        `yaml:"ffmpegPath" json:"ffmpegPath" env:"FFMPEG_PATH" doc:"Path to the ffmpeg binary"`
	FFprobePath   string        `yaml:"ffprobePath" json:"ffprobePath" env:"FFPROBE_PATH" doc:"Path to the ffprobe binary"`
	DecodeTimeout time.Duration `yaml:"decodeTimeout" json:"decodeTimeout" doc:"Hard deadline for a single frame extraction"`
	ProbeTimeout  time.Duration `yaml:"probeTimeout" json:"probeTimeout" doc:"Hard deadline for a single probe attempt"`
	ProbeAttempts int           `yaml:"probeAttempts" json:"probeAttempts" doc:"Probe attempts per source before falling back"`
	ProbeBackoff  time.Duration `yaml:"probeBackoff" json:"probeBackoff" doc:"Fixed delay between probe attempts"`
}

// ConfigDefault returns the default values for a Config.
func ConfigDefault() Config {
	return Config{
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		DecodeTimeout: 10 * time.Second,
		ProbeTimeout:  15 * time.Second,
		ProbeAttempts: 3,
		ProbeBackoff:  2 * time.Second,
	}
}

// runner abstracts subprocess execution so outcome handling can be tested
// without a real ffmpeg on the path.
type runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// runCommand is the production runner. The context deadline kills the
// subprocess; WaitDelay bounds how long we wait for pipes to close after the
// kill so a wedged child cannot leak.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.Bytes(), stderr.Bytes(), err
}

// Extractor invokes ffmpeg to decode exactly one frame per call.
type Extractor struct {
	config *Config
	run    runner
}

// NewExtractor returns a new Extractor instance.
func NewExtractor(config *Config, logger *zerolog.Logger) *Extractor {
	log = logger.With().Str("pkg", "decoder").Logger()

	return &Extractor{
		config: config,
		run:    runCommand,
	}
}

// ExtractFrame decodes the frame at seekTime from source, scaled to
// width x height rgb24, and classifies the result. Exactly one terminal
// Outcome is produced per call.
func (e *Extractor) ExtractFrame(ctx context.Context, source string,
	seekTime time.Duration, width, height int,
) Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.config.DecodeTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", seekTime.Seconds()),
		"-i", source,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-",
	}

	start := time.Now()
	stdout, stderr, err := e.run(ctx, e.config.FFmpegPath, args...)
	elapsed := time.Since(start)

	outcome := classify(ctx, pixel.ExpectedSize(width, height), stdout, stderr, err)
	outcome.Elapsed = elapsed

	log.Debug().Str(lSource, source).Dur(lSeek, seekTime).Dur(lElapsed, elapsed).
		Stringer(lKind, outcome.Kind).Msg("extract")

	return outcome
}

// notFoundMarkers are stderr fragments that mean the source itself is gone,
// as opposed to a decode problem within a reachable source.
var notFoundMarkers = []string{
	"No such file or directory",
	"Server returned 404",
	"Failed to resolve hostname",
}

// classify maps a finished subprocess run onto exactly one Outcome.
func classify(ctx context.Context, expected int, stdout, stderr []byte, runErr error) Outcome {
	tail := stderrTail(stderr)

	// A fired deadline is terminal no matter what the subprocess managed to
	// emit before the kill; late bytes are dropped here.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Outcome{Kind: KindTimeout, Stderr: tail}
	}

	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return Outcome{Kind: KindSourceNotFound, Stderr: tail}
		}

		for _, marker := range notFoundMarkers {
			if strings.Contains(tail, marker) {
				return Outcome{Kind: KindSourceNotFound, Stderr: tail}
			}
		}

		return Outcome{Kind: KindSubprocessError, Stderr: tail}
	}

	switch {
	case len(stdout) == 0:
		return Outcome{Kind: KindEmptyOutput, Stderr: tail}
	case len(stdout) != expected:
		return Outcome{Kind: KindSizeMismatch, Data: stdout, Stderr: tail}
	default:
		return Outcome{Kind: KindSuccess, Data: stdout}
	}
}

// stderrTail keeps the last chunk of diagnostic output for logging.
// ffmpeg can be chatty on badly corrupt sources and the useful line is
// almost always the final one.
func stderrTail(stderr []byte) string {
	const tailSize = 512

	s := strings.TrimSpace(string(stderr))
	if len(s) > tailSize {
		s = s[len(s)-tailSize:]
	}

	return s
}
