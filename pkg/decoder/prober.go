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

package decoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gladhopper/framecast/pkg/mimer"
)

// DefaultDurationSeconds is assumed when every probe attempt fails.
// Probing failure must never prevent startup.
const DefaultDurationSeconds = 60.0

type noStreamsError struct {
	source string
}

func (e *noStreamsError) Error() string {
	return fmt.Sprintf("no streams found in %q", e.source)
}

type notVideoError struct {
	source   string
	mimeType string
}

func (e *notVideoError) Error() string {
	return fmt.Sprintf("%q has non-video content type %q", e.source, e.mimeType)
}

// ProbeStream mirrors one entry of ffprobe's streams array.
type ProbeStream struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// ProbeFormat mirrors ffprobe's format object.
type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// ProbeResult is the parsed metadata for a source.
type ProbeResult struct {
	DurationSeconds float64
	Format          ProbeFormat
	Streams         []ProbeStream
}

// probeOutput is the raw ffprobe JSON shape.
type probeOutput struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// Prober queries source duration and stream metadata via ffprobe.
type Prober struct {
	config *Config
	run    runner
}

// NewProber returns a new Prober instance.
func NewProber(config *Config, logger *zerolog.Logger) *Prober {
	log = logger.With().Str("pkg", "decoder").Logger()

	return &Prober{
		config: config,
		run:    runCommand,
	}
}

// Probe runs a single bounded ffprobe attempt against source.
// Local sources that sniff as clearly non-video are rejected without
// spawning the subprocess.
func (p *Prober) Probe(ctx context.Context, source string) (*ProbeResult, error) {
	if isLocal(source) {
		mimeType := mimer.GetContentType(source)
		if !mimer.IsLikelyVideo(mimeType) {
			return nil, &notVideoError{source: source, mimeType: mimeType}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.ProbeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		source,
	}

	stdout, stderr, err := p.run(ctx, p.config.FFprobePath, args...)
	if err != nil {
		return nil, fmt.Errorf("probe of %q failed: %w (stderr: %s)",
			source, err, stderrTail(stderr))
	}

	result, err := parseProbe(source, stdout)
	if err != nil {
		return nil, err
	}

	log.Info().Str(lSource, source).Float64(lDuration, result.DurationSeconds).
		Msg("probe ok")

	return result, nil
}

// DurationOrDefault probes source with retries, then the fallback source,
// and finally degrades to DefaultDurationSeconds. It never returns an error;
// the caller's startup must proceed regardless.
func (p *Prober) DurationOrDefault(ctx context.Context, source, fallback string) float64 {
	retry := RetryPolicy{
		MaxAttempts: p.config.ProbeAttempts,
		Backoff:     p.config.ProbeBackoff,
	}

	for _, candidate := range []string{source, fallback} {
		if candidate == "" {
			continue
		}

		var result *ProbeResult

		err := retry.Do(ctx, func(ctx context.Context) error {
			var probeErr error
			result, probeErr = p.Probe(ctx, candidate)

			return probeErr
		})
		if err == nil {
			return result.DurationSeconds
		}

		log.Warn().Err(err).Str(lSource, candidate).Int(lAttempt, retry.MaxAttempts).
			Msg("probe failed, moving on")
	}

	log.Warn().Float64(lDuration, DefaultDurationSeconds).
		Msg("all probes failed, assuming default duration")

	return DefaultDurationSeconds
}

// parseProbe decodes ffprobe JSON. Duration comes from the format object,
// falling back to the first video stream that reports one.
func parseProbe(source string, raw []byte) (*ProbeResult, error) {
	var out probeOutput

	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing probe output for %q failed: %w", source, err)
	}

	if len(out.Streams) == 0 {
		return nil, &noStreamsError{source: source}
	}

	result := &ProbeResult{
		Format:  out.Format,
		Streams: out.Streams,
	}

	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
		result.DurationSeconds = d

		return result, nil
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}

		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > 0 {
			result.DurationSeconds = d

			return result, nil
		}
	}

	return nil, fmt.Errorf("probe of %q reported no usable duration", source)
}

// isLocal reports whether source names a local file rather than a remote URL.
// Not every file name parses as a URL, so a parse failure means local.
func isLocal(source string) bool {
	if strings.HasPrefix(source, "/") {
		return true
	}

	parsed, err := url.Parse(source)
	if err != nil {
		return true
	}

	return parsed.Scheme == "" || parsed.Scheme == "file"
}
