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

// Package pixel converts raw rgb24 byte buffers into ordered pixel sequences.
package pixel

import (
	"errors"
	"fmt"
)

// BytesPerPixel is the size of one interleaved RGB pixel, no alpha.
const BytesPerPixel = 3

// ErrEmptyBuffer indicates the decoder produced zero bytes.
var ErrEmptyBuffer = errors.New("pixel: empty buffer")

// SizeMismatchError indicates the buffer does not hold exactly
// width*height*3 bytes.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("pixel: buffer size mismatch: expected %d bytes, got %d",
		e.Expected, e.Actual)
}

// Pixel is a single RGB triplet.
type Pixel [BytesPerPixel]uint8

// Frame is an ordered pixel sequence, row-major with a top-left origin.
type Frame struct {
	Pixels []Pixel
	Width  int
	Height int
}

// ExpectedSize returns the byte count a full frame must carry.
func ExpectedSize(width, height int) int {
	return width * height * BytesPerPixel
}

// Decode converts a raw rgb24 buffer into a Frame.
//
// A buffer of exactly width*height*3 bytes decodes cleanly. A mismatched
// buffer is truncated to the largest whole number of pixels and returned
// alongside a SizeMismatchError, so callers can publish a best-effort frame
// while still treating the attempt as failed. A truncated frame shorter than
// one full row is considered unusable and only the error is returned.
// An empty buffer returns ErrEmptyBuffer.
func Decode(buf []byte, width, height int) (*Frame, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}

	expected := ExpectedSize(width, height)

	var sizeErr error
	if len(buf) != expected {
		sizeErr = &SizeMismatchError{Expected: expected, Actual: len(buf)}

		if len(buf) > expected {
			buf = buf[:expected]
		}
	}

	count := len(buf) / BytesPerPixel
	if count < width {
		return nil, sizeErr
	}

	pixels := make([]Pixel, count)
	for i := range pixels {
		off := i * BytesPerPixel
		pixels[i] = Pixel{buf[off], buf[off+1], buf[off+2]}
	}

	return &Frame{Pixels: pixels, Width: width, Height: height}, sizeErr
}

// Flat returns the frame as a flat [r, g, b, r, g, b, ...] byte sequence.
// This is the lossless wire-friendly shape; Pixels keeps the triplet shape.
func (f *Frame) Flat() []uint8 {
	out := make([]uint8, 0, len(f.Pixels)*BytesPerPixel)
	for _, p := range f.Pixels {
		out = append(out, p[0], p[1], p[2])
	}

	return out
}

// Complete reports whether the frame carries all width*height pixels.
func (f *Frame) Complete() bool {
	return len(f.Pixels) == f.Width*f.Height
}
