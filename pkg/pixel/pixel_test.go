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

package pixel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	buf := []byte{
		0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255,
		255, 255, 255, 128, 128, 128, 10, 20, 30, 40, 50, 60,
	}

	frame, err := Decode(buf, 4, 2)
	require.NoError(t, err)
	require.NotNil(t, frame)

	want := []Pixel{
		{0, 0, 0}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255},
		{255, 255, 255}, {128, 128, 128}, {10, 20, 30}, {40, 50, 60},
	}
	assert.Equal(t, want, frame.Pixels)
	assert.True(t, frame.Complete())
	assert.Equal(t, buf, frame.Flat())
}

func TestDecodeEmpty(t *testing.T) {
	frame, err := Decode(nil, 4, 2)
	assert.Nil(t, frame)
	assert.ErrorIs(t, err, ErrEmptyBuffer)

	frame, err = Decode([]byte{}, 4, 2)
	assert.Nil(t, frame)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestDecodeShortBufferTruncates(t *testing.T) {
	buf := make([]byte, ExpectedSize(4, 2)-1)
	for i := range buf {
		buf[i] = uint8(i)
	}

	frame, err := Decode(buf, 4, 2)

	var sizeErr *SizeMismatchError

	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 24, sizeErr.Expected)
	assert.Equal(t, 23, sizeErr.Actual)

	// 23 bytes hold 7 whole pixels; the trailing partial triplet is dropped.
	require.NotNil(t, frame)
	assert.Len(t, frame.Pixels, 7)
	assert.False(t, frame.Complete())
	assert.Equal(t, Pixel{0, 1, 2}, frame.Pixels[0])
	assert.Equal(t, Pixel{18, 19, 20}, frame.Pixels[6])
}

func TestDecodeBelowOneRowRejected(t *testing.T) {
	// 8 bytes is 2 whole pixels, under the 4-pixel row minimum.
	frame, err := Decode(make([]byte, 8), 4, 2)

	var sizeErr *SizeMismatchError

	assert.True(t, errors.As(err, &sizeErr))
	assert.Nil(t, frame)
}

func TestDecodeOversizedBufferTruncates(t *testing.T) {
	buf := make([]byte, ExpectedSize(4, 2)+6)

	frame, err := Decode(buf, 4, 2)

	var sizeErr *SizeMismatchError

	require.ErrorAs(t, err, &sizeErr)
	require.NotNil(t, frame)
	assert.Len(t, frame.Pixels, 8)
	assert.True(t, frame.Complete())
}

func TestTestPattern(t *testing.T) {
	frame := TestPattern(16, 9, 0)

	assert.Len(t, frame.Pixels, 16*9)
	assert.True(t, frame.Complete())

	// The moving bar means consecutive ticks render different imagery.
	assert.NotEqual(t, frame.Pixels, TestPattern(16, 9, 1).Pixels)
}
