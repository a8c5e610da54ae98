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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFailurePolicyBands(t *testing.T) {
	fp := failurePolicy{low: 2, high: 6, skipStep: 20, cooldown: 10 * time.Second}

	tests := []struct {
		streak int
		want   action
	}{
		{1, action{advance: 1}},
		{2, action{advance: 1}},
		{3, action{advance: 20}},
		{6, action{advance: 20}},
		{7, action{pause: true}},
		{100, action{pause: true}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fp.onFailure(tt.streak), "streak %d", tt.streak)
	}
}

func TestCursorInvariant(t *testing.T) {
	c := cursor{totalFrames: 10}

	for _, step := range []int{1, 1, 20, 3, 7, 1} {
		c.advance(step)
		assert.GreaterOrEqual(t, c.index, 0)
		assert.Less(t, c.index, c.totalFrames)
	}
}

func TestCursorSeekTime(t *testing.T) {
	c := cursor{index: 30, totalFrames: 100}

	assert.Equal(t, 3*time.Second, c.seekTime(10))
	assert.Equal(t, time.Duration(0), c.seekTime(0))
}

func TestFrameCacheEvictsOldestFirst(t *testing.T) {
	c := newFrameCache(3)

	for i := 0; i < 5; i++ {
		c.put(i, &Snapshot{Index: i})
	}

	assert.Equal(t, 3, c.len())

	_, ok := c.get(0)
	assert.False(t, ok)
	_, ok = c.get(1)
	assert.False(t, ok)

	for i := 2; i < 5; i++ {
		s, ok := c.get(i)
		assert.True(t, ok)
		assert.Equal(t, i, s.Index)
	}
}

func TestFrameCacheZeroCapacity(t *testing.T) {
	c := newFrameCache(0)
	c.put(1, &Snapshot{Index: 1})

	assert.Equal(t, 0, c.len())
}

func TestFrameCacheReplaceExisting(t *testing.T) {
	c := newFrameCache(2)
	c.put(1, &Snapshot{Index: 1})
	c.put(1, &Snapshot{Index: 1, TotalFrames: 99})

	assert.Equal(t, 1, c.len())

	s, ok := c.get(1)
	assert.True(t, ok)
	assert.Equal(t, 99, s.TotalFrames)
}
