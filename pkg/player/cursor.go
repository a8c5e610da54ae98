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

import "time"

// cursor is the wrap-around frame position within the source.
// Invariant: 0 <= index < totalFrames.
type cursor struct {
	index       int
	totalFrames int
}

// advance moves the cursor forward by step frames, wrapping at totalFrames.
func (c *cursor) advance(step int) {
	if c.totalFrames <= 0 {
		return
	}

	c.index = (c.index + step) % c.totalFrames
}

// seekTime maps the cursor index onto a source timestamp at the target rate.
func (c cursor) seekTime(targetFPS float64) time.Duration {
	if targetFPS <= 0 {
		return 0
	}

	return time.Duration(float64(c.index) / targetFPS * float64(time.Second))
}

// totalFramesFor derives the frame count from a source duration, floored,
// minimum 1 so the cursor always has somewhere to point.
func totalFramesFor(durationSeconds, targetFPS float64) int {
	total := int(durationSeconds * targetFPS)
	if total < 1 {
		total = 1
	}

	return total
}
