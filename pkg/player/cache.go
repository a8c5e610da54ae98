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

import "golang.org/x/exp/slices"

// frameCache keeps the most recently decoded snapshots keyed by frame index,
// evicting oldest-first once capacity is exceeded. A capacity of zero
// disables caching beyond the published current frame.
type frameCache struct {
	capacity int
	frames   map[int]*Snapshot
	order    []int
}

func newFrameCache(capacity int) *frameCache {
	return &frameCache{
		capacity: capacity,
		frames:   make(map[int]*Snapshot),
	}
}

func (c *frameCache) put(index int, s *Snapshot) {
	if c.capacity <= 0 {
		return
	}

	if _, ok := c.frames[index]; ok {
		c.frames[index] = s

		return
	}

	c.frames[index] = s
	c.order = append(c.order, index)

	if len(c.order) > c.capacity {
		delete(c.frames, c.order[0])
		c.order = slices.Delete(c.order, 0, 1)
	}
}

func (c *frameCache) get(index int) (*Snapshot, bool) {
	s, ok := c.frames[index]

	return s, ok
}

func (c *frameCache) len() int {
	return len(c.frames)
}
