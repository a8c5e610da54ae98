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

// action is a failure policy decision for one decode attempt.
type action struct {
	advance int
	pause   bool
}

// failurePolicy maps the error streak onto cursor movement.
// An isolated bad frame costs one step; a run of failures skips ahead past a
// possibly-corrupt region; a sustained streak pauses decoding entirely so a
// dead source is not hot-looped.
type failurePolicy struct {
	low      int
	high     int
	skipStep int
	cooldown time.Duration
}

// onFailure returns the action for the given post-increment streak value.
func (fp failurePolicy) onFailure(streak int) action {
	switch {
	case streak > fp.high:
		return action{pause: true}
	case streak > fp.low:
		return action{advance: fp.skipStep}
	default:
		return action{advance: 1}
	}
}
