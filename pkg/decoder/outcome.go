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

import "time"

// Kind classifies the terminal result of one extraction attempt.
type Kind int

const (
	KindSuccess Kind = iota
	KindEmptyOutput
	KindSizeMismatch
	KindTimeout
	KindSubprocessError
	KindSourceNotFound
)

var kindStrings = map[Kind]string{
	KindSuccess:         "success",
	KindEmptyOutput:     "emptyOutput",
	KindSizeMismatch:    "sizeMismatch",
	KindTimeout:         "timeout",
	KindSubprocessError: "subprocessError",
	KindSourceNotFound:  "sourceNotFound",
}

func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}

	return "unknown"
}

// Outcome is the single terminal result of one ExtractFrame call.
// Exactly one Outcome is produced per call; once it is returned, any
// late-arriving subprocess output has already been discarded.
type Outcome struct {
	Kind Kind
	// Data holds the raw rgb24 bytes. On KindSizeMismatch it holds whatever
	// the subprocess produced so callers can attempt a truncated conversion.
	Data    []byte
	Stderr  string
	Elapsed time.Duration
}

// Failed reports whether the attempt produced anything other than a full frame.
func (o Outcome) Failed() bool {
	return o.Kind != KindSuccess
}
