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
	"time"
)

// RetryPolicy bounds a retry loop: MaxAttempts total attempts separated by a
// fixed Backoff. A zero or negative MaxAttempts still runs one attempt.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Do runs op until it succeeds, the attempts are exhausted, or ctx ends.
// The last op error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error

	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = op(ctx); err == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(p.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
