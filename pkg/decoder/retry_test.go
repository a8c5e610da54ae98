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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyFirstTry(t *testing.T) {
	calls := 0

	err := RetryPolicy{MaxAttempts: 3}.Do(context.Background(), func(context.Context) error {
		calls++

		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	calls := 0
	opErr := errors.New("boom")

	err := RetryPolicy{MaxAttempts: 3}.Do(context.Background(), func(context.Context) error {
		calls++

		return opErr
	})

	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyRecoversMidway(t *testing.T) {
	calls := 0

	err := RetryPolicy{MaxAttempts: 5}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}

		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0

	_ = RetryPolicy{}.Do(context.Background(), func(context.Context) error {
		calls++

		return errors.New("boom")
	})

	assert.Equal(t, 1, calls)
}

func TestRetryPolicyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0

	err := RetryPolicy{MaxAttempts: 3}.Do(ctx, func(context.Context) error {
		calls++

		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
