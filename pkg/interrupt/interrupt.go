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

// Package interrupt blocks on termination signals so main() can turn
// SIGINT/SIGTERM into a context cancellation.
package interrupt

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Run blocks until the process receives SIGINT or SIGTERM, or until ctx
// is canceled. Returns the signal wrapped as an error, or ctx.Err().
func Run(ctx context.Context) error {
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigC)

	select {
	case sig := <-sigC:
		return fmt.Errorf("received signal: %v", sig)

	case <-ctx.Done():
		return ctx.Err()
	}
}
