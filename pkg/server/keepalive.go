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

package server

import (
	"context"
	"net/http"
	"time"
)

// keepalive periodically fetches the configured URL, typically this
// process's own /ping route on its public address. Free-tier hosts idle
// processes that see no traffic; the self-ping keeps the decode loop warm.
func (s *Server) keepalive(ctx context.Context) {
	client := &http.Client{Timeout: 30 * time.Second}

	ticker := time.NewTicker(s.config.KeepaliveInterval)
	defer ticker.Stop()

	log.Info().Str(lURL, s.config.KeepaliveURL).Dur("interval", s.config.KeepaliveInterval).
		Msg("keepalive starting")

	for {
		select {
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet,
				s.config.KeepaliveURL, nil)
			if err != nil {
				log.Warn().Err(err).Msg("keepalive request build failed")

				continue
			}

			resp, err := client.Do(req)
			if err != nil {
				log.Info().Err(err).Msg("keepalive ping failed")

				continue
			}

			_ = resp.Body.Close()

		case <-ctx.Done():
			return
		}
	}
}
