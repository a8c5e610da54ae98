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

package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gladhopper/framecast/pkg/decoder"
	"github.com/gladhopper/framecast/pkg/interrupt"
	"github.com/gladhopper/framecast/pkg/player"
	"github.com/gladhopper/framecast/pkg/server"
)

var log zerolog.Logger //nolint:gochecknoglobals // Don't care.

func main() {
	initConfig() // May early exit if config init fails.

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = interrupt.Run(ctx)

		cancel()
	}()

	extractor := decoder.NewExtractor(&currentConfig.Decoder, &log)
	prober := decoder.NewProber(&currentConfig.Decoder, &log)

	p := player.New(&currentConfig.Player, extractor, prober, &log)
	if err := p.Init(ctx); err != nil {
		log.Error().Err(err).Msg("failed to initialize player")

		return
	}

	go func() {
		if err := p.Run(ctx); err != nil {
			log.Error().Err(err).Msg("player error")
		}

		cancel()
	}()

	s := server.New(&currentConfig.Server, p, &log)
	if err := s.Run(ctx); err != nil {
		log.Error().Err(err).Msg("http server failed")
	}

	log.Info().Msg("server stopped")
}
