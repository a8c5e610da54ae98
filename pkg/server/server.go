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

// Package server exposes the read-side accessors over HTTP/JSON. It only
// ever reads published snapshots; nothing here can block or fail the
// pacing controller.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gladhopper/framecast/pkg/player"
)

const (
	lAddr  = "addr"
	lIndex = "frameIndex"
	lURL   = "url"
)

//nolint:gochecknoglobals // allows logging from non-method funcs
var log zerolog.Logger

// Config configures the HTTP server.
type Config struct { //nolint:govet // Don't care about alignment.
	Host              string        `yaml:"host" json:"host" env:"HOST" doc:"Listen host"`
	Port              int           `yaml:"port" json:"port" env:"PORT" doc:"Listen port"`
	KeepaliveURL      string        `yaml:"keepaliveUrl" json:"keepaliveUrl" env:"KEEPALIVE_URL" doc:"If set, this URL is fetched periodically to keep free-tier hosts from idling the process"`
	KeepaliveInterval time.Duration `yaml:"keepaliveInterval" json:"keepaliveInterval" doc:"Delay between keepalive self-pings"`
}

// ConfigDefault returns the default values for a Config.
func ConfigDefault() Config {
	return Config{
		Port:              8080,
		KeepaliveInterval: 5 * time.Minute,
	}
}

// FrameSource is the read-only surface the HTTP layer consumes.
type FrameSource interface {
	CurrentFrame() *player.Snapshot
	FrameAt(index int) (*player.Snapshot, bool)
	Status() player.Status
	Subscribe() (<-chan *player.Snapshot, func())
}

// Server serves frames and status over HTTP.
type Server struct {
	config *Config
	source FrameSource
	engine *gin.Engine
}

// New returns a new Server instance.
func New(config *Config, source FrameSource, logger *zerolog.Logger) *Server {
	log = logger.With().Str("pkg", "server").Logger()

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	s := &Server{
		config: config,
		source: source,
		engine: engine,
	}

	engine.GET("/frame", s.handleFrame)
	engine.GET("/status", s.handleStatus)
	engine.GET("/ping", s.handlePing)
	engine.GET("/ws", s.handleWS)

	return s
}

// corsMiddleware injects permissive CORS headers on every response so
// browser-hosted clients (game-engine web builds) can poll frames.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}

// frameResponse is the JSON shape of one frame. Pixels are a flat
// [r, g, b, r, g, b, ...] list; clients that want triplets regroup by 3.
type frameResponse struct {
	Index       int     `json:"index"`
	TotalFrames int     `json:"totalFrames"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Timestamp   int64   `json:"timestamp"`
	Fallback    bool    `json:"fallback"`
	Pixels      []uint8 `json:"pixels"`
}

func toFrameResponse(snap *player.Snapshot) frameResponse {
	pixels := make([]uint8, 0, len(snap.Pixels)*3)
	for _, p := range snap.Pixels {
		pixels = append(pixels, p[0], p[1], p[2])
	}

	return frameResponse{
		Index:       snap.Index,
		TotalFrames: snap.TotalFrames,
		Width:       snap.Width,
		Height:      snap.Height,
		Timestamp:   snap.Timestamp.UnixMilli(),
		Fallback:    snap.Fallback,
		Pixels:      pixels,
	}
}

// handleFrame returns the current frame, or a specific cached frame when an
// index query is given. Decode failures never surface here; the response is
// simply the last good frame with a stale timestamp.
func (s *Server) handleFrame(c *gin.Context) {
	if indexParam := c.Query("index"); indexParam != "" {
		index, err := strconv.Atoi(indexParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})

			return
		}

		snap, ok := s.source.FrameAt(index)
		if !ok {
			log.Debug().Int(lIndex, index).Msg("cache miss")
			c.JSON(http.StatusNotFound, gin.H{"error": "frame not cached"})

			return
		}

		c.JSON(http.StatusOK, toFrameResponse(snap))

		return
	}

	c.JSON(http.StatusOK, toFrameResponse(s.source.CurrentFrame()))
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Status())
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is canceled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.config.KeepaliveURL != "" {
		go s.keepalive(ctx)
	}

	errC := make(chan error, 1)

	go func() {
		errC <- httpServer.ListenAndServe()
	}()

	log.Info().Str(lAddr, addr).Msg("http server starting")

	select {
	case err := <-errC:
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return nil
	}
}
