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
	"encoding/binary"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/gladhopper/framecast/pkg/player"
)

//nolint:gochecknoglobals // Standard upgrader setup.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// wsFramePayload packs a snapshot into the binary wire shape: an 8-byte
// big-endian header (uint32 index, uint16 width, uint16 height) followed by
// the raw rgb24 bytes.
func wsFramePayload(snap *player.Snapshot) []byte {
	const headerSize = 8

	payload := make([]byte, headerSize, headerSize+len(snap.Pixels)*3)
	binary.BigEndian.PutUint32(payload[0:4], uint32(snap.Index))
	binary.BigEndian.PutUint16(payload[4:6], uint16(snap.Width))
	binary.BigEndian.PutUint16(payload[6:8], uint16(snap.Height))

	for _, p := range snap.Pixels {
		payload = append(payload, p[0], p[1], p[2])
	}

	return payload
}

// handleWS pushes each newly published frame to the client. Slow clients
// miss frames rather than build a backlog; the subscription channel only
// holds the most recent snapshot.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Info().Err(err).Msg("websocket upgrade failed")

		return
	}

	defer func() {
		_ = conn.Close()
	}()

	frames, cancel := s.source.Subscribe()
	defer cancel()

	// Read pump: we expect no client messages, but reading is what detects
	// a closed connection.
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	// Seed the client with the current frame so it has pixels immediately.
	if err := s.writeFrame(conn, s.source.CurrentFrame()); err != nil {
		return
	}

	for {
		select {
		case snap := <-frames:
			if err := s.writeFrame(conn, snap); err != nil {
				return
			}

		case <-done:
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, snap *player.Snapshot) error {
	if snap == nil {
		return nil
	}

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

	return conn.WriteMessage(websocket.BinaryMessage, wsFramePayload(snap))
}
