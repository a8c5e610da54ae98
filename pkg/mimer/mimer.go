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

// mimer is a helper package to determine the mime type of a source file.
// The prober uses it to reject sources that are plainly not video before
// spending a subprocess on them.
package mimer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aofei/mimesniffer"
)

const (
	MediaTypeM3U  = "application/x-mpegurl"
	MediaTypeMP2T = "video/mp2t"

	UnknownMediaType = "application/octet-stream"
)

// isVideoTsSignature returns true if the given buffer is a video.ts file.
// According to https://en.wikipedia.org/wiki/List_of_file_signatures,
// the hex value 0x47 should be the first byte of a video.ts file and
// repeated every 188 bytes.
func isVideoTsSignature(buffer []byte) bool {
	const (
		tsSignature         = 0x47
		tsSignatureInterval = 188
	)

	if len(buffer) < tsSignatureInterval {
		return false
	}

	for i := 0; i < len(buffer); i += tsSignatureInterval {
		if buffer[i] != tsSignature {
			return false
		}
	}

	return true
}

func isM3USignature(buffer []byte) bool {
	const m3uSignature = "#EXTM3U"

	if len(buffer) < len(m3uSignature) {
		return false
	}

	return strings.HasPrefix(string(buffer), m3uSignature)
}

// init initializes the mimer package.
func init() {
	mimesniffer.Register(MediaTypeMP2T, isVideoTsSignature)
	mimesniffer.Register(MediaTypeM3U, isM3USignature)
}

// GetContentTypeFromReader returns the content type sniffed from the reader.
func GetContentTypeFromReader(reader io.Reader) (string, error) {
	const fingerprintSize = 512

	// Only the first 512 bytes are used to sniff the content type.
	buffer := make([]byte, fingerprintSize)

	_, err := reader.Read(buffer)
	if err != nil {
		return UnknownMediaType, fmt.Errorf("mime check failed read: %w", err)
	}

	return mimesniffer.Sniff(buffer), nil
}

// GetContentType returns the content type of the given resource at the given path.
func GetContentType(sourcePath string) string {
	f, err := os.Open(sourcePath)
	if err != nil {
		return UnknownMediaType
	}

	defer func() {
		_ = f.Close()
	}()

	mimeType, _ := GetContentTypeFromReader(f)

	return mimeType
}

// IsLikelyVideo reports whether a sniffed content type could plausibly be a
// decodable video source. Unknown types pass; the sniffer only sees 512 bytes
// and ffprobe is the real authority, so this only rejects confident
// non-video matches like text or images.
func IsLikelyVideo(mimeType string) bool {
	switch {
	case mimeType == UnknownMediaType:
		return true
	case strings.HasPrefix(mimeType, "video/"):
		return true
	case mimeType == MediaTypeM3U:
		return true
	case strings.HasPrefix(mimeType, "application/"):
		// Containers like ogg and mp4 variants sometimes sniff as application/*.
		return true
	default:
		return false
	}
}
