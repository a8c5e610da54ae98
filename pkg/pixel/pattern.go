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

package pixel

// TestPattern renders the procedural fallback frame served before the first
// successful decode, or while the source is unreachable. It draws a vertical
// color gradient with a moving diagonal bar so remote clients can tell the
// feed is alive even without real video behind it.
func TestPattern(width, height, tick int) *Frame {
	pixels := make([]Pixel, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8(x * 255 / max(width-1, 1))
			g := uint8(y * 255 / max(height-1, 1))
			b := uint8(128)

			if (x+y+tick)%8 == 0 {
				r, g, b = 255, 255, 255
			}

			pixels[y*width+x] = Pixel{r, g, b}
		}
	}

	return &Frame{Pixels: pixels, Width: width, Height: height}
}
