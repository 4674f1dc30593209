package render

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"strconv"
)

// Palette assigns stable colors to features.
type Palette []color.RGBA

// DefaultPalette is a set of saturated colors readable on light map tiles.
var DefaultPalette = Palette{
	{0xe6, 0x19, 0x4b, 0xff},
	{0x3c, 0xb4, 0x4b, 0xff},
	{0x43, 0x63, 0xd8, 0xff},
	{0xf5, 0x82, 0x31, 0xff},
	{0x91, 0x1e, 0xb4, 0xff},
	{0x46, 0xf0, 0xf0, 0xff},
	{0xf0, 0x32, 0xe6, 0xff},
	{0x9a, 0x63, 0x24, 0xff},
	{0x80, 0x00, 0x00, 0xff},
	{0x00, 0x80, 0x80, 0xff},
	{0x00, 0x00, 0x75, 0xff},
	{0x80, 0x80, 0x00, 0xff},
}

// Color returns the color of the i-th feature of the given geometry type.
func (p Palette) Color(i int, typ string) color.RGBA {
	if len(p) == 0 {
		return color.RGBA{A: 0xff}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(typ))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(strconv.AppendInt(nil, int64(i), 10))
	return p[h.Sum32()%uint32(len(p))]
}

// Hex formats a color as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex reads a #rrggbb color.
func ParseHex(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
