// Package render draws a static preview image of a dataset.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/woozymasta/kmlview/internal/dataset"
	"github.com/woozymasta/kmlview/internal/geo"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"golang.org/x/image/vector"
)

// Options controls the preview canvas.
type Options struct {
	Palette    Palette
	Background color.RGBA
	Width      int
	Height     int
	Padding    int
	LineWidth  float64
	PointSize  float64
}

// DefaultOptions returns a 1024x768 white canvas.
func DefaultOptions() Options {
	return Options{
		Palette:    DefaultPalette,
		Background: color.RGBA{0xff, 0xff, 0xff, 0xff},
		Width:      1024,
		Height:     768,
		Padding:    24,
		LineWidth:  2,
		PointSize:  6,
	}
}

type projection struct {
	scale      float64
	minX, minY float64
	offX, offY float64
}

func newProjection(b orb.Bound, opts Options) projection {
	minX, maxY := geo.Mercator(b.Min)
	maxX, minY := geo.Mercator(b.Max)
	dx, dy := maxX-minX, maxY-minY

	pad := opts.Padding
	if 2*pad >= opts.Width || 2*pad >= opts.Height {
		pad = 0
	}
	w := float64(opts.Width - 2*pad)
	h := float64(opts.Height - 2*pad)

	scale := math.Inf(1)
	if dx > 0 {
		scale = w / dx
	}
	if dy > 0 {
		scale = math.Min(scale, h/dy)
	}
	// single point or degenerate extent
	if math.IsInf(scale, 1) {
		scale = 1
	}

	return projection{
		scale: scale,
		minX:  minX,
		minY:  minY,
		offX:  float64(pad) + (w-dx*scale)/2,
		offY:  float64(pad) + (h-dy*scale)/2,
	}
}

func (p projection) apply(pt orb.Point) (float32, float32) {
	x, y := geo.Mercator(pt)
	return float32(p.offX + (x-p.minX)*p.scale), float32(p.offY + (y-p.minY)*p.scale)
}

// Render draws Points, LineStrings, MultiLineStrings and the outer ring of
// Polygons, the same subset the map view shows.
func Render(ds *dataset.Dataset, opts Options) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	if !ds.HasBound() {
		return img
	}

	c := canvas{
		img:  img,
		proj: newProjection(ds.Bound, opts),
		r:    vector.NewRasterizer(opts.Width, opts.Height),
		opts: opts,
	}

	for i, f := range ds.Features {
		col := opts.Palette.Color(i, f.Type)
		switch g := f.Geometry.(type) {
		case orb.Point:
			c.point(g, col)
		case orb.LineString:
			c.line(g, col)
		case orb.MultiLineString:
			for _, ls := range g {
				c.line(ls, col)
			}
		case orb.Polygon:
			if len(g) > 0 {
				c.ring(g[0], col)
			}
		}
	}

	return img
}

type canvas struct {
	img  *image.RGBA
	r    *vector.Rasterizer
	proj projection
	opts Options
}

func (c *canvas) fill(col color.Color) {
	c.r.DrawOp = draw.Over
	c.r.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
	c.r.Reset(c.opts.Width, c.opts.Height)
}

func (c *canvas) point(p orb.Point, col color.RGBA) {
	x, y := c.proj.apply(p)
	half := float32(c.opts.PointSize / 2)
	c.r.MoveTo(x-half, y-half)
	c.r.LineTo(x+half, y-half)
	c.r.LineTo(x+half, y+half)
	c.r.LineTo(x-half, y+half)
	c.r.ClosePath()
	c.fill(col)
}

// line strokes every segment as a quad; all quads share one winding so
// overlapping joins do not cancel out.
func (c *canvas) line(ls orb.LineString, col color.RGBA) {
	if len(ls) == 1 {
		c.point(ls[0], col)
		return
	}

	hw := float32(c.opts.LineWidth / 2)
	drawn := false
	for i := 1; i < len(ls); i++ {
		x1, y1 := c.proj.apply(ls[i-1])
		x2, y2 := c.proj.apply(ls[i])
		dx, dy := x2-x1, y2-y1
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw

		c.r.MoveTo(x1+nx, y1+ny)
		c.r.LineTo(x2+nx, y2+ny)
		c.r.LineTo(x2-nx, y2-ny)
		c.r.LineTo(x1-nx, y1-ny)
		c.r.ClosePath()
		drawn = true
	}
	if drawn {
		c.fill(col)
	}
}

func (c *canvas) ring(r orb.Ring, col color.RGBA) {
	if len(r) < 3 {
		c.line(orb.LineString(r), col)
		return
	}

	x, y := c.proj.apply(r[0])
	c.r.MoveTo(x, y)
	for _, p := range r[1:] {
		x, y = c.proj.apply(p)
		c.r.LineTo(x, y)
	}
	c.r.ClosePath()
	c.fill(color.NRGBA{R: col.R, G: col.G, B: col.B, A: 0x40})

	outline := make(orb.LineString, 0, len(r)+1)
	outline = append(outline, r...)
	c.line(append(outline, r[0]), col)
}

// EncodeWebP writes img as a lossless WebP image.
func EncodeWebP(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{Lossless: true})
}
