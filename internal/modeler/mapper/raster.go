package mapper

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"

	"plan-modeler/internal/modeler/models"
)

const (
	DefaultRasterWidth = 1024
	maxRasterSide      = 8192
)

var (
	roomFill   = color.RGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff}
	doorFill   = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	windowFill = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
)

// RenderPNG rasterises the floor with the given level to a PNG px wide.
// Rooms are filled grey and openings in their SVG stroke colours; labels
// are not drawn.
func (r *Renderer) RenderPNG(model *models.Model, level, px int) ([]byte, error) {
	floor, err := pickFloor(model, level)
	if err != nil {
		return nil, err
	}
	if px <= 0 {
		px = DefaultRasterWidth
	}

	v := newViewport(floor.Polygons).fit(px)
	w, h := px, int(math.Ceil(v.height*v.scale))
	if h <= 0 {
		h = 1
	}
	if w > maxRasterSide || h > maxRasterSide {
		return nil, fmt.Errorf("raster %dx%d exceeds %d pixels per side", w, h, maxRasterSide)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	z := vector.NewRasterizer(w, h)
	for _, polygon := range floor.Polygons {
		fill(z, dst, v, polygon.Points, roomFill)
	}
	for _, o := range model.Openings {
		points, ok := openingOutline(model, floor, o)
		if !ok {
			continue
		}
		c := windowFill
		if o.Kind == models.OpeningDoor {
			c = doorFill
		}
		fill(z, dst, v, points, c)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fill(z *vector.Rasterizer, dst *image.RGBA, v viewport, points []models.Point, c color.Color) {
	if len(points) < 3 {
		return
	}
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	first := v.project(points[0])
	z.MoveTo(float32(first.X), float32(first.Y))
	for _, p := range points[1:] {
		q := v.project(p)
		z.LineTo(float32(q.X), float32(q.Y))
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}
