package mapper

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-modeler/internal/modeler/models"
)

func renderModel() *models.Model {
	idx := 0
	room := []models.Point{{X: 0, Y: 0}, {X: 5000, Y: 0}, {X: 5000, Y: 4000}, {X: 0, Y: 4000}}
	return &models.Model{
		Floors: []models.Floor{
			{Level: 0, Height: 3000, Polygons: []models.Polygon{{Points: room}}},
			{Level: 1, ZOffset: 3000, Height: 3000, Polygons: []models.Polygon{{Points: room}}},
		},
		Openings: []models.Opening{
			{Kind: models.OpeningDoor, Position: models.Point{X: 2500, Y: 0}, Width: 900, Height: 2100},
			{Kind: models.OpeningWindow, Position: models.Point{X: 5000, Y: 2000}, Width: 1200, Height: 1200, WallSegment: 1},
			{Kind: models.OpeningWindow, Position: models.Point{X: 0, Y: 2000}, Width: 1200, Height: 1200, WallSegment: 3, FloorLevel: 1},
		},
		Labels: []models.TextLabel{
			{Text: "Kitchen & Dining", Position: models.Point{X: 2500, Y: 2000}, PolygonIndex: &idx},
			{Text: "Bedroom", Position: models.Point{X: 2500, Y: 2000}, FloorLevel: 1},
		},
		WallThickness: 200,
		IsMultistory:  true,
	}
}

func TestRender(t *testing.T) {
	svg, err := NewRenderer().Render(renderModel(), 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svg, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, svg, `width="6000" height="5000" viewBox="0 0 6000 5000" data-level="0"`)
	assert.Contains(t, svg, `<path id="room-0" d="M 500 4500 L 5500 4500 L 5500 500 L 500 500 Z"`)
	assert.Equal(t, 2, strings.Count(svg, `<path id="opening-`), "third opening is upstairs")
	assert.Contains(t, svg, `class="door"`)
	assert.Contains(t, svg, `stroke="#d62728"`)
	assert.Contains(t, svg, `Kitchen &amp; Dining`)
	assert.NotContains(t, svg, "Bedroom")
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
}

func TestRender_DoorOutline(t *testing.T) {
	svg, err := NewRenderer().Render(renderModel(), 0)
	require.NoError(t, err)
	// 900 wide along the wall, 200 thick across it, centred on (2500, 0)
	assert.Contains(t, svg, `d="M 2550 4600 L 3450 4600 L 3450 4400 L 2550 4400 Z"`)
}

func TestRender_Errors(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(nil, 0)
	assert.Error(t, err)
	_, err = r.Render(&models.Model{}, 0)
	assert.Error(t, err)
	_, err = r.Render(renderModel(), 5)
	assert.ErrorContains(t, err, "no floor 5")
}

func TestRenderPNG(t *testing.T) {
	data, err := NewRenderer().RenderPNG(renderModel(), 0, 600)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())

	white := color.RGBAModel.Convert(img.At(10, 10)).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, white)

	inside := color.RGBAModel.Convert(img.At(300, 250)).(color.RGBA)
	assert.Equal(t, roomFill, inside)

	// door centre: drawing (2500, 0) -> image (300, 450)
	door := color.RGBAModel.Convert(img.At(300, 450)).(color.RGBA)
	assert.Equal(t, doorFill, door)
}

func TestRenderPNG_TooLarge(t *testing.T) {
	_, err := NewRenderer().RenderPNG(renderModel(), 0, 20000)
	assert.Error(t, err)
}
