// Package openings finds doors and windows in a drawing and binds each one
// to the wall segment it sits on.
package openings

import (
	"log/slog"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/parser"
)

// ============================================================
// Catalog
// ============================================================

const (
	DoorWidth    = 900.0
	DoorHeight   = 2100.0
	WindowWidth  = 1200.0
	WindowHeight = 1200.0
	WindowSill   = 1000.0

	// Rectangle candidates outside these bounds are noise.
	MinRectSize = 500.0
	MaxRectSize = 3000.0

	DefaultTolerance = 500.0
)

func catalogSize(kind models.OpeningKind) (width, height float64) {
	if kind == models.OpeningDoor {
		return DoorWidth, DoorHeight
	}
	return WindowWidth, WindowHeight
}

func sillHeight(kind models.OpeningKind) float64 {
	if kind == models.OpeningWindow {
		return WindowSill
	}
	return 0
}

// ============================================================
// Detector
// ============================================================

type Options struct {
	Vocabulary parser.Vocabulary
	// Tolerance is the largest opening-to-wall distance accepted.
	Tolerance float64
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if len(o.Vocabulary.Door) == 0 && len(o.Vocabulary.Window) == 0 && len(o.Vocabulary.Opening) == 0 {
		o.Vocabulary = parser.DefaultVocabulary()
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Candidate is a detected opening not yet bound to a wall.
type Candidate struct {
	Kind     models.OpeningKind
	Position models.Point
	Width    float64
	Height   float64
	Rotation float64
	ZOffset  float64
	Source   models.OpeningSource
	Layer    string
	Name     string
	// Entity is the position of the source entity in the input document.
	Entity int
	// Polygon is the index of the consumed polygon for rectangle
	// candidates, -1 for insertions.
	Polygon int
}

// Detection is the output of Detect. Rooms are the input polygons minus
// those consumed as opening rectangles.
type Detection struct {
	Candidates []Candidate
	Rooms      []models.Polygon
}

type Detector struct {
	opts Options
}

func NewDetector(opts Options) *Detector {
	opts.defaults()
	return &Detector{opts: opts}
}

// Detect runs both strategies. Insertions are read from entities; rectangles
// are read from polygons, which must have been extracted from the same
// entities.
func (d *Detector) Detect(entities []models.Entity, polygons []models.Polygon) Detection {
	var det Detection

	for _, entity := range entities {
		if c, ok := d.fromInsertion(entity); ok {
			c.Entity = entity.Index
			det.Candidates = append(det.Candidates, c)
		}
	}

	for i, polygon := range polygons {
		if !d.fromPolyline(entities, polygon) {
			det.Rooms = append(det.Rooms, polygon)
			continue
		}
		c, ok := d.fromRectangle(polygon)
		if !ok {
			det.Rooms = append(det.Rooms, polygon)
			continue
		}
		c.Polygon = i
		c.Entity = entities[polygon.Entity].Index
		det.Candidates = append(det.Candidates, c)
	}

	d.opts.Logger.Debug("openings detected",
		"candidates", len(det.Candidates),
		"rooms", len(det.Rooms))
	return det
}

func (d *Detector) fromInsertion(entity models.Entity) (Candidate, bool) {
	if entity.Type != models.EntityInsert {
		return Candidate{}, false
	}
	insert, ok := entity.Geometry.(models.InsertGeometry)
	if !ok {
		return Candidate{}, false
	}
	kind, ok := d.opts.Vocabulary.ClassifyName(insert.Block)
	if !ok {
		return Candidate{}, false
	}

	width, height := catalogSize(kind)
	return Candidate{
		Kind:     kind,
		Position: insert.Position,
		Width:    width * scale(insert.XScale),
		Height:   height * scale(insert.YScale),
		Rotation: insert.Rotation,
		ZOffset:  sillHeight(kind),
		Source:   models.SourceInsertion,
		Layer:    entity.Layer,
		Name:     insert.Block,
		Polygon:  -1,
	}, true
}

// fromPolyline reports whether polygon came from a polyline entity on an
// opening layer.
func (d *Detector) fromPolyline(entities []models.Entity, polygon models.Polygon) bool {
	if polygon.Entity < 0 || polygon.Entity >= len(entities) {
		return false
	}
	if entities[polygon.Entity].Type != models.EntityPolyline {
		return false
	}
	return d.opts.Vocabulary.IsOpeningLayer(polygon.Layer)
}

func (d *Detector) fromRectangle(polygon models.Polygon) (Candidate, bool) {
	if len(polygon.Points) != 4 {
		return Candidate{}, false
	}
	min, max := geom.Bounds(polygon.Points)
	width, height := max.X-min.X, max.Y-min.Y
	if !inRange(width) || !inRange(height) {
		return Candidate{}, false
	}

	kind, ok := d.opts.Vocabulary.ClassifyName(polygon.Layer)
	if !ok {
		kind = kindFromAspect(width, height)
	}

	return Candidate{
		Kind:     kind,
		Position: models.Point{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2},
		Width:    width,
		Height:   height,
		ZOffset:  sillHeight(kind),
		Source:   models.SourceRectangle,
		Layer:    polygon.Layer,
		Name:     polygon.Handle,
	}, true
}

func kindFromAspect(width, height float64) models.OpeningKind {
	if width < 1500 && height > 1800 {
		return models.OpeningDoor
	}
	return models.OpeningWindow
}

func inRange(v float64) bool {
	return v >= MinRectSize && v <= MaxRectSize
}

func scale(v float64) float64 {
	if v == 0 {
		return 1
	}
	if v < 0 {
		return -v
	}
	return v
}
