package mapper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"plan-modeler/internal/modeler/extract"
	"plan-modeler/internal/modeler/floors"
	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/labels"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/openings"
	"plan-modeler/internal/modeler/parser"
)

var ErrInvalidDocument = errors.New("invalid document")

// ============================================================
// Converter
// ============================================================

// Options carries the pipeline tuning. Zero values use the package defaults
// of each stage.
type Options struct {
	CircleSegments int
	SplineSamples  int
	ArcMode        geom.ArcMode
	WallTolerance  float64
	FloorHeight    float64
	WallThickness  float64
	Vocabulary     parser.Vocabulary
	Logger         *slog.Logger
}

// Converter runs the 2D reconstruction: entities in, Model out. It holds no
// per-document state and may be shared between goroutines.
type Converter struct {
	opts      Options
	extractor *extract.Extractor
	detector  *openings.Detector
}

func New(opts Options) *Converter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FloorHeight <= 0 {
		opts.FloorHeight = floors.DefaultHeight
	}

	return &Converter{
		opts: opts,
		extractor: extract.New(extract.Options{
			CircleSegments: opts.CircleSegments,
			SplineSamples:  opts.SplineSamples,
			ArcMode:        opts.ArcMode,
			Logger:         opts.Logger,
		}),
		detector: openings.NewDetector(openings.Options{
			Vocabulary: opts.Vocabulary,
			Tolerance:  opts.WallTolerance,
			Logger:     opts.Logger,
		}),
	}
}

// Convert decodes an entity document and reconstructs it.
func (c *Converter) Convert(r io.Reader) (*models.Model, error) {
	doc, err := parser.DecodeDocument(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return c.ConvertDocument(doc)
}

// ConvertDocument reconstructs a decoded document. It fails only when the
// document is malformed or yields no usable polygon; every other problem is
// counted in the model diagnostics.
func (c *Converter) ConvertDocument(doc *parser.Document) (*models.Model, error) {
	if doc == nil || len(doc.Entities) == 0 {
		return nil, models.ErrNoEntities
	}

	thickness := c.opts.WallThickness
	if doc.WallThickness != nil {
		thickness = *doc.WallThickness
	}
	if thickness < 0 {
		return nil, fmt.Errorf("%w: wall_thickness %g is negative", ErrInvalidDocument, thickness)
	}

	heights, err := c.heights(doc.FloorHeights)
	if err != nil {
		return nil, err
	}

	var diag models.Diagnostics
	diag.Entities = len(doc.Entities)

	parsed := parser.ParseEntities(doc.Entities)
	diag.RecordAll(parsed.Skipped)
	if len(parsed.Entities) == 0 {
		return nil, models.ErrNoClosedShapes
	}

	return c.reconstruct(parsed.Entities, thickness, heights, diag)
}

// Reconstruct runs the pipeline on already parsed entities. Element errors
// report each entity by its Index.
func (c *Converter) Reconstruct(entities []models.Entity, wallThickness float64) (*models.Model, error) {
	var diag models.Diagnostics
	diag.Entities = len(entities)
	return c.reconstruct(entities, wallThickness, floors.Heights{Default: c.opts.FloorHeight}, diag)
}

func (c *Converter) reconstruct(entities []models.Entity, thickness float64, heights floors.Heights, diag models.Diagnostics) (*models.Model, error) {
	extracted, err := c.extractor.Extract(entities)
	diag.RecordAll(extracted.Invalid)
	diag.OpenShapes += extracted.Open
	if err != nil {
		return nil, err
	}

	det := c.detector.Detect(entities, extracted.Polygons)
	if len(det.Rooms) == 0 {
		return nil, fmt.Errorf("%w: every closed shape is an opening", models.ErrNoClosedShapes)
	}

	stories := floors.Build(det.Rooms, heights)
	placed, unassigned := c.detector.Assign(det.Candidates, stories)
	diag.RecordAll(unassigned)

	for _, f := range stories {
		diag.Polygons += len(f.Polygons)
	}

	model := &models.Model{
		Floors:        stories,
		Openings:      placed,
		Labels:        labels.Associate(entities, stories),
		WallThickness: thickness,
		IsMultistory:  len(stories) > 1,
		Diagnostics:   diag,
	}
	if model.Openings == nil {
		model.Openings = []models.Opening{}
	}
	if model.Labels == nil {
		model.Labels = []models.TextLabel{}
	}

	c.opts.Logger.Info("model reconstructed",
		"floors", len(model.Floors),
		"polygons", diag.Polygons,
		"openings", len(model.Openings),
		"labels", len(model.Labels),
		"unassigned_openings", diag.UnassignedOpenings,
		"invalid_polygons", diag.InvalidPolygons,
		"open_shapes", diag.OpenShapes,
		"skipped_entities", diag.SkippedEntities)

	return model, nil
}

func (c *Converter) heights(raw map[string]float64) (floors.Heights, error) {
	h := floors.Heights{Default: c.opts.FloorHeight}
	if len(raw) == 0 {
		return h, nil
	}

	h.PerLevel = make(map[int]float64, len(raw))
	for key, v := range raw {
		level, err := strconv.Atoi(key)
		if err != nil {
			return h, fmt.Errorf("%w: floor_heights key %q is not a level", ErrInvalidDocument, key)
		}
		if v <= 0 {
			return h, fmt.Errorf("%w: floor %d height %g must be positive", ErrInvalidDocument, level, v)
		}
		h.PerLevel[level] = v
	}
	return h, nil
}
