// Package extract turns drawing entities into closed, counter-clockwise polygons.
package extract

import (
	"fmt"
	"log/slog"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
)

// Options tunes tessellation. Zero values fall back to defaults.
type Options struct {
	CircleSegments int
	SplineSamples  int
	ArcMode        geom.ArcMode
	Logger         *slog.Logger
}

func (o *Options) defaults() {
	if o.CircleSegments < 3 {
		o.CircleSegments = geom.DefaultCircleSegments
	}
	if o.SplineSamples < 2 {
		o.SplineSamples = geom.DefaultSplineSamples
	}
	if o.ArcMode == "" {
		o.ArcMode = geom.ArcPie
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Result is the outcome of one extraction pass.
type Result struct {
	Polygons []models.Polygon
	// Invalid lists dropped shapes: too few points, zero area or bad geometry.
	Invalid []*models.ElementError
	// Open counts polylines not flagged as closed. A polyline whose last
	// vertex happens to repeat the first is still open.
	Open int
}

type Extractor struct {
	opts Options
}

func New(opts Options) *Extractor {
	opts.defaults()
	return &Extractor{opts: opts}
}

// Extract converts every shape entity into a polygon. Text and insert
// entities are not shapes and are passed over. It fails only when the input
// is empty or nothing usable came out of it.
func (e *Extractor) Extract(entities []models.Entity) (Result, error) {
	var res Result
	if len(entities) == 0 {
		return res, models.ErrNoEntities
	}

	for i, entity := range entities {
		points, isShape, err := e.tessellate(entity)
		if !isShape {
			continue
		}
		if err != nil {
			res.Invalid = append(res.Invalid, &models.ElementError{
				Kind: models.KindEntityParse, Index: entity.Index, Layer: entity.Layer, Err: err,
			})
			continue
		}
		if points == nil {
			res.Open++
			continue
		}

		points = geom.TrimClosingPoint(points)
		if geom.IsDegenerate(points) {
			res.Invalid = append(res.Invalid, &models.ElementError{
				Kind:  models.KindInvalidPolygon,
				Index: entity.Index,
				Layer: entity.Layer,
				Err:   fmt.Errorf("%d points, area %g", len(points), geom.SignedArea(points)),
			})
			continue
		}

		res.Polygons = append(res.Polygons, models.Polygon{
			Points: geom.NormalizeWinding(points),
			Layer:  entity.Layer,
			Handle: entity.Handle,
			Entity: i,
		})
	}

	e.opts.Logger.Debug("entities extracted",
		"entities", len(entities),
		"polygons", len(res.Polygons),
		"invalid", len(res.Invalid),
		"open", res.Open)

	if len(res.Polygons) == 0 {
		return res, models.ErrNoClosedShapes
	}
	return res, nil
}

// tessellate returns the raw ring for a shape entity. A nil ring with no
// error means an open polyline.
func (e *Extractor) tessellate(entity models.Entity) ([]models.Point, bool, error) {
	switch entity.Type {
	case models.EntityPolyline:
		g, ok := entity.Geometry.(models.PolylineGeometry)
		if !ok {
			return nil, true, geometryMismatch(entity)
		}
		if !g.Closed {
			return nil, true, nil
		}
		return append([]models.Point(nil), g.Vertices...), true, nil

	case models.EntityCircle:
		g, ok := entity.Geometry.(models.CircleGeometry)
		if !ok {
			return nil, true, geometryMismatch(entity)
		}
		return geom.Circle(g.Center, g.Radius, e.opts.CircleSegments), true, nil

	case models.EntityArc:
		g, ok := entity.Geometry.(models.ArcGeometry)
		if !ok {
			return nil, true, geometryMismatch(entity)
		}
		return geom.Arc(g.Center, g.Radius, g.StartAngle, g.EndAngle, e.opts.ArcMode), true, nil

	case models.EntitySpline:
		g, ok := entity.Geometry.(models.SplineGeometry)
		if !ok {
			return nil, true, geometryMismatch(entity)
		}
		return geom.Spline(g.ControlPoints, e.opts.SplineSamples), true, nil
	}

	return nil, false, nil
}

func geometryMismatch(entity models.Entity) error {
	return fmt.Errorf("%s entity carries %T geometry", entity.Type, entity.Geometry)
}
