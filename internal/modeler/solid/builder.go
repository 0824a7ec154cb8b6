package solid

import (
	"fmt"
	"log/slog"

	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/pose"
)

// ============================================================
// Wall builder
// ============================================================

type Options struct {
	// WallThickness hollows each polygon into walls of this thickness.
	// Zero keeps the polygons solid.
	WallThickness float64
	Logger        *slog.Logger
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

type WallBuilder struct {
	kernel Kernel
	opts   Options
}

func NewWallBuilder(kernel Kernel, opts Options) *WallBuilder {
	opts.defaults()
	return &WallBuilder{kernel: kernel, opts: opts}
}

// BuildPolygon extrudes one polygon, hollows it to the wall thickness and
// cuts every opening pose out of it. Hollowing and cut failures degrade the
// result and are reported; only a failed outer extrusion is an error.
func (b *WallBuilder) BuildPolygon(polygon models.Polygon, index int, height float64, cuts []models.OpeningCutPose) (Solid, []*models.ElementError, error) {
	outer, err := b.kernel.Extrude(polygon.Points, height)
	if err != nil {
		return nil, nil, fmt.Errorf("extrude polygon %d: %w", index, err)
	}

	var problems []*models.ElementError
	result := outer

	if b.opts.WallThickness > 0 {
		hollow, err := b.hollow(outer, polygon.Points, height)
		if err != nil {
			b.opts.Logger.Warn("wall offset failed, keeping solid extrusion",
				"polygon", index,
				"layer", polygon.Layer,
				"thickness", b.opts.WallThickness,
				"error", err)
			problems = append(problems, &models.ElementError{
				Kind: models.KindWallOffsetFailed, Index: index, Layer: polygon.Layer, Err: err,
			})
		} else {
			result = hollow
		}
	}

	for i, cut := range cuts {
		next, err := b.cut(result, cut)
		if err != nil {
			b.opts.Logger.Warn("opening cut failed",
				"polygon", index,
				"cut", i,
				"error", err)
			problems = append(problems, &models.ElementError{
				Kind: models.KindOpeningCutFailed, Index: index, Layer: polygon.Layer, Err: err,
			})
			continue
		}
		result = next
	}

	return result, problems, nil
}

func (b *WallBuilder) hollow(outer Solid, points []models.Point, height float64) (Solid, error) {
	ring, err := b.kernel.OffsetInward(points, b.opts.WallThickness)
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	inner, err := b.kernel.Extrude(ring, height)
	if err != nil {
		return nil, fmt.Errorf("extrude inner ring: %w", err)
	}
	walls, err := b.kernel.Subtract(outer, inner)
	if err != nil {
		return nil, fmt.Errorf("subtract inner: %w", err)
	}
	return walls, nil
}

func (b *WallBuilder) cut(s Solid, p models.OpeningCutPose) (Solid, error) {
	box, err := b.kernel.Box(p)
	if err != nil {
		return nil, fmt.Errorf("cut box: %w", err)
	}
	return b.kernel.Subtract(s, box)
}

// BuildFloor builds every polygon of a floor and unions them. Poses are
// keyed by polygon index. Polygons that cannot be extruded are skipped and
// reported as invalid.
func (b *WallBuilder) BuildFloor(floor models.Floor, poses map[int][]models.OpeningCutPose) (Solid, []*models.ElementError, error) {
	var (
		assembly Solid
		problems []*models.ElementError
	)

	for i, polygon := range floor.Polygons {
		s, errs, err := b.BuildPolygon(polygon, i, floor.Height, poses[i])
		problems = append(problems, errs...)
		if err != nil {
			problems = append(problems, &models.ElementError{
				Kind: models.KindInvalidPolygon, Index: i, Layer: polygon.Layer, Err: err,
			})
			continue
		}

		if assembly == nil {
			assembly = s
			continue
		}
		if assembly, err = b.kernel.Union(assembly, s); err != nil {
			return nil, problems, fmt.Errorf("floor %d: union polygon %d: %w", floor.Level, i, err)
		}
	}

	if assembly == nil {
		return nil, problems, fmt.Errorf("floor %d: %w", floor.Level, ErrEmptyAssembly)
	}
	return assembly, problems, nil
}

// ============================================================
// Model
// ============================================================

// Build runs the whole solid stage for a model: it solves opening poses,
// builds each floor and stacks the floors into one assembly. Floors that
// cannot be built are left out; the call fails only when none can.
func (b *WallBuilder) Build(m *models.Model) (Solid, []*models.ElementError, error) {
	byPolygon, problems := pose.SolveAll(m.Openings, m.Floors)

	var built []FloorSolid
	for _, floor := range m.Floors {
		poses := floorLocal(byPolygon, floor)

		s, errs, err := b.BuildFloor(floor, poses)
		problems = append(problems, errs...)
		if err != nil {
			b.opts.Logger.Warn("floor skipped", "level", floor.Level, "error", err)
			continue
		}
		built = append(built, FloorSolid{Level: floor.Level, ZOffset: floor.ZOffset, Solid: s})
	}

	assembly, err := NewComposer(b.kernel).Compose(built)
	if err != nil {
		return nil, problems, err
	}

	b.opts.Logger.Debug("assembly built",
		"floors", len(built),
		"openings", len(m.Openings),
		"problems", len(problems))
	return assembly, problems, nil
}

// floorLocal picks the poses of one floor and moves them from the model
// frame into the frame the floor is extruded in. The composer lifts the
// floor by its z offset afterwards.
func floorLocal(byPolygon map[pose.PolygonKey][]models.OpeningCutPose, floor models.Floor) map[int][]models.OpeningCutPose {
	poses := make(map[int][]models.OpeningCutPose)
	for key, list := range byPolygon {
		if key.Level != floor.Level {
			continue
		}
		local := make([]models.OpeningCutPose, len(list))
		for i, p := range list {
			p.Center.Z -= floor.ZOffset
			local[i] = p
		}
		poses[key.Polygon] = local
	}
	return poses
}
