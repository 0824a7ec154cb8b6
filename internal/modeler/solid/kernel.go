// Package solid turns a floor plan model into a 3D wall assembly through a
// pluggable solid kernel.
package solid

import (
	"errors"

	"plan-modeler/internal/modeler/models"
)

var (
	// ErrBooleanUnsupported is returned by kernels that cannot subtract.
	ErrBooleanUnsupported = errors.New("boolean operation not supported by this kernel")
	ErrEmptyAssembly      = errors.New("no wall solid could be built")
)

// Solid is an opaque handle owned by a Kernel. Handles from one kernel must
// not be passed to another.
type Solid interface{}

// Kernel is the solid modelling backend. Implementations must not mutate
// their inputs; every call returns a new handle.
type Kernel interface {
	// Extrude lifts a counter-clockwise ring from z=0 to z=height.
	Extrude(polygon []models.Point, height float64) (Solid, error)
	// OffsetInward shrinks a ring by distance, failing when it collapses.
	OffsetInward(polygon []models.Point, distance float64) ([]models.Point, error)
	Subtract(a, b Solid) (Solid, error)
	Union(a, b Solid) (Solid, error)
	Translate(s Solid, offset models.Point3) (Solid, error)
	// Box builds the cut volume described by pose.
	Box(pose models.OpeningCutPose) (Solid, error)
}
