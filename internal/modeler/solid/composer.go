package solid

import (
	"fmt"
	"sort"

	"plan-modeler/internal/modeler/models"
)

// FloorSolid is the built solid of one story, in local coordinates.
type FloorSolid struct {
	Level   int
	ZOffset float64
	Solid   Solid
}

type Composer struct {
	kernel Kernel
}

func NewComposer(kernel Kernel) *Composer {
	return &Composer{kernel: kernel}
}

// Compose lifts every floor to its z offset and unions them bottom-up.
// A single floor resting on the ground is returned as is.
func (c *Composer) Compose(floors []FloorSolid) (Solid, error) {
	if len(floors) == 0 {
		return nil, ErrEmptyAssembly
	}
	if len(floors) == 1 && floors[0].ZOffset == 0 {
		return floors[0].Solid, nil
	}

	ordered := make([]FloorSolid, len(floors))
	copy(ordered, floors)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Level < ordered[j].Level })

	var assembly Solid
	for _, f := range ordered {
		lifted, err := c.kernel.Translate(f.Solid, models.Point3{Z: f.ZOffset})
		if err != nil {
			return nil, fmt.Errorf("translate floor %d: %w", f.Level, err)
		}
		if assembly == nil {
			assembly = lifted
			continue
		}
		if assembly, err = c.kernel.Union(assembly, lifted); err != nil {
			return nil, fmt.Errorf("union floor %d: %w", f.Level, err)
		}
	}
	return assembly, nil
}
