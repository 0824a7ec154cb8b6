// Package mesh is a pure-Go solid kernel for hosts without a solid modeller.
// Solids are triangle soups: extrusion and union work, boolean subtraction
// does not, so walls stay solid and openings stay uncut.
package mesh

import (
	"fmt"
	"math"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/solid"
)

// Triangle is counter-clockwise seen from outside the solid.
type Triangle [3]models.Point3

// Mesh is an immutable triangle soup.
type Mesh struct {
	Triangles []Triangle
}

// Kernel implements solid.Kernel over *Mesh.
type Kernel struct{}

func NewKernel() *Kernel {
	return &Kernel{}
}

func (k *Kernel) Extrude(polygon []models.Point, height float64) (solid.Solid, error) {
	if geom.IsDegenerate(polygon) {
		return nil, fmt.Errorf("cannot extrude %d-point ring", len(polygon))
	}
	if height <= 0 {
		return nil, fmt.Errorf("extrusion height must be positive, got %g", height)
	}

	ring := geom.NormalizeWinding(polygon)
	caps, err := Triangulate(ring)
	if err != nil {
		return nil, err
	}

	n := len(ring)
	m := &Mesh{Triangles: make([]Triangle, 0, 2*len(caps)+2*n)}
	for _, t := range caps {
		a, b, c := ring[t[0]], ring[t[1]], ring[t[2]]
		m.Triangles = append(m.Triangles,
			Triangle{lift(a, height), lift(b, height), lift(c, height)},
			Triangle{lift(a, 0), lift(c, 0), lift(b, 0)},
		)
	}
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		m.Triangles = append(m.Triangles,
			Triangle{lift(a, 0), lift(b, 0), lift(b, height)},
			Triangle{lift(a, 0), lift(b, height), lift(a, height)},
		)
	}
	return m, nil
}

func (k *Kernel) OffsetInward(polygon []models.Point, distance float64) ([]models.Point, error) {
	return geom.OffsetInward(polygon, distance)
}

// Subtract always fails; callers fall back to the uncut solid.
func (k *Kernel) Subtract(a, b solid.Solid) (solid.Solid, error) {
	return nil, solid.ErrBooleanUnsupported
}

// Union concatenates both triangle sets. Overlaps are not resolved.
func (k *Kernel) Union(a, b solid.Solid) (solid.Solid, error) {
	left, err := asMesh(a)
	if err != nil {
		return nil, err
	}
	right, err := asMesh(b)
	if err != nil {
		return nil, err
	}
	out := &Mesh{Triangles: make([]Triangle, 0, len(left.Triangles)+len(right.Triangles))}
	out.Triangles = append(out.Triangles, left.Triangles...)
	out.Triangles = append(out.Triangles, right.Triangles...)
	return out, nil
}

func (k *Kernel) Translate(s solid.Solid, offset models.Point3) (solid.Solid, error) {
	in, err := asMesh(s)
	if err != nil {
		return nil, err
	}
	out := &Mesh{Triangles: make([]Triangle, len(in.Triangles))}
	for i, t := range in.Triangles {
		for j, v := range t {
			out.Triangles[i][j] = models.Point3{X: v.X + offset.X, Y: v.Y + offset.Y, Z: v.Z + offset.Z}
		}
	}
	return out, nil
}

// Box builds the cut volume as a closed mesh. It is only useful for
// previews since this kernel cannot subtract it.
func (k *Kernel) Box(pose models.OpeningCutPose) (solid.Solid, error) {
	e := pose.Extent
	if e.Width <= 0 || e.Depth <= 0 || e.Height <= 0 {
		return nil, fmt.Errorf("cut box has empty extent %gx%gx%g", e.Width, e.Depth, e.Height)
	}

	rad := pose.RotationDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	hw, hd := e.Width/2, e.Depth/2

	footprint := make([]models.Point, 4)
	for i, c := range [4][2]float64{{-hw, -hd}, {hw, -hd}, {hw, hd}, {-hw, hd}} {
		footprint[i] = models.Point{
			X: pose.Center.X + c[0]*cos - c[1]*sin,
			Y: pose.Center.Y + c[0]*sin + c[1]*cos,
		}
	}

	body, err := k.Extrude(footprint, e.Height)
	if err != nil {
		return nil, err
	}
	return k.Translate(body, models.Point3{Z: pose.Center.Z - e.Height/2})
}

func asMesh(s solid.Solid) (*Mesh, error) {
	m, ok := s.(*Mesh)
	if !ok || m == nil {
		return nil, fmt.Errorf("solid %T was not built by the mesh kernel", s)
	}
	return m, nil
}

func lift(p models.Point, z float64) models.Point3 {
	return models.Point3{X: p.X, Y: p.Y, Z: z}
}
