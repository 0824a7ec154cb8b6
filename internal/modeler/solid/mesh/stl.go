package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/solid"
)

// WriteSTL writes s as an ASCII STL solid named name.
func WriteSTL(w io.Writer, name string, s solid.Solid) error {
	m, err := asMesh(s)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range m.Triangles {
		n := normal(t)
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", n.X, n.Y, n.Z)
		bw.WriteString("    outer loop\n")
		for _, v := range t {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v.X, v.Y, v.Z)
		}
		bw.WriteString("    endloop\n")
		bw.WriteString("  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

func normal(t Triangle) models.Point3 {
	ux, uy, uz := t[1].X-t[0].X, t[1].Y-t[0].Y, t[1].Z-t[0].Z
	vx, vy, vz := t[2].X-t[0].X, t[2].Y-t[0].Y, t[2].Z-t[0].Z
	n := models.Point3{X: uy*vz - uz*vy, Y: uz*vx - ux*vz, Z: ux*vy - uy*vx}
	l := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
	if l == 0 {
		return models.Point3{}
	}
	return models.Point3{X: n.X / l, Y: n.Y / l, Z: n.Z / l}
}
