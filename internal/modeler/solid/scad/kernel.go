// Package scad is a solid kernel that builds OpenSCAD CSG trees. The tree
// is rendered to a .scad script and meshed by the openscad binary.
package scad

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/solid"
)

var ErrForeignSolid = errors.New("solid was not built by the scad kernel")

// ============================================================
// CSG nodes
// ============================================================

// Node is one OpenSCAD statement.
type Node interface {
	write(b *strings.Builder, depth int)
}

type extrusion struct {
	points []models.Point
	height float64
}

type box struct {
	pose models.OpeningCutPose
}

type difference struct {
	base Node
	cuts []Node
}

type union struct {
	children []Node
}

type translation struct {
	offset models.Point3
	child  Node
}

func (n *extrusion) write(b *strings.Builder, depth int) {
	indent(b, depth)
	fmt.Fprintf(b, "linear_extrude(height = %s) polygon(points = [", formatFloat(n.height))
	for i, p := range n.points {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "[%s, %s]", formatFloat(p.X), formatFloat(p.Y))
	}
	b.WriteString("]);\n")
}

func (n *box) write(b *strings.Builder, depth int) {
	c, e := n.pose.Center, n.pose.Extent
	indent(b, depth)
	fmt.Fprintf(b, "translate([%s, %s, %s]) rotate([0, 0, %s]) cube([%s, %s, %s], center = true);\n",
		formatFloat(c.X), formatFloat(c.Y), formatFloat(c.Z),
		formatFloat(n.pose.RotationDeg),
		formatFloat(e.Width), formatFloat(e.Depth), formatFloat(e.Height))
}

func (n *difference) write(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("difference() {\n")
	n.base.write(b, depth+1)
	for _, c := range n.cuts {
		c.write(b, depth+1)
	}
	indent(b, depth)
	b.WriteString("}\n")
}

func (n *union) write(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("union() {\n")
	for _, c := range n.children {
		c.write(b, depth+1)
	}
	indent(b, depth)
	b.WriteString("}\n")
}

func (n *translation) write(b *strings.Builder, depth int) {
	indent(b, depth)
	fmt.Fprintf(b, "translate([%s, %s, %s]) {\n",
		formatFloat(n.offset.X), formatFloat(n.offset.Y), formatFloat(n.offset.Z))
	n.child.write(b, depth+1)
	indent(b, depth)
	b.WriteString("}\n")
}

// ============================================================
// Kernel
// ============================================================

// Kernel implements solid.Kernel. It is stateless and safe for concurrent use.
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
	return &extrusion{points: append([]models.Point(nil), polygon...), height: height}, nil
}

func (k *Kernel) OffsetInward(polygon []models.Point, distance float64) ([]models.Point, error) {
	return geom.OffsetInward(polygon, distance)
}

// Subtract folds successive cuts into one difference() block.
func (k *Kernel) Subtract(a, b solid.Solid) (solid.Solid, error) {
	base, err := node(a)
	if err != nil {
		return nil, err
	}
	cut, err := node(b)
	if err != nil {
		return nil, err
	}

	if d, ok := base.(*difference); ok {
		cuts := make([]Node, 0, len(d.cuts)+1)
		cuts = append(cuts, d.cuts...)
		return &difference{base: d.base, cuts: append(cuts, cut)}, nil
	}
	return &difference{base: base, cuts: []Node{cut}}, nil
}

// Union flattens nested unions into one union() block.
func (k *Kernel) Union(a, b solid.Solid) (solid.Solid, error) {
	left, err := node(a)
	if err != nil {
		return nil, err
	}
	right, err := node(b)
	if err != nil {
		return nil, err
	}

	var children []Node
	for _, n := range []Node{left, right} {
		if u, ok := n.(*union); ok {
			children = append(children, u.children...)
			continue
		}
		children = append(children, n)
	}
	return &union{children: children}, nil
}

func (k *Kernel) Translate(s solid.Solid, offset models.Point3) (solid.Solid, error) {
	child, err := node(s)
	if err != nil {
		return nil, err
	}
	if offset == (models.Point3{}) {
		return child, nil
	}
	return &translation{offset: offset, child: child}, nil
}

func (k *Kernel) Box(pose models.OpeningCutPose) (solid.Solid, error) {
	e := pose.Extent
	if e.Width <= 0 || e.Depth <= 0 || e.Height <= 0 {
		return nil, fmt.Errorf("cut box has empty extent %gx%gx%g", e.Width, e.Depth, e.Height)
	}
	return &box{pose: pose}, nil
}

// Render writes the script for s.
func (k *Kernel) Render(s solid.Solid) (string, error) {
	n, err := node(s)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("// plan-modeler wall assembly\n")
	n.write(&b, 0)
	return b.String(), nil
}

// ============================================================
// Helpers
// ============================================================

func node(s solid.Solid) (Node, error) {
	n, ok := s.(Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignSolid, s)
	}
	return n, nil
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
