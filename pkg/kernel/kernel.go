// Package kernel defines the solid modelling interface the 3D mesher takes
// its surfaces from. A backend builds solids and tessellates them into
// triangle soups; the octree refines against the resulting surface.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and tessellates solids. Primitives are centered on the
// origin.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates s with cells marching-cubes cells along its
	// longest side.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
