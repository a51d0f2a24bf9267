package sim

type box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// overlaps reports whether two axis-aligned boxes share positive area on both
// axes. Boxes that only touch at an edge do not overlap.
func overlaps(a, b box) bool {
	return a.X < b.X+b.Width &&
		b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height &&
		b.Y < a.Y+a.Height
}
