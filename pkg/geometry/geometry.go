// Package geometry holds the stateless math used by the editor: hit-testing
// against circular targets and converting pointer positions into headings.
package geometry

import "math"

// DefaultHitRadius is the pointer tolerance, in canvas units, around a dot center.
const DefaultHitRadius = 10.0

// FullTurn is the number of degrees in a complete heading cycle.
const FullTurn = 360

// Point is a position in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Sub returns the vector p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between p and q.
func Distance(p, q Point) float64 {
	d := p.Sub(q)
	return math.Hypot(d.X, d.Y)
}

// Hits reports whether p lies inside the circle of the given radius around center.
// The boundary counts as a hit. A negative radius never hits.
func Hits(p, center Point, radius float64) bool {
	if radius < 0 {
		return false
	}
	d := p.Sub(center)
	return d.X*d.X+d.Y*d.Y <= radius*radius
}

// AngleDegrees returns the raw angle, in degrees within (-180, 180], of the
// vector pointing from origin to target. Canvas space has Y growing downwards,
// so 90 points down.
func AngleDegrees(origin, target Point) float64 {
	d := target.Sub(origin)
	return math.Atan2(d.Y, d.X) * 180 / math.Pi
}

// NormalizeDegrees maps any real angle onto an integer heading in [0, 359].
// Non-finite input yields 0.
func NormalizeDegrees(angle float64) int {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	a := math.Mod(math.Mod(angle, FullTurn)+FullTurn, FullTurn)
	return WrapDegrees(int(math.Round(a)))
}

// WrapDegrees folds an integer heading into [0, 359] (360 -> 0, -10 -> 350).
func WrapDegrees(deg int) int {
	return ((deg % FullTurn) + FullTurn) % FullTurn
}

// Heading returns the normalized heading from origin towards target.
// A target equal to origin yields 0.
func Heading(origin, target Point) int {
	return NormalizeDegrees(AngleDegrees(origin, target))
}

// Project returns the point at the given distance from origin along heading deg.
// Renderers use it to draw the direction tick of a dot.
func Project(origin Point, deg int, length float64) Point {
	rad := float64(WrapDegrees(deg)) * math.Pi / 180
	return Point{
		X: origin.X + math.Cos(rad)*length,
		Y: origin.Y + math.Sin(rad)*length,
	}
}
