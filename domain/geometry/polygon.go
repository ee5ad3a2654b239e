package geometry

import (
	"math"

	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
)

// Point is a vertex in millimeters
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VertexCount is fixed for every profile cross-section
const VertexCount = 5

// Polygon is the closed cross-section loop; the last vertex connects back to
// the first.
type Polygon [VertexCount]Point

// BuildPolygon lays out the vertices in the fixed order
// (0,0) (A,0) (A,D) (E,B) (0,C).
func BuildPolygon(n valueobjects.NumericParameters) Polygon {
	return Polygon{
		{0, 0},
		{n.A, 0},
		{n.A, n.D},
		{n.E, n.B},
		{0, n.C},
	}
}

func (p Polygon) edge(i int) (Point, Point) {
	return p[i], p[(i+1)%VertexCount]
}

// SignedArea is the shoelace sum halved. Its sign depends on winding.
// Self-intersection is not detected.
func (p Polygon) SignedArea() float64 {
	var sum float64
	for i := range p {
		a, b := p.edge(i)
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Area is the absolute shoelace area
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// Perimeter sums the length of every edge including the closing one
func (p Polygon) Perimeter() float64 {
	var sum float64
	for i := range p {
		a, b := p.edge(i)
		sum += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return sum
}

// Centroid returns the area centroid with both coordinates made
// non-negative. A zero-area polygon reports (0,0).
func (p Polygon) Centroid() Point {
	signed := p.SignedArea()
	if signed == 0 {
		return Point{}
	}
	var cx, cy float64
	for i := range p {
		a, b := p.edge(i)
		cross := a.X*b.Y - b.X*a.Y
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}
	factor := 6 * signed
	return Point{
		X: finiteOrZero(math.Abs(cx / factor)),
		Y: finiteOrZero(math.Abs(cy / factor)),
	}
}

// Vertices returns the loop as a slice
func (p Polygon) Vertices() []Point {
	out := make([]Point, VertexCount)
	copy(out, p[:])
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
