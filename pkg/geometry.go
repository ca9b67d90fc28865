package shower

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Plane is the detector plane in the transport coordinate system.
type Plane struct {
	Origin Vec3
	XAx    Vec3
	YAx    Vec3
	ZAx    Vec3
	// Half sizes in x and y, full depth in z.
	Size [3]float64
}

// NewPlane builds detector axes tilted by angle (radians) around the y axis.
func NewPlane(origin Vec3, size [3]float64, angle float64) Plane {
	xax := Vec3{math.Cos(angle), 0, math.Sin(angle)}
	yax := Vec3{0, 1, 0}
	return Plane{
		Origin: origin,
		XAx:    xax,
		YAx:    yax,
		ZAx:    xax.Cross(yax),
		Size:   [3]float64{size[0] / 2, size[1] / 2, size[2]},
	}
}

// InActiveArea reports whether detector-plane coordinates, measured from the
// plane origin, fall within the detector's extent.
func (p Plane) InActiveArea(x, y float64) bool {
	return math.Abs(x) <= p.Size[0] && math.Abs(y) <= p.Size[1]
}

const degToRad = math.Pi / 180.0

// blockPositions computes the center of every block. Blocks are numbered
// down the rows of a column first: k = nrows*column + row.
func blockPositions(nrows, ncols int, x0, y0, dx, dy float64) ([]float64, []float64) {
	xs := make([]float64, nrows*ncols)
	ys := make([]float64, nrows*ncols)
	for c := 0; c < ncols; c++ {
		for r := 0; r < nrows; r++ {
			k := nrows*c + r
			xs[k] = x0 + float64(r)*dx
			ys[k] = y0 + float64(c)*dy
		}
	}
	return xs, ys
}
