package shower

import "math"

// Track is a reconstructed track in the transport coordinate system at z=0.
// Theta and Phi are the slopes dx/dz and dy/dz.
type Track struct {
	X     float64
	Y     float64
	Theta float64
	Phi   float64
}

// TrackProjection is where a track crosses the detector plane, in detector
// coordinates, and the path length from z=0 to the crossing. Inside is set
// when the crossing falls within the detector's extent.
type TrackProjection struct {
	X      float64
	Y      float64
	Pathl  float64
	OK     bool
	Inside bool
}

// NoProjection fills the coordinates of tracks that never reach the plane.
const NoProjection = 1e38

// TrackProjector computes track crossings with a detector plane. It must not
// modify the tracks.
type TrackProjector interface {
	Project(plane Plane, tracks []Track) []TrackProjection
}

// StraightLineProjector extrapolates tracks as straight lines.
type StraightLineProjector struct{}

func (StraightLineProjector) Project(plane Plane, tracks []Track) []TrackProjection {
	projections := make([]TrackProjection, len(tracks))
	for i, track := range tracks {
		projections[i] = projectTrack(plane, track)
	}
	return projections
}

const parallelEps = 1e-12

func projectTrack(plane Plane, track Track) TrackProjection {
	t0 := Vec3{track.X, track.Y, 0}
	norm := math.Sqrt(1 + track.Theta*track.Theta + track.Phi*track.Phi)
	dir := Vec3{track.Theta / norm, track.Phi / norm, 1 / norm}

	denom := plane.ZAx.Dot(dir)
	if math.Abs(denom) < parallelEps {
		return TrackProjection{X: NoProjection, Y: NoProjection, Pathl: NoProjection}
	}
	t := plane.ZAx.Dot(plane.Origin.Sub(t0)) / denom
	v := t0.Add(dir.Scale(t)).Sub(plane.Origin)
	x, y := v.Dot(plane.XAx), v.Dot(plane.YAx)
	return TrackProjection{
		X:      x,
		Y:      y,
		Pathl:  t,
		OK:     true,
		Inside: plane.InActiveArea(x, y),
	}
}
