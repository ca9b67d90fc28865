package shower

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func TestProjectNormalIncidence(t *testing.T) {
	plane := NewPlane(Vec3{0, 0, 100}, [3]float64{40, 40, 30}, 0)
	projections := StraightLineProjector{}.Project(plane, []Track{
		{X: 1, Y: 2},
		{X: 1, Y: 2, Theta: 0.1},
		{X: 30, Y: 0},
	})
	require.Len(t, projections, 3)

	p := projections[0]
	assert.True(t, p.OK)
	assert.True(t, p.Inside)
	assert.InDelta(t, 1, p.X, tolerance)
	assert.InDelta(t, 2, p.Y, tolerance)
	assert.InDelta(t, 100, p.Pathl, tolerance)

	p = projections[1]
	assert.InDelta(t, 11, p.X, tolerance)
	assert.InDelta(t, 2, p.Y, tolerance)
	assert.InDelta(t, 100*math.Sqrt(1.01), p.Pathl, tolerance)

	// Half size is 20.
	p = projections[2]
	assert.True(t, p.OK)
	assert.False(t, p.Inside)
}

func TestProjectRotatedPlane(t *testing.T) {
	plane := NewPlane(Vec3{0, 0, 100}, [3]float64{40, 40, 30}, 45*degToRad)
	projections := StraightLineProjector{}.Project(plane, []Track{{X: 0}, {X: 10}})

	assert.InDelta(t, 0, projections[0].X, tolerance)
	assert.InDelta(t, 0, projections[0].Y, tolerance)
	assert.InDelta(t, 100, projections[0].Pathl, tolerance)

	// Crosses the plane at (10, 0, 110).
	assert.InDelta(t, 10*math.Sqrt2, projections[1].X, tolerance)
	assert.InDelta(t, 0, projections[1].Y, tolerance)
	assert.InDelta(t, 110, projections[1].Pathl, tolerance)
}

func TestProjectParallelTrack(t *testing.T) {
	plane := NewPlane(Vec3{0, 0, 100}, [3]float64{40, 40, 30}, 90*degToRad)
	projections := StraightLineProjector{}.Project(plane, []Track{{X: 1}})

	p := projections[0]
	assert.False(t, p.OK)
	assert.False(t, p.Inside)
	assert.Equal(t, NoProjection, p.X)
	assert.Equal(t, NoProjection, p.Y)
	assert.Equal(t, NoProjection, p.Pathl)
}

func TestPlaneAxes(t *testing.T) {
	plane := NewPlane(Vec3{}, [3]float64{2, 4, 6}, 30*degToRad)
	assert.InDelta(t, 0, plane.XAx.Dot(plane.ZAx), tolerance)
	assert.InDelta(t, 0, plane.YAx.Dot(plane.ZAx), tolerance)
	assert.InDelta(t, 1, plane.ZAx.Dot(plane.ZAx), tolerance)
	assert.Equal(t, [3]float64{1, 2, 6}, plane.Size)
}

type countingProjector struct {
	calls int
}

func (p *countingProjector) Project(plane Plane, tracks []Track) []TrackProjection {
	p.calls++
	projections := make([]TrackProjection, len(tracks))
	for i := range tracks {
		projections[i] = TrackProjection{X: float64(i), OK: true}
	}
	return projections
}

func TestShowerTrackProjection(t *testing.T) {
	s := initShower(t, "sh", gridDescriptor(2, 2))
	tracks := []Track{{X: 1, Y: 1}, {X: -1, Y: -1}}

	_, err := s.Decode(blockEvent(map[int]int32{0: 5}))
	require.NoError(t, err)
	require.NoError(t, s.CoarseProcess(tracks))
	record := s.Record()
	require.Len(t, record.Tracks, 2)
	assert.InDelta(t, -1, record.Tracks[1].X, tolerance)
	assert.Equal(t, Track{X: 1, Y: 1}, tracks[0])

	projector := &countingProjector{}
	s.SetProjector(projector)
	require.NoError(t, s.FineProcess(tracks[:1]))
	assert.Equal(t, 1, projector.calls)
	assert.Len(t, s.Record().Tracks, 1)

	// Tracks are cleared with the event.
	_, err = s.Decode(blockEvent(nil))
	require.NoError(t, err)
	assert.Empty(t, s.Record().Tracks)
}
