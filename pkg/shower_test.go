package shower

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowerInit(t *testing.T) {
	s := initShower(t, "sh", gridDescriptor(3, 4))

	assert.True(t, s.IsOK())
	assert.Equal(t, 12, s.NElem())
	assert.Equal(t, 3, s.NRows())
	assert.Equal(t, 4, s.NCols())
	assert.Equal(t, 9, s.ClusterCap())
	assert.Equal(t, 1, s.DetMap().Size())
	assert.Equal(t, 12, s.DetMap().NChannels())

	// k = nrows*col + row
	r, c := s.RowCol(7)
	assert.Equal(t, 1, r)
	assert.Equal(t, 2, c)
	x, y := s.BlockPosition(7)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 2.0, y)
}

func TestClusterCap(t *testing.T) {
	tests := []struct {
		nrows, ncols, want int
	}{
		{1, 1, 1},
		{1, 5, 3},
		{2, 2, 4},
		{2, 7, 6},
		{3, 4, 9},
		{10, 10, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gridDescriptor(tt.nrows, tt.ncols).ClusterCap(), "%dx%d", tt.nrows, tt.ncols)
	}
}

func TestShowerInitErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Descriptor)
	}{
		{"no descriptor", nil},
		{"no rows", func(d *Descriptor) { d.NRows = 0 }},
		{"missing pedestals", func(d *Descriptor) { d.Pedestals = d.Pedestals[:3] }},
		{"missing gains", func(d *Descriptor) { d.Gains = nil }},
		{"negative emin", func(d *Descriptor) { d.EMin = -1 }},
		{"no modules", func(d *Descriptor) {
			d.Modules = nil
			d.ChanMap = nil
		}},
		{"short channel map", func(d *Descriptor) { d.ChanMap[0] = d.ChanMap[0][:2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var desc *Descriptor
			if tt.modify != nil {
				desc = gridDescriptor(2, 2)
				tt.modify(desc)
			}
			s := NewShower("sh")
			err := s.Init(desc)
			var configErr *ConfigError
			require.True(t, errors.As(err, &configErr), "got %v", err)
			assert.Equal(t, "sh", configErr.Detector)
			assert.False(t, s.IsOK())
		})
	}
}

func TestShowerInitTooManyBlocks(t *testing.T) {
	withConfiguration(t, func(c *Configuration) { c.MaxChannels = 8 })

	s := NewShower("sh")
	assert.Error(t, s.Init(gridDescriptor(3, 3)))
	assert.NoError(t, s.Init(gridDescriptor(2, 4)))
}

func TestShowerReinit(t *testing.T) {
	s := initShower(t, "sh", gridDescriptor(2, 2))

	// Same size: new calibration replaces the old one.
	desc := gridDescriptor(2, 2)
	desc.Pedestals = []float64{1, 2, 3, 4}
	require.NoError(t, s.Init(desc))
	assert.Equal(t, 3.0, s.Pedestal(2))

	// Different size: refused, tables kept, events refused.
	err := s.Init(gridDescriptor(3, 3))
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.False(t, s.IsOK())
	assert.Equal(t, 4, s.NElem())
	assert.Equal(t, 3.0, s.Pedestal(2))

	_, err = s.Decode(blockEvent(map[int]int32{0: 10}))
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.CoarseProcess(nil), ErrNotInitialized)
	assert.ErrorIs(t, s.FineProcess(nil), ErrNotInitialized)

	// A valid Init brings it back.
	require.NoError(t, s.Init(gridDescriptor(2, 2)))
	assert.True(t, s.IsOK())
	n, err := s.Decode(blockEvent(map[int]int32{0: 10}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestShowerReinitGeometry(t *testing.T) {
	desc := gridDescriptor(3, 4)
	desc.BlockX, desc.BlockY = -7.5, 4
	desc.DX, desc.DY = 1.5, 3
	s := initShower(t, "sh", desc)

	var before [][2]float64
	for k := 0; k < s.NElem(); k++ {
		x, y := s.BlockPosition(k)
		before = append(before, [2]float64{x, y})
	}
	plane := s.Plane()

	require.NoError(t, s.Init(desc))
	assert.Equal(t, 12, s.NElem())
	assert.Equal(t, 9, s.ClusterCap())
	assert.Equal(t, plane, s.Plane())
	for k := 0; k < s.NElem(); k++ {
		x, y := s.BlockPosition(k)
		assert.Equal(t, before[k], [2]float64{x, y}, "block %d", k)
	}
}

func TestShowerNotInitialized(t *testing.T) {
	s := NewShower("sh")
	_, err := s.Decode(blockEvent(nil))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRecordIsACopy(t *testing.T) {
	s := initShower(t, "sh", gridDescriptor(2, 2))
	_, err := s.Decode(blockEvent(map[int]int32{0: 10, 1: 3}))
	require.NoError(t, err)
	require.NoError(t, s.CoarseProcess([]Track{{}}))

	record := s.Record()
	record.A[0] = -1
	record.Cluster.Blocks[0] = 99
	record.Tracks[0].X = -1

	again := s.Record()
	assert.Equal(t, 10.0, again.A[0])
	assert.Equal(t, 0, again.Cluster.Blocks[0])
	assert.Equal(t, 0.0, again.Tracks[0].X)
	assert.Equal(t, "sh", again.Detector)
}
