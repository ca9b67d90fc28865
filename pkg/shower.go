package shower

import (
	"fmt"
)

// Shower is a segmented shower counter (shower or preshower). Only the
// cluster with the largest energy deposition is reconstructed.
type Shower struct {
	Name string

	isInit bool
	ok     bool

	nelem   int
	nrows   int
	ncols   int
	nclublk int

	detMap DetMap
	plane  Plane
	blockX []float64
	blockY []float64
	ped    []float64
	gain   []float64
	emin   float64

	projector TrackProjector

	// Per-event data
	nhits     int
	a         []float64
	aP        []float64
	aC        []float64
	asumP     float64
	asumC     float64
	nclust    int
	e         float64
	x         float64
	y         float64
	mult      int
	nblk      []int
	eblk      []float64
	trackProj []TrackProjection
	work      []sample
}

// sample is a decoded channel value copied out of the event.
type sample struct {
	module  int
	channel int
	value   int32
}

func NewShower(name string) *Shower {
	return &Shower{Name: name, projector: StraightLineProjector{}}
}

// SetProjector replaces the track projector used in Coarse and Fine
// processing.
func (s *Shower) SetProjector(p TrackProjector) {
	if p == nil {
		p = StraightLineProjector{}
	}
	s.projector = p
}

// Init builds the channel map, calibration and geometry tables from a
// descriptor. A detector that is already initialized can only be
// re-initialized with the same number of blocks and cluster cap; on that
// mismatch the old tables are kept but the detector refuses events until a
// successful Init.
func (s *Shower) Init(desc *Descriptor) error {
	err := s.init(desc)
	s.ok = err == nil
	return err
}

func (s *Shower) init(desc *Descriptor) error {
	if desc == nil {
		return s.configError("no descriptor", nil)
	}
	nelem := desc.NElem()
	nclbl := desc.ClusterCap()
	if s.isInit && (nelem != s.nelem || nclbl != s.nclublk) {
		return s.configError(fmt.Sprintf("cannot re-initialize with different number of blocks "+
			"or blocks per cluster (%d/%d, was %d/%d)", nelem, nclbl, s.nelem, s.nclublk), nil)
	}
	if desc.NRows <= 0 || desc.NCols <= 0 || nclbl <= 0 {
		return s.configError(fmt.Sprintf("illegal number of rows or columns: %d %d",
			desc.NRows, desc.NCols), nil)
	}
	if desc.EMin < 0 {
		return s.configError(fmt.Sprintf("negative emin %g", desc.EMin), nil)
	}
	if nelem > configuration.MaxChannels {
		return s.configError(fmt.Sprintf("%d blocks exceed the maximum of %d",
			nelem, configuration.MaxChannels), nil)
	}
	if len(desc.Pedestals) != nelem {
		return s.configError(fmt.Sprintf("expected %d pedestals, got %d", nelem, len(desc.Pedestals)), nil)
	}
	if len(desc.Gains) != nelem {
		return s.configError(fmt.Sprintf("expected %d gains, got %d", nelem, len(desc.Gains)), nil)
	}
	detMap, err := newDetMap(desc.Modules, desc.ChanMap)
	if err != nil {
		return s.configError("invalid detector map", err)
	}

	// Everything validated, replace the tables.
	s.nelem = nelem
	s.nrows = desc.NRows
	s.ncols = desc.NCols
	s.nclublk = nclbl
	s.detMap = detMap
	s.plane = NewPlane(desc.Origin, desc.Size, desc.Angle*degToRad)
	s.blockX, s.blockY = blockPositions(desc.NRows, desc.NCols, desc.BlockX, desc.BlockY, desc.DX, desc.DY)
	s.ped = copyOf(desc.Pedestals)
	s.gain = copyOf(desc.Gains)
	s.emin = desc.EMin

	if !s.isInit {
		s.a = make([]float64, nelem)
		s.aP = make([]float64, nelem)
		s.aC = make([]float64, nelem)
		s.nblk = make([]int, nclbl)
		s.eblk = make([]float64, nclbl)
		s.isInit = true
	}
	s.work = resizeWork(s.work, configuration.MaxEventLength)
	s.ClearEvent()

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("%s: %d blocks (%d rows x %d cols), %d modules with %d channels, emin %g",
			s.Name, nelem, s.nrows, s.ncols, detMap.Size(), detMap.NChannels(), s.emin)
		logger.Info(message, "shower")
	}
	return nil
}

func resizeWork(work []sample, n int) []sample {
	if cap(work) < n {
		return make([]sample, 0, n)
	}
	return work[:0]
}

func (s *Shower) configError(reason string, err error) error {
	return &ConfigError{Detector: s.Name, Reason: reason, Err: err}
}

func (s *Shower) IsOK() bool {
	return s.ok
}

// ClearEvent resets all per-event data.
func (s *Shower) ClearEvent() {
	s.nhits = 0
	zero(s.a)
	zero(s.aP)
	zero(s.aC)
	s.asumP = 0
	s.asumC = 0
	s.nclust = 0
	s.e = 0
	s.x = 0
	s.y = 0
	s.mult = 0
	zero(s.nblk)
	zero(s.eblk)
	s.trackProj = s.trackProj[:0]
}

func (s *Shower) NElem() int      { return s.nelem }
func (s *Shower) NRows() int      { return s.nrows }
func (s *Shower) NCols() int      { return s.ncols }
func (s *Shower) ClusterCap() int { return s.nclublk }
func (s *Shower) EMin() float64   { return s.emin }
func (s *Shower) Plane() Plane    { return s.plane }
func (s *Shower) DetMap() *DetMap { return &s.detMap }
func (s *Shower) NHits() int      { return s.nhits }
func (s *Shower) E() float64      { return s.e }
func (s *Shower) X() float64      { return s.x }
func (s *Shower) Y() float64      { return s.y }

// BlockPosition returns the center of logical block k.
func (s *Shower) BlockPosition(k int) (float64, float64) {
	return s.blockX[k], s.blockY[k]
}

// RowCol returns the row and column of logical block k.
func (s *Shower) RowCol(k int) (int, int) {
	return k % s.nrows, k / s.nrows
}

func (s *Shower) Pedestal(k int) float64 { return s.ped[k] }
func (s *Shower) Gain(k int) float64     { return s.gain[k] }

// Record returns a copy of the current event's results.
func (s *Shower) Record() Record {
	tracks := make([]TrackProjection, len(s.trackProj))
	copy(tracks, s.trackProj)
	return Record{
		Detector: s.Name,
		NHits:    s.nhits,
		A:        copyOf(s.a),
		AP:       copyOf(s.aP),
		AC:       copyOf(s.aC),
		ASumP:    s.asumP,
		ASumC:    s.asumC,
		Cluster: Cluster{
			NClust:   s.nclust,
			E:        s.e,
			X:        s.x,
			Y:        s.y,
			Mult:     s.mult,
			Blocks:   copyOf(s.nblk),
			Energies: copyOf(s.eblk),
		},
		Tracks: tracks,
	}
}
