package shower

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// CoarseProcess reconstructs the main cluster, the one around the block with
// the largest energy, and projects the tracks onto the detector plane.
//
// A block seeds a cluster only if its energy is strictly above EMin. The
// cluster takes every other block with positive energy that sits at most one
// row and one column away from the seed. Energies are in the units of the
// gains, positions in the units of the block coordinates.
func (s *Shower) CoarseProcess(tracks []Track) error {
	if !s.ok {
		return ErrNotInitialized
	}
	s.findCluster()
	s.calcTrackProj(tracks)
	return nil
}

// FineProcess redoes the track matching, since tracks might have been thrown
// out after coarse processing.
func (s *Shower) FineProcess(tracks []Track) error {
	if !s.ok {
		return ErrNotInitialized
	}
	s.calcTrackProj(tracks)
	return nil
}

func (s *Shower) findCluster() {
	s.nclust = 0
	s.e = 0
	s.x = 0
	s.y = 0
	s.mult = 0
	zero(s.nblk)
	zero(s.eblk)

	nmax := -1
	emax := s.emin
	for i := 0; i < s.nelem; i++ {
		if ei := s.aC[i]; ei > emax {
			nmax = i
			emax = ei
		}
	}
	if nmax < 0 {
		return
	}

	nr, nc := s.RowCol(nmax)
	xs := make([]float64, 0, s.nclublk)
	ys := make([]float64, 0, s.nclublk)
	es := make([]float64, 0, s.nclublk)
	add := func(k int, ek float64) {
		s.nblk[s.mult] = k
		s.eblk[s.mult] = ek
		s.mult++
		xs = append(xs, s.blockX[k])
		ys = append(ys, s.blockY[k])
		es = append(es, ek)
	}

	add(nmax, emax)
	etot := emax
	skipped := 0
	for i := 0; i < s.nelem; i++ {
		ei := s.aC[i]
		if ei <= 0 || i == nmax {
			continue
		}
		ir, ic := s.RowCol(i)
		dr := nr - ir
		dc := nc - ic
		if -2 < dr && dr < 2 && -2 < dc && dc < 2 {
			if s.mult == s.nclublk {
				skipped++
				continue
			}
			add(i, ei)
			etot += ei
		}
	}
	if skipped > 0 {
		message := fmt.Sprintf("%s: %d cluster blocks beyond the cap of %d ignored",
			s.Name, skipped, s.nclublk)
		logger.Error(message)
	}

	s.nclust = 1
	s.e = etot
	s.x = stat.Mean(xs, es)
	s.y = stat.Mean(ys, es)

	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("%s: cluster seed %d, E=%g, x=%g, y=%g, mult=%d",
			s.Name, nmax, s.e, s.x, s.y, s.mult)
		logger.Info(message, "cluster")
	}
}

func (s *Shower) calcTrackProj(tracks []Track) {
	s.trackProj = append(s.trackProj[:0], s.projector.Project(s.plane, tracks)...)
}
