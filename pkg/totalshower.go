package shower

import (
	"fmt"
	"math"
)

// TotalShower combines a shower and a preshower and computes the total
// energy of their main clusters.
type TotalShower struct {
	Shower    *Shower
	PreShower *Shower
	// Maximum distance between the two cluster centers for a coincidence.
	MaxDx float64
	MaxDy float64

	e  float64
	id int
}

func NewTotalShower(shower, preshower *Shower, maxDx, maxDy float64) (*TotalShower, error) {
	if shower == nil || preshower == nil {
		return nil, &ConfigError{Reason: "total shower needs a shower and a preshower"}
	}
	if shower == preshower {
		return nil, &ConfigError{Detector: shower.Name, Reason: "shower and preshower are the same detector"}
	}
	return &TotalShower{Shower: shower, PreShower: preshower, MaxDx: maxDx, MaxDy: maxDy}, nil
}

func (t *TotalShower) IsOK() bool {
	return t.Shower.IsOK() && t.PreShower.IsOK()
}

func (t *TotalShower) ClearEvent() {
	t.e = 0
	t.id = TotalNoCluster
}

// Decode decodes the preshower and then the shower and returns the number of
// shower hits.
func (t *TotalShower) Decode(evdata EventData) (int, error) {
	if !t.IsOK() {
		return 0, ErrNotInitialized
	}
	t.ClearEvent()
	if _, err := t.PreShower.Decode(evdata); err != nil {
		return 0, fmt.Errorf("preshower %s: %w", t.PreShower.Name, err)
	}
	return t.Shower.Decode(evdata)
}

// CoarseProcess reconstructs both clusters and computes the coincidence id:
// TotalMatched when the centers are closer than MaxDx and MaxDy,
// TotalUnmatched when they are not, TotalNoCluster when either detector had
// no hits.
func (t *TotalShower) CoarseProcess(tracks []Track) error {
	if !t.IsOK() {
		return ErrNotInitialized
	}
	if err := t.PreShower.CoarseProcess(tracks); err != nil {
		return err
	}
	if err := t.Shower.CoarseProcess(tracks); err != nil {
		return err
	}

	if t.Shower.NHits() == 0 || t.PreShower.NHits() == 0 {
		t.e = 0
		t.id = TotalNoCluster
		return nil
	}
	t.e = t.Shower.E() + t.PreShower.E()
	dx := t.PreShower.X() - t.Shower.X()
	dy := t.PreShower.Y() - t.Shower.Y()
	if math.Abs(dx) < t.MaxDx && math.Abs(dy) < t.MaxDy {
		t.id = TotalMatched
	} else {
		t.id = TotalUnmatched
	}
	return nil
}

func (t *TotalShower) FineProcess(tracks []Track) error {
	if !t.IsOK() {
		return ErrNotInitialized
	}
	if err := t.PreShower.FineProcess(tracks); err != nil {
		return err
	}
	return t.Shower.FineProcess(tracks)
}

func (t *TotalShower) Record() TotalRecord {
	return TotalRecord{E: t.e, ID: t.id}
}
