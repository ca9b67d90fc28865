package shower

import (
	"fmt"
	"strings"
)

// EventData gives access to the raw data of one event, per crate and slot.
type EventData interface {
	SlotData(crate, slot int) []ChannelData
}

// Decode fills the per-block amplitudes for one event and returns the number
// of accepted hits. Shower blocks are single-hit: only the first value of a
// channel is used.
//
//	A[k]  - raw ADC value
//	AP[k] - ADC minus pedestal
//	AC[k] - AP[k] times gain
//
// ASumP and ASumC only sum strictly positive values.
func (s *Shower) Decode(evdata EventData) (int, error) {
	if !s.ok {
		return 0, ErrNotInitialized
	}
	s.ClearEvent()
	s.copyEvent(evdata)

	for _, smp := range s.work {
		module := &s.detMap.Modules[smp.module]
		if !module.Contains(smp.channel) {
			continue
		}
		k := module.Block(smp.channel)
		if k < 0 || k >= s.nelem {
			if configuration.Verbosity > 1 {
				mismatch := &ChannelMapMismatch{
					Detector: s.Name,
					Crate:    module.Crate,
					Slot:     module.Slot,
					Channel:  smp.channel,
					Index:    k,
				}
				logger.Error(mismatch.Error())
			}
			continue
		}
		s.a[k] = float64(smp.value)
		s.aP[k] = s.a[k] - s.ped[k]
		s.aC[k] = s.aP[k] * s.gain[k]
		if s.aP[k] > 0 {
			s.asumP += s.aP[k]
		}
		if s.aC[k] > 0 {
			s.asumC += s.aC[k]
		}
		s.nhits++
	}

	if configuration.Verbosity > 3 {
		logger.Info(s.blockTable(), "decode")
	}
	return s.nhits, nil
}

// copyEvent copies this detector's samples into the working area, so that
// decoding never reads from the event source again. Samples beyond
// MaxEventLength are dropped.
func (s *Shower) copyEvent(evdata EventData) {
	s.work = s.work[:0]
	dropped := 0
	for i := range s.detMap.Modules {
		module := &s.detMap.Modules[i]
		for _, ch := range evdata.SlotData(module.Crate, module.Slot) {
			if len(ch.Values) == 0 {
				continue
			}
			if len(s.work) == cap(s.work) {
				dropped++
				continue
			}
			s.work = append(s.work, sample{module: i, channel: ch.Channel, value: ch.Values[0]})
		}
	}
	if dropped > 0 {
		message := fmt.Sprintf("%s: event longer than %d samples, %d samples dropped",
			s.Name, cap(s.work), dropped)
		logger.Error(message)
	}
}

func (s *Shower) blockTable() string {
	const ncol = 3
	var b strings.Builder
	fmt.Fprintf(&b, "Shower detector %s:\n", s.Name)
	for i := 0; i < ncol; i++ {
		b.WriteString("  Block  ADC  ADC_p  ")
	}
	b.WriteString("\n")
	for i := 0; i < (s.nelem+ncol-1)/ncol; i++ {
		for c := 0; c < ncol; c++ {
			ind := c*s.nelem/ncol + i
			if ind >= s.nelem {
				break
			}
			fmt.Fprintf(&b, "  %3d  %5.0f  %5.0f  ", ind+1, s.a[ind], s.aP[ind])
		}
		b.WriteString("\n")
	}
	return b.String()
}
