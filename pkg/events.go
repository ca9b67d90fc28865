package shower

import "sort"

// Hit is one raw sample reported by a digitizer.
type Hit struct {
	Crate   int
	Slot    int
	Channel int
	Value   int32
}

type SlotKey struct {
	Crate int
	Slot  int
}

// ChannelData is every value a channel reported in one event, in readout
// order.
type ChannelData struct {
	Channel int
	Values  []int32
}

type RawEvent struct {
	RunNumber uint32
	EventID   uint32
	Timestamp uint32
	Tracks    []Track
	slots     map[SlotKey][]ChannelData
	nhits     int
}

func NewRawEvent(runNumber, eventID uint32) *RawEvent {
	return &RawEvent{
		RunNumber: runNumber,
		EventID:   eventID,
		slots:     make(map[SlotKey][]ChannelData),
	}
}

func (e *RawEvent) AddHit(h Hit) {
	if e.slots == nil {
		e.slots = make(map[SlotKey][]ChannelData)
	}
	key := SlotKey{Crate: h.Crate, Slot: h.Slot}
	channels := e.slots[key]
	for i := range channels {
		if channels[i].Channel == h.Channel {
			channels[i].Values = append(channels[i].Values, h.Value)
			e.nhits++
			return
		}
	}
	e.slots[key] = append(channels, ChannelData{Channel: h.Channel, Values: []int32{h.Value}})
	e.nhits++
}

// SlotData returns the channels with data in a crate/slot. The slice belongs
// to the event.
func (e *RawEvent) SlotData(crate, slot int) []ChannelData {
	return e.slots[SlotKey{Crate: crate, Slot: slot}]
}

func (e *RawEvent) NHits() int {
	return e.nhits
}

// Hits flattens the event ordered by crate and slot. Channels keep their
// readout order.
func (e *RawEvent) Hits() []Hit {
	keys := make([]SlotKey, 0, len(e.slots))
	for key := range e.slots {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Crate != keys[j].Crate {
			return keys[i].Crate < keys[j].Crate
		}
		return keys[i].Slot < keys[j].Slot
	})

	hits := make([]Hit, 0, e.nhits)
	for _, key := range keys {
		for _, ch := range e.slots[key] {
			for _, v := range ch.Values {
				hits = append(hits, Hit{Crate: key.Crate, Slot: key.Slot, Channel: ch.Channel, Value: v})
			}
		}
	}
	return hits
}

type Cluster struct {
	NClust int
	E      float64
	X      float64
	Y      float64
	Mult   int
	// Member blocks and energies, seed first. Sized to the cluster cap.
	Blocks   []int
	Energies []float64
}

// Record is the per-event output of one detector.
type Record struct {
	Detector string
	NHits    int
	A        []float64
	AP       []float64
	AC       []float64
	ASumP    float64
	ASumC    float64
	Cluster  Cluster
	Tracks   []TrackProjection
}

type TotalRecord struct {
	E  float64
	ID int
}

// Total shower coincidence ids.
const (
	TotalNoCluster = -1
	TotalUnmatched = 0
	TotalMatched   = 1
)

type EventRecord struct {
	RunNumber uint32
	EventID   uint32
	Timestamp uint32
	Detectors []Record
	Total     *TotalRecord
	Error     bool
}
