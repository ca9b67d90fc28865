package shower

import "encoding/binary"

type EventMagicType uint32

const EVENT_MAGIC_NUMBER EventMagicType = 0xCA1057E5

/* ---------- Event type ---------- */
type EventTypeType uint32

const (
	START_OF_RUN EventTypeType = iota + 1
	END_OF_RUN
	PHYSICS_EVENT
	CALIBRATION_EVENT
	SYNC_EVENT
)

func (t EventTypeType) String() string {
	switch t {
	case START_OF_RUN:
		return "START_OF_RUN"
	case END_OF_RUN:
		return "END_OF_RUN"
	case PHYSICS_EVENT:
		return "PHYSICS_EVENT"
	case CALIBRATION_EVENT:
		return "CALIBRATION_EVENT"
	case SYNC_EVENT:
		return "SYNC_EVENT"
	default:
		return "UNKNOWN"
	}
}

// EventHeaderStruct starts every event in a raw file. EventSize counts the
// header, the hits and the tracks.
type EventHeaderStruct struct {
	EventSize  uint32
	EventMagic EventMagicType
	EventType  EventTypeType
	EventRunNb uint32
	EventId    uint32
	// Unix time in seconds
	EventTime uint32
	NHits     uint32
	NTracks   uint32
}

type HitStruct struct {
	Crate    uint16
	Slot     uint16
	Channel  uint16
	Reserved uint16
	Data     int32
}

type TrackStruct struct {
	X     float64
	Y     float64
	Theta float64
	Phi   float64
}

var (
	headerSize = binary.Size(EventHeaderStruct{})
	hitSize    = binary.Size(HitStruct{})
	trackSize  = binary.Size(TrackStruct{})
)

func (h EventHeaderStruct) payloadSize() int {
	return int(h.NHits)*hitSize + int(h.NTracks)*trackSize
}
