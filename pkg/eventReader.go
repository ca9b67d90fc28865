package shower

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

func ValidEvent(header EventHeaderStruct) bool {
	return header.EventType == PHYSICS_EVENT
}

// ReadEventFromFile reads the next event header and its payload.
func ReadEventFromFile(r io.Reader) (EventHeaderStruct, []byte, error) {
	var header EventHeaderStruct
	headerBinary := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBinary); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return header, nil, fmt.Errorf("truncated event header: %w", err)
		}
		return header, nil, err
	}
	binary.Read(bytes.NewReader(headerBinary), binary.LittleEndian, &header)
	if header.EventMagic != EVENT_MAGIC_NUMBER {
		return header, nil, fmt.Errorf("bad event magic 0x%08x", uint32(header.EventMagic))
	}
	if int(header.EventSize) != headerSize+header.payloadSize() {
		return header, nil, fmt.Errorf("event %d: size %d does not match %d hits and %d tracks",
			header.EventId, header.EventSize, header.NHits, header.NTracks)
	}

	eventData := make([]byte, header.payloadSize())
	if _, err := io.ReadFull(r, eventData); err != nil {
		return header, nil, fmt.Errorf("event %d: truncated payload: %w", header.EventId, err)
	}
	return header, eventData, nil
}

// ParseEvent turns an event payload into a RawEvent.
func ParseEvent(header EventHeaderStruct, eventData []byte) (*RawEvent, error) {
	if len(eventData) != header.payloadSize() {
		return nil, fmt.Errorf("event %d: payload has %d bytes, expected %d",
			header.EventId, len(eventData), header.payloadSize())
	}
	event := NewRawEvent(header.EventRunNb, header.EventId)
	event.Timestamp = header.EventTime

	reader := bytes.NewReader(eventData)
	hits := make([]HitStruct, header.NHits)
	if err := binary.Read(reader, binary.LittleEndian, hits); err != nil {
		return nil, fmt.Errorf("event %d: error reading hits: %w", header.EventId, err)
	}
	for _, h := range hits {
		event.AddHit(Hit{Crate: int(h.Crate), Slot: int(h.Slot), Channel: int(h.Channel), Value: h.Data})
	}

	tracks := make([]TrackStruct, header.NTracks)
	if err := binary.Read(reader, binary.LittleEndian, tracks); err != nil {
		return nil, fmt.Errorf("event %d: error reading tracks: %w", header.EventId, err)
	}
	event.Tracks = make([]Track, len(tracks))
	for i, t := range tracks {
		event.Tracks[i] = Track{X: t.X, Y: t.Y, Theta: t.Theta, Phi: t.Phi}
	}
	return event, nil
}

// WriteEvent writes one event in the raw file format.
func WriteEvent(w io.Writer, eventType EventTypeType, event *RawEvent) error {
	hits := event.Hits()
	header := EventHeaderStruct{
		EventMagic: EVENT_MAGIC_NUMBER,
		EventType:  eventType,
		EventRunNb: event.RunNumber,
		EventId:    event.EventID,
		EventTime:  event.Timestamp,
		NHits:      uint32(len(hits)),
		NTracks:    uint32(len(event.Tracks)),
	}
	header.EventSize = uint32(headerSize + header.payloadSize())

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, header)
	for _, h := range hits {
		binary.Write(&buf, binary.LittleEndian, HitStruct{
			Crate:   uint16(h.Crate),
			Slot:    uint16(h.Slot),
			Channel: uint16(h.Channel),
			Data:    h.Value,
		})
	}
	for _, t := range event.Tracks {
		binary.Write(&buf, binary.LittleEndian, TrackStruct{X: t.X, Y: t.Y, Theta: t.Theta, Phi: t.Phi})
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Source hands out events one at a time. Next returns io.EOF at the end.
type Source interface {
	Next() (*RawEvent, error)
}

// EventReader reads physics events from a raw file, skipping the first Skip
// and stopping after MaxEvents.
type EventReader struct {
	r         io.Reader
	Skip      int
	MaxEvents int
	EvtCount  int
}

func NewEventReader(r io.Reader, skip, maxEvents int) *EventReader {
	return &EventReader{r: r, Skip: skip, MaxEvents: maxEvents, EvtCount: -1}
}

func (f *EventReader) Next() (*RawEvent, error) {
	for {
		header, eventData, err := ReadEventFromFile(f.r)
		if err != nil {
			return nil, err
		}
		if !ValidEvent(header) {
			if configuration.Verbosity > 1 {
				message := fmt.Sprintf("Skipping %v event %d", header.EventType, header.EventId)
				logger.Info(message, "eventReader")
			}
			continue
		}
		f.EvtCount++
		if f.EvtCount >= f.MaxEvents {
			if configuration.Verbosity > 0 {
				logger.Info("Max events reached", "eventReader")
			}
			return nil, io.EOF
		}
		if f.EvtCount < f.Skip {
			if configuration.Verbosity > 0 {
				message := fmt.Sprintf("Skipping event %d with ID %d", f.EvtCount, header.EventId)
				logger.Info(message, "eventReader")
			}
			continue
		}
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Reading event %d with ID %d", f.EvtCount, header.EventId)
			logger.Info(message, "eventReader")
		}
		return ParseEvent(header, eventData)
	}
}

// RunInfo summarizes a raw file.
type RunInfo struct {
	Events    int
	RunNumber int
	// Time of the first physics event
	Start time.Time
}

// CountEvents scans a raw file for physics events and rewinds it.
func CountEvents(file io.ReadSeeker) (RunInfo, error) {
	var info RunInfo
	for {
		header, _, err := ReadEventFromFile(file)
		if err != nil {
			if err == io.EOF {
				break
			}
			return info, fmt.Errorf("error reading header counting events: %w", err)
		}
		if !ValidEvent(header) {
			continue
		}
		if info.Events == 0 {
			info.RunNumber = int(header.EventRunNb)
			info.Start = time.Unix(int64(header.EventTime), 0).UTC()
		}
		info.Events++
	}
	// Go back to the beginning of the file
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return info, err
	}
	return info, nil
}
