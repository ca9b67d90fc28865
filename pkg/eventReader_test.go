package shower

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent(id uint32) *RawEvent {
	event := NewRawEvent(1234, id)
	event.Timestamp = 1_100_000_000 + id
	event.AddHit(Hit{Crate: 1, Slot: 4, Channel: 5, Value: 42})
	event.AddHit(Hit{Crate: 1, Slot: 3, Channel: 0, Value: -7})
	event.AddHit(Hit{Crate: 1, Slot: 3, Channel: 0, Value: 9})
	event.AddHit(Hit{Crate: 1, Slot: 3, Channel: 1, Value: int32(id)})
	event.Tracks = []Track{{X: 0.1, Y: -0.2, Theta: 0.01, Phi: -0.02}}
	return event
}

func writeEvents(t *testing.T, events []*RawEvent, types []EventTypeType) []byte {
	t.Helper()
	var buf bytes.Buffer
	for i, event := range events {
		eventType := PHYSICS_EVENT
		if types != nil {
			eventType = types[i]
		}
		require.NoError(t, WriteEvent(&buf, eventType, event))
	}
	return buf.Bytes()
}

func TestWriteReadEvent(t *testing.T) {
	event := sampleEvent(3)
	data := writeEvents(t, []*RawEvent{event}, nil)
	assert.Len(t, data, headerSize+4*hitSize+trackSize)

	header, payload, err := ReadEventFromFile(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, EVENT_MAGIC_NUMBER, header.EventMagic)
	assert.Equal(t, uint32(len(data)), header.EventSize)
	assert.Equal(t, uint32(4), header.NHits)

	read, err := ParseEvent(header, payload)
	require.NoError(t, err)
	assert.Equal(t, event.RunNumber, read.RunNumber)
	assert.Equal(t, event.EventID, read.EventID)
	assert.Equal(t, event.Timestamp, read.Timestamp)
	assert.Equal(t, 4, read.NHits())
	if diff := cmp.Diff(event.Hits(), read.Hits()); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(event.Tracks, read.Tracks); diff != "" {
		t.Errorf("tracks mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []ChannelData{
		{Channel: 0, Values: []int32{-7, 9}},
		{Channel: 1, Values: []int32{3}},
	}, read.SlotData(1, 3))
}

func TestHitsOrder(t *testing.T) {
	hits := sampleEvent(1).Hits()
	require.Len(t, hits, 4)
	assert.Equal(t, Hit{Crate: 1, Slot: 3, Channel: 0, Value: -7}, hits[0])
	assert.Equal(t, Hit{Crate: 1, Slot: 4, Channel: 5, Value: 42}, hits[3])
}

func TestReadEventErrors(t *testing.T) {
	data := writeEvents(t, []*RawEvent{sampleEvent(1)}, nil)

	_, _, err := ReadEventFromFile(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)

	_, _, err = ReadEventFromFile(bytes.NewReader(data[:headerSize-4]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, _, err = ReadEventFromFile(bytes.NewReader(data[:len(data)-1]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	bad := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(bad[4:], 0xdeadbeef)
	_, _, err = ReadEventFromFile(bytes.NewReader(bad))
	assert.ErrorContains(t, err, "magic")

	bad = append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(bad[0:], uint32(len(data)+8))
	_, _, err = ReadEventFromFile(bytes.NewReader(bad))
	assert.ErrorContains(t, err, "does not match")

	header, payload, err := ReadEventFromFile(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = ParseEvent(header, payload[:len(payload)-2])
	assert.Error(t, err)
}

func readAll(t *testing.T, reader *EventReader) []uint32 {
	t.Helper()
	var ids []uint32
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return ids
		}
		require.NoError(t, err)
		ids = append(ids, event.EventID)
	}
}

func TestEventReaderSkipAndMax(t *testing.T) {
	events := []*RawEvent{sampleEvent(0), sampleEvent(1), sampleEvent(2), sampleEvent(3), sampleEvent(4), sampleEvent(5)}
	types := []EventTypeType{START_OF_RUN, PHYSICS_EVENT, PHYSICS_EVENT, CALIBRATION_EVENT, PHYSICS_EVENT, PHYSICS_EVENT}
	data := writeEvents(t, events, types)

	tests := []struct {
		name      string
		skip, max int
		want      []uint32
	}{
		{"all", 0, 100, []uint32{1, 2, 4, 5}},
		{"skip", 2, 100, []uint32{4, 5}},
		{"max", 0, 2, []uint32{1, 2}},
		{"skip and max", 1, 3, []uint32{2, 4}},
		{"skip everything", 10, 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewEventReader(bytes.NewReader(data), tt.skip, tt.max)
			assert.Equal(t, tt.want, readAll(t, reader))
		})
	}
}

func TestCountEvents(t *testing.T) {
	events := []*RawEvent{sampleEvent(7), sampleEvent(8), sampleEvent(9)}
	data := writeEvents(t, events, []EventTypeType{SYNC_EVENT, PHYSICS_EVENT, PHYSICS_EVENT})
	file := bytes.NewReader(data)

	info, err := CountEvents(file)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Events)
	assert.Equal(t, 1234, info.RunNumber)
	assert.Equal(t, time.Unix(1_100_000_008, 0).UTC(), info.Start)

	// The file is rewound.
	assert.Equal(t, []uint32{8, 9}, readAll(t, NewEventReader(file, 0, 100)))
}

func TestCountEventsCorrupted(t *testing.T) {
	data := writeEvents(t, []*RawEvent{sampleEvent(1)}, nil)
	_, err := CountEvents(bytes.NewReader(data[:len(data)-3]))
	assert.Error(t, err)
}
