package shower

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testCrate = 1
	testSlot  = 2
)

// gridDescriptor describes an nrows x ncols detector read out by one module
// in testCrate/testSlot, with channel i mapped to block i+1. Blocks sit on a
// unit grid starting at the origin, pedestals are 0 and gains 1.
func gridDescriptor(nrows, ncols int) *Descriptor {
	return moduleDescriptor(nrows, ncols, testCrate, testSlot)
}

func moduleDescriptor(nrows, ncols, crate, slot int) *Descriptor {
	n := nrows * ncols
	chanMap := make([]int, n)
	peds := make([]float64, n)
	gains := make([]float64, n)
	for i := range chanMap {
		chanMap[i] = i + 1
		gains[i] = 1
	}
	return &Descriptor{
		NCols:     ncols,
		NRows:     nrows,
		Modules:   []ModuleSpec{{Crate: crate, Slot: slot, First: 0, Last: n - 1}},
		ChanMap:   [][]int{chanMap},
		Origin:    Vec3{0, 0, 100},
		Size:      [3]float64{40, 40, 30},
		DX:        1,
		DY:        1,
		Pedestals: peds,
		Gains:     gains,
	}
}

func initShower(t *testing.T, name string, desc *Descriptor) *Shower {
	t.Helper()
	s := NewShower(name)
	require.NoError(t, s.Init(desc))
	return s
}

// blockEvent builds an event with one hit per entry, channel -> value, in
// testCrate/testSlot.
func blockEvent(values map[int]int32) *RawEvent {
	return slotEvent(testCrate, testSlot, values)
}

func slotEvent(crate, slot int, values map[int]int32) *RawEvent {
	event := NewRawEvent(1, 1)
	addHits(event, crate, slot, values)
	return event
}

func addHits(event *RawEvent, crate, slot int, values map[int]int32) {
	for ch, v := range values {
		event.AddHit(Hit{Crate: crate, Slot: slot, Channel: ch, Value: v})
	}
}

func withConfiguration(t *testing.T, modify func(*Configuration)) {
	t.Helper()
	old := GetConfiguration()
	config := DefaultConfiguration()
	modify(&config)
	SetConfiguration(config)
	t.Cleanup(func() { SetConfiguration(old) })
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(message string, module string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf("[%s] %s", module, message))
}

func (l *recordingLogger) Error(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, message)
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func withLogger(t *testing.T) *recordingLogger {
	t.Helper()
	l := &recordingLogger{}
	SetLogger(l)
	t.Cleanup(func() { SetLogger(nil) })
	return l
}
