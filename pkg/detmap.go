package shower

import "fmt"

// ModuleSpec is one digitizer module as read from the calibration source.
type ModuleSpec struct {
	Crate int `db:"Crate"`
	Slot  int `db:"Slot"`
	First int `db:"FirstChannel"`
	Last  int `db:"LastChannel"`
}

func (m ModuleSpec) NChan() int {
	return m.Last - m.First + 1
}

// Module holds the hardware address of a digitizer and the logical block
// (1-based, 0 for unmapped) of each of its channels in [Lo, Hi].
type Module struct {
	Crate  int
	Slot   int
	Lo     int
	Hi     int
	Blocks []int
}

func (m *Module) Contains(channel int) bool {
	return channel >= m.Lo && channel <= m.Hi
}

// Block returns the logical index for a channel of this module, -1 when the
// channel is unmapped.
func (m *Module) Block(channel int) int {
	return m.Blocks[channel-m.Lo] - 1
}

type DetMap struct {
	Modules []Module
}

func (d *DetMap) Size() int {
	return len(d.Modules)
}

func (d *DetMap) NChannels() int {
	n := 0
	for _, m := range d.Modules {
		n += len(m.Blocks)
	}
	return n
}

func newDetMap(specs []ModuleSpec, chanMap [][]int) (DetMap, error) {
	if len(specs) == 0 {
		return DetMap{}, fmt.Errorf("no modules defined in detector map")
	}
	if len(chanMap) != len(specs) {
		return DetMap{}, fmt.Errorf("channel map has %d modules, detector map has %d",
			len(chanMap), len(specs))
	}
	detMap := DetMap{Modules: make([]Module, len(specs))}
	for i, spec := range specs {
		nchan := spec.NChan()
		if nchan <= 0 {
			return DetMap{}, fmt.Errorf("no channels defined for module %d", i)
		}
		if len(chanMap[i]) != nchan {
			return DetMap{}, fmt.Errorf("module %d has %d channels but %d channel map entries",
				i, nchan, len(chanMap[i]))
		}
		blocks := make([]int, nchan)
		copy(blocks, chanMap[i])
		detMap.Modules[i] = Module{
			Crate:  spec.Crate,
			Slot:   spec.Slot,
			Lo:     spec.First,
			Hi:     spec.Last,
			Blocks: blocks,
		}
	}
	return detMap, nil
}
