package shower

// Descriptor is the full description of a detector for one calibration
// period, as read from a text database file or from MySQL.
type Descriptor struct {
	NCols   int
	NRows   int
	Modules []ModuleSpec
	// One entry per module, one value per channel in [First, Last].
	ChanMap [][]int

	Origin Vec3
	Size   [3]float64
	// Rotation around the y axis, in degrees.
	Angle float64

	// Center of block 1 and block spacing.
	BlockX float64
	BlockY float64
	DX     float64
	DY     float64

	// Seed threshold.
	EMin float64

	Pedestals []float64
	Gains     []float64
}

func (d *Descriptor) NElem() int {
	return d.NCols * d.NRows
}

// ClusterCap is the largest number of blocks a 3x3 window can cover in this
// geometry.
func (d *Descriptor) ClusterCap() int {
	return min(3, d.NRows) * min(3, d.NCols)
}

func (d *Descriptor) NChannels() int {
	n := 0
	for _, m := range d.Modules {
		if m.NChan() > 0 {
			n += m.NChan()
		}
	}
	return n
}
