package shower

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// detectorTables holds the datasets of one detector group. They are created
// with the first event, once the number of blocks is known.
type detectorTables struct {
	Name      string
	Group     *hdf5.Group
	Summary   *hdf5.Dataset
	A         *hdf5.Dataset
	AP        *hdf5.Dataset
	AC        *hdf5.Dataset
	NBlk      *hdf5.Dataset
	EBlk      *hdf5.Dataset
	Tracks    *hdf5.Dataset
	trackRows int
}

type Writer struct {
	File       *hdf5.File
	Filename   string
	FirstEvt   bool
	RunGroup   *hdf5.Group
	EventTable *hdf5.Dataset
	TotalGroup *hdf5.Group
	TotalTable *hdf5.Dataset
	Detectors  []*detectorTables
	EvtCounter int
}

func NewWriter(filename string) (*Writer, error) {
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating file: %s", filename), "hdf5writer")
	}
	file, err := openFile(filename)
	if err != nil {
		return nil, err
	}
	writer := &Writer{File: file, Filename: filename}
	if writer.RunGroup, err = createGroup(file, "Run"); err != nil {
		file.Close()
		return nil, err
	}
	if writer.EventTable, err = createTable(writer.RunGroup, "events", EventDataHDF5{}); err != nil {
		writer.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) createDetector(record *Record) (*detectorTables, error) {
	group, err := createGroup(w.File, record.Detector)
	if err != nil {
		return nil, err
	}
	d := &detectorTables{Name: record.Detector, Group: group}
	nelem := len(record.A)
	ncap := len(record.Cluster.Blocks)

	if d.Summary, err = createTable(group, "summary", SummaryHDF5{}); err != nil {
		return d, err
	}
	if d.A, err = create2dArray(group, "a", hdf5.T_NATIVE_DOUBLE, nelem); err != nil {
		return d, err
	}
	if d.AP, err = create2dArray(group, "a_p", hdf5.T_NATIVE_DOUBLE, nelem); err != nil {
		return d, err
	}
	if d.AC, err = create2dArray(group, "a_c", hdf5.T_NATIVE_DOUBLE, nelem); err != nil {
		return d, err
	}
	if d.NBlk, err = create2dArray(group, "nblk", hdf5.T_NATIVE_INT32, ncap); err != nil {
		return d, err
	}
	if d.EBlk, err = create2dArray(group, "eblk", hdf5.T_NATIVE_DOUBLE, ncap); err != nil {
		return d, err
	}
	if d.Tracks, err = createTable(group, "tracks", TrackProjectionHDF5{}); err != nil {
		return d, err
	}
	return d, nil
}

func (w *Writer) createTables(record *EventRecord) error {
	for i := range record.Detectors {
		d, err := w.createDetector(&record.Detectors[i])
		if d != nil {
			w.Detectors = append(w.Detectors, d)
		}
		if err != nil {
			return err
		}
	}
	if record.Total != nil {
		var err error
		if w.TotalGroup, err = createGroup(w.File, "Total"); err != nil {
			return err
		}
		if w.TotalTable, err = createTable(w.TotalGroup, "total", TotalShowerHDF5{}); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent appends one event. Every event must carry the same detectors as
// the first one.
func (w *Writer) WriteEvent(record *EventRecord) error {
	if !w.FirstEvt {
		if err := w.createTables(record); err != nil {
			return err
		}
		w.FirstEvt = true
	}
	if len(record.Detectors) != len(w.Detectors) {
		return fmt.Errorf("event %d has %d detectors, file has %d",
			record.EventID, len(record.Detectors), len(w.Detectors))
	}

	evtNumber := int32(record.EventID)
	err := writeEntryToTable(w.EventTable, EventDataHDF5{
		evt_number: evtNumber,
		run_number: int32(record.RunNumber),
		timestamp:  uint64(record.Timestamp),
	}, w.EvtCounter)
	if err != nil {
		return fmt.Errorf("error writing events table: %w", err)
	}

	for i := range record.Detectors {
		if err := w.Detectors[i].write(&record.Detectors[i], evtNumber, w.EvtCounter); err != nil {
			return fmt.Errorf("error writing detector %s: %w", w.Detectors[i].Name, err)
		}
	}

	if w.TotalTable != nil && record.Total != nil {
		err := writeEntryToTable(w.TotalTable, TotalShowerHDF5{
			evt_number: evtNumber,
			e:          record.Total.E,
			id:         int32(record.Total.ID),
		}, w.EvtCounter)
		if err != nil {
			return fmt.Errorf("error writing total shower: %w", err)
		}
	}

	w.EvtCounter++
	return nil
}

func (d *detectorTables) write(record *Record, evtNumber int32, evtCounter int) error {
	if record.Detector != d.Name {
		return fmt.Errorf("unexpected detector %s", record.Detector)
	}
	c := record.Cluster
	summary := SummaryHDF5{
		evt_number: evtNumber,
		nhit:       int32(record.NHits),
		asum_p:     record.ASumP,
		asum_c:     record.ASumC,
		nclust:     int32(c.NClust),
		e:          c.E,
		x:          c.X,
		y:          c.Y,
		mult:       int32(c.Mult),
	}
	if err := writeEntryToTable(d.Summary, summary, evtCounter); err != nil {
		return err
	}
	if err := write2dArray(d.A, &record.A, evtCounter); err != nil {
		return err
	}
	if err := write2dArray(d.AP, &record.AP, evtCounter); err != nil {
		return err
	}
	if err := write2dArray(d.AC, &record.AC, evtCounter); err != nil {
		return err
	}
	nblk := make([]int32, len(c.Blocks))
	for i, k := range c.Blocks {
		nblk[i] = int32(k)
	}
	if err := write2dArray(d.NBlk, &nblk, evtCounter); err != nil {
		return err
	}
	if err := write2dArray(d.EBlk, &c.Energies, evtCounter); err != nil {
		return err
	}

	tracks := make([]TrackProjectionHDF5, 0, len(record.Tracks))
	for i, t := range record.Tracks {
		if !t.OK {
			continue
		}
		tracks = append(tracks, TrackProjectionHDF5{
			evt_number: evtNumber,
			track:      int32(i),
			x:          t.X,
			y:          t.Y,
			pathl:      t.Pathl,
			inside:     boolToInt32(t.Inside),
		})
	}
	if err := writeArrayToTable(d.Tracks, &tracks, d.trackRows); err != nil {
		return err
	}
	d.trackRows += len(tracks)
	return nil
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

type closer interface {
	Close() error
}

func closeAll(errs []error, items map[string]closer) []error {
	for name, item := range items {
		if err := item.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", name, err))
		}
	}
	return errs
}

func (w *Writer) Close() error {
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing file %s", w.Filename), "hdf5writer")
	}
	var errs []error

	for _, d := range w.Detectors {
		datasets := map[string]*hdf5.Dataset{
			"summary": d.Summary, "a": d.A, "a_p": d.AP, "a_c": d.AC,
			"nblk": d.NBlk, "eblk": d.EBlk, "tracks": d.Tracks,
		}
		items := make(map[string]closer)
		for name, dset := range datasets {
			if dset != nil {
				items[d.Name+"/"+name] = dset
			}
		}
		errs = closeAll(errs, items)
		if err := d.Group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", d.Name, err))
		}
	}
	if w.TotalTable != nil {
		if err := w.TotalTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing total shower table: %w", err))
		}
	}
	if w.TotalGroup != nil {
		if err := w.TotalGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing total group: %w", err))
		}
	}
	if w.EventTable != nil {
		if err := w.EventTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing event table: %w", err))
		}
	}
	if w.RunGroup != nil {
		if err := w.RunGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run group: %w", err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
