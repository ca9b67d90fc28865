package shower

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// DescriptorLoader returns the geometry and calibration of one detector.
type DescriptorLoader func(DetectorConfig) (*Descriptor, error)

type detector interface {
	Decode(evdata EventData) (int, error)
	CoarseProcess(tracks []Track) error
	FineProcess(tracks []Track) error
}

// Apparatus is the set of detectors processed together for every event.
type Apparatus struct {
	Detectors []*Shower
	Total     *TotalShower
}

// NewApparatus builds and initializes the configured detectors.
func NewApparatus(config Configuration, load DescriptorLoader) (*Apparatus, error) {
	app := &Apparatus{}
	for _, dc := range config.Detectors {
		desc, err := load(dc)
		if err != nil {
			return nil, fmt.Errorf("error loading detector %s: %w", dc.Name, err)
		}
		s := NewShower(dc.Name)
		if err := s.Init(desc); err != nil {
			return nil, err
		}
		app.Detectors = append(app.Detectors, s)
	}

	if ts := config.TotalShower; ts != nil {
		total, err := NewTotalShower(app.Detector(ts.Shower), app.Detector(ts.PreShower), ts.MaxDx, ts.MaxDy)
		if err != nil {
			return nil, err
		}
		app.Total = total
	}
	return app, nil
}

func (a *Apparatus) Detector(name string) *Shower {
	for _, s := range a.Detectors {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (a *Apparatus) inTotal(s *Shower) bool {
	return a.Total != nil && (a.Total.Shower == s || a.Total.PreShower == s)
}

// ProcessEvent decodes and reconstructs one event in every detector. The
// record always carries every detector; a failure or a recovered panic only
// flags it as an error.
func (a *Apparatus) ProcessEvent(event *RawEvent) *EventRecord {
	record := &EventRecord{
		RunNumber: event.RunNumber,
		EventID:   event.EventID,
		Timestamp: event.Timestamp,
	}
	record.Error = !a.process(event)

	record.Detectors = make([]Record, 0, len(a.Detectors))
	for _, s := range a.Detectors {
		record.Detectors = append(record.Detectors, s.Record())
	}
	if a.Total != nil {
		total := a.Total.Record()
		record.Total = &total
	}
	return record
}

func (a *Apparatus) process(event *RawEvent) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("recovered from panic on event %d: %v", event.EventID, r)
			logger.Error(errMessage.Error())
			ok = false
		}
	}()

	ok = true
	for _, s := range a.Detectors {
		if a.inTotal(s) {
			continue
		}
		if err := processDetector(s, event); err != nil {
			logger.Error(fmt.Sprintf("event %d: detector %s: %v", event.EventID, s.Name, err))
			ok = false
		}
	}
	if a.Total != nil {
		if err := processDetector(a.Total, event); err != nil {
			logger.Error(fmt.Sprintf("event %d: total shower: %v", event.EventID, err))
			ok = false
		}
	}
	return ok
}

func processDetector(d detector, event *RawEvent) error {
	if _, err := d.Decode(event); err != nil {
		return err
	}
	if err := d.CoarseProcess(event.Tracks); err != nil {
		return err
	}
	return d.FineProcess(event.Tracks)
}

// Sink receives the processed events in file order.
type Sink interface {
	WriteEvent(record *EventRecord) error
}

type RunStats struct {
	Read      int
	Processed int
	Discarded int
	Written   int
}

// Run reads events from source, processes them one at a time and hands the
// records to sink, which may be nil. Stages are connected by channels of
// size depth.
func Run(ctx context.Context, source Source, app *Apparatus, sink Sink, depth int) (RunStats, error) {
	var stats RunStats
	g, ctx := errgroup.WithContext(ctx)
	events := make(chan *RawEvent, depth)
	records := make(chan *EventRecord, depth)

	g.Go(func() error {
		defer close(events)
		for {
			event, err := source.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("error reading event: %w", err)
			}
			stats.Read++
			select {
			case events <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		defer close(records)
		for event := range events {
			record := app.ProcessEvent(event)
			stats.Processed++
			if record.Error && configuration.Discard {
				stats.Discarded++
				logger.Error(fmt.Sprintf("discarding event %d", record.EventID))
				continue
			}
			select {
			case records <- record:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for record := range records {
			if sink == nil {
				continue
			}
			if err := sink.WriteEvent(record); err != nil {
				return fmt.Errorf("error writing event %d: %w", record.EventID, err)
			}
			stats.Written++
			if configuration.Verbosity > 1 {
				logger.Info(fmt.Sprintf("Written event %d", record.EventID), "pipeline")
			}
		}
		return nil
	})

	err := g.Wait()
	return stats, err
}
