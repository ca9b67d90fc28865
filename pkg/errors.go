package shower

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when events are fed to a detector whose
// last Init failed or never happened.
var ErrNotInitialized = errors.New("detector not initialized")

// ErrNoCalibration is wrapped when the database has no entry for a detector
// and run.
var ErrNoCalibration = errors.New("no calibration in database")

// ConfigError reports malformed or inconsistent calibration, geometry or
// run configuration. It is fatal to starting a run.
type ConfigError struct {
	Detector string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Detector != "" {
		msg = fmt.Sprintf("detector %s: %s", e.Detector, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Err)
	}
	return "configuration error: " + msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ChannelMapMismatch describes a hardware channel whose map entry points
// outside the logical block range. The reading is dropped.
type ChannelMapMismatch struct {
	Detector string
	Crate    int
	Slot     int
	Channel  int
	Index    int
}

func (e *ChannelMapMismatch) Error() string {
	return fmt.Sprintf("detector %s: bad block index %d for crate %d slot %d channel %d, channel map is invalid, data skipped",
		e.Detector, e.Index, e.Crate, e.Slot, e.Channel)
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}
