package shower

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type DetectorConfig struct {
	Name string `json:"name" yaml:"name"`
	// Text database file. Used when NoDB is set or the DB has no entry.
	DBFile string `json:"db_file" yaml:"db_file"`
	// Detector key in the calibration database. Defaults to Name.
	DBKey string `json:"db_key" yaml:"db_key"`
}

type TotalShowerConfig struct {
	Shower    string  `json:"shower" yaml:"shower"`
	PreShower string  `json:"preshower" yaml:"preshower"`
	MaxDx     float64 `json:"max_dx" yaml:"max_dx"`
	MaxDy     float64 `json:"max_dy" yaml:"max_dy"`
}

type Configuration struct {
	MaxEvents        int                `json:"max_events" yaml:"max_events"`
	Verbosity        int                `json:"verbosity" yaml:"verbosity"`
	FileIn           string             `json:"file_in" yaml:"file_in"`
	FileOut          string             `json:"file_out" yaml:"file_out"`
	Skip             int                `json:"skip" yaml:"skip"`
	NoDB             bool               `json:"no_db" yaml:"no_db"`
	Host             string             `json:"host" yaml:"host"`
	User             string             `json:"user" yaml:"user"`
	Passwd           string             `json:"pass" yaml:"pass"`
	DBName           string             `json:"dbname" yaml:"dbname"`
	RunDate          string             `json:"run_date" yaml:"run_date"`
	CalibConfig      string             `json:"calib_config" yaml:"calib_config"`
	Detectors        []DetectorConfig   `json:"detectors" yaml:"detectors"`
	TotalShower      *TotalShowerConfig `json:"total_shower" yaml:"total_shower"`
	WriteData        bool               `json:"write_data" yaml:"write_data"`
	Discard          bool               `json:"discard" yaml:"discard"`
	CompressionLevel int                `json:"compression_level" yaml:"compression_level"`
	MaxEventLength   int                `json:"max_event_length" yaml:"max_event_length"`
	MaxChannels      int                `json:"max_channels" yaml:"max_channels"`
	ChannelBuffer    int                `json:"channel_buffer" yaml:"channel_buffer"`
}

// Bounds checked by Validate.
const (
	MaxEventLengthLimit = 1 << 20
	MaxChannelsLimit    = 1 << 16
	MaxChannelBuffer    = 1 << 16
)

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultConfiguration() Configuration {
	return Configuration{
		MaxEvents:        1000000000,
		Verbosity:        0,
		Skip:             0,
		NoDB:             false,
		Host:             "localhost",
		User:             "reader",
		Passwd:           "readonly",
		DBName:           "SHOWERDB",
		WriteData:        true,
		Discard:          true,
		CompressionLevel: 4,
		MaxEventLength:   4096,
		MaxChannels:      1024,
		ChannelBuffer:    100,
	}
}

// LoadConfiguration reads a JSON or YAML file (chosen by extension) on top of
// the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	return config, nil
}

type environment struct {
	Host      string `env:"SHOWER_DB_HOST"`
	User      string `env:"SHOWER_DB_USER"`
	Passwd    string `env:"SHOWER_DB_PASS"`
	DBName    string `env:"SHOWER_DB_NAME"`
	Verbosity int    `env:"SHOWER_VERBOSITY" envDefault:"-1"`
}

// ApplyEnvironment overrides database credentials and verbosity from
// SHOWER_* environment variables, when set.
func ApplyEnvironment(config *Configuration) error {
	var e environment
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if e.Host != "" {
		config.Host = e.Host
	}
	if e.User != "" {
		config.User = e.User
	}
	if e.Passwd != "" {
		config.Passwd = e.Passwd
	}
	if e.DBName != "" {
		config.DBName = e.DBName
	}
	if e.Verbosity >= 0 {
		config.Verbosity = e.Verbosity
	}
	return nil
}

func (c Configuration) Validate() error {
	if c.MaxEventLength < 1 || c.MaxEventLength > MaxEventLengthLimit {
		return &ConfigError{Reason: fmt.Sprintf("max_event_length %d out of range [1, %d]",
			c.MaxEventLength, MaxEventLengthLimit)}
	}
	if c.MaxChannels < 1 || c.MaxChannels > MaxChannelsLimit {
		return &ConfigError{Reason: fmt.Sprintf("max_channels %d out of range [1, %d]",
			c.MaxChannels, MaxChannelsLimit)}
	}
	if c.ChannelBuffer < 0 || c.ChannelBuffer > MaxChannelBuffer {
		return &ConfigError{Reason: fmt.Sprintf("channel_buffer %d out of range [0, %d]",
			c.ChannelBuffer, MaxChannelBuffer)}
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return &ConfigError{Reason: fmt.Sprintf("compression_level %d out of range [0, 9]",
			c.CompressionLevel)}
	}
	if c.Skip < 0 {
		return &ConfigError{Reason: fmt.Sprintf("negative skip %d", c.Skip)}
	}
	names := make(map[string]bool)
	for _, d := range c.Detectors {
		if d.Name == "" {
			return &ConfigError{Reason: "detector without name"}
		}
		if names[d.Name] {
			return &ConfigError{Detector: d.Name, Reason: "duplicated detector name"}
		}
		names[d.Name] = true
		if c.NoDB && d.DBFile == "" {
			return &ConfigError{Detector: d.Name, Reason: "no_db set but db_file is empty"}
		}
	}
	if ts := c.TotalShower; ts != nil {
		if !names[ts.Shower] || !names[ts.PreShower] {
			return &ConfigError{Reason: fmt.Sprintf("total shower needs configured detectors %q and %q",
				ts.Shower, ts.PreShower)}
		}
		if ts.Shower == ts.PreShower {
			return &ConfigError{Reason: "total shower needs two different detectors"}
		}
	}
	return nil
}

func (d DetectorConfig) Key() string {
	if d.DBKey != "" {
		return d.DBKey
	}
	return d.Name
}
