package main

import (
	"fmt"

	shower "github.com/halla-analyzer/shower_go/pkg"
)

func printConfiguration(config shower.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Run date: %s", config.RunDate), "config")
	logger.Info(fmt.Sprintf("Calibration config: %s", config.CalibConfig), "config")
	for _, d := range config.Detectors {
		logger.Info(fmt.Sprintf("Detector: %s (db key %s, file %q)", d.Name, d.Key(), d.DBFile), "config")
	}
	if ts := config.TotalShower; ts != nil {
		logger.Info(fmt.Sprintf("Total shower: %s + %s, max dx %g, max dy %g",
			ts.Shower, ts.PreShower, ts.MaxDx, ts.MaxDy), "config")
	}
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Max event length: %d", config.MaxEventLength), "config")
	logger.Info(fmt.Sprintf("Max channels: %d", config.MaxChannels), "config")
	logger.Info(fmt.Sprintf("Channel buffer: %d", config.ChannelBuffer), "config")
}
