package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	shower "github.com/halla-analyzer/shower_go/pkg"
)

type slogLogger struct {
	log *slog.Logger
}

func (l slogLogger) Info(message string, module string) {
	l.log.Info(message, "module", module)
}

func (l slogLogger) Error(message string) {
	l.log.Error(message)
}

var logger = slogLogger{log: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))}

// calibimport loads a detector text database into the calibration database.
func main() {
	configFilename := flag.String("config", "", "Configuration file with the database credentials")
	dbFile := flag.String("db-file", "", "Detector text database file")
	detector := flag.String("detector", "", "Detector key in the calibration database")
	minRun := flag.Int("min-run", 0, "First run the calibration is valid for")
	maxRun := flag.Int("max-run", 1<<31-1, "Last run the calibration is valid for")
	date := flag.String("date", "", "Calibration date used to pick tagged sections")
	calibConfig := flag.String("calib-config", "", "Calibration config tag")
	createSchema := flag.Bool("create-schema", false, "Create the calibration tables if missing")
	flag.Parse()

	if err := run(*configFilename, *dbFile, *detector, *minRun, *maxRun, *date, *calibConfig, *createSchema); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(configFilename, dbFile, detector string, minRun, maxRun int, date, calibConfig string, createSchema bool) error {
	if dbFile == "" || detector == "" {
		return fmt.Errorf("both -db-file and -detector are required")
	}

	configuration := shower.DefaultConfiguration()
	if configFilename != "" {
		var err error
		if configuration, err = shower.LoadConfiguration(configFilename); err != nil {
			return fmt.Errorf("Error reading configuration file: %w", err)
		}
	}
	if err := shower.ApplyEnvironment(&configuration); err != nil {
		return err
	}
	shower.SetConfiguration(configuration)
	shower.SetLogger(logger)

	var calibDate time.Time
	if date != "" {
		var err error
		if calibDate, err = shower.ParseDate(date); err != nil {
			return fmt.Errorf("invalid date %q: %w", date, err)
		}
	}
	desc, err := shower.ReadDatabaseFile(dbFile, calibDate, calibConfig)
	if err != nil {
		return err
	}

	db, err := shower.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
	if err != nil {
		return fmt.Errorf("Error connection to database: %w", err)
	}
	defer db.Close()

	if createSchema {
		if err := shower.CreateSchema(db); err != nil {
			return err
		}
	}
	if err := shower.ImportDescriptor(db, detector, minRun, maxRun, desc); err != nil {
		return err
	}
	message := fmt.Sprintf("Imported %s (%d blocks, %d channels) for runs [%d, %d]",
		detector, desc.NElem(), desc.NChannels(), minRun, maxRun)
	logger.Info(message, "calibimport")
	return nil
}
