package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	shower "github.com/halla-analyzer/shower_go/pkg"
	sqlx "github.com/jmoiron/sqlx"
)

var configuration shower.Configuration

var (
	logger         Logger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	if err := run(*configFilename); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(configFilename string) error {
	var err error
	configuration, err = shower.LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	if err := shower.ApplyEnvironment(&configuration); err != nil {
		return err
	}
	if err := configuration.Validate(); err != nil {
		return err
	}
	shower.SetConfiguration(configuration)
	shower.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		return fmt.Errorf("Error opening file: %w", err)
	}
	defer file.Close()

	runInfo, err := shower.CountEvents(file)
	if err != nil {
		return err
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Number of events: %d, run %d", runInfo.Events, runInfo.RunNumber)
		logger.Info(message, "main")
	}

	runDate := runInfo.Start
	if configuration.RunDate != "" {
		if runDate, err = shower.ParseDate(configuration.RunDate); err != nil {
			return fmt.Errorf("invalid run date %q: %w", configuration.RunDate, err)
		}
	}

	var dbConn *sqlx.DB
	if !configuration.NoDB {
		dbConn, err = shower.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			return fmt.Errorf("Error connection to database: %w", err)
		}
		defer dbConn.Close()
	}

	app, err := shower.NewApparatus(configuration, descriptorLoader(dbConn, runInfo.RunNumber, runDate))
	if err != nil {
		return err
	}

	var sink shower.Sink
	if configuration.WriteData {
		writer, err := shower.NewWriter(configuration.FileOut)
		if err != nil {
			return err
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error(err.Error())
			}
		}()
		sink = writer
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	reader := shower.NewEventReader(file, configuration.Skip, configuration.MaxEvents)
	stats, err := shower.Run(ctx, reader, app, sink, configuration.ChannelBuffer)
	message := fmt.Sprintf("Events read: %d, processed: %d, discarded: %d, written: %d in %d ms",
		stats.Read, stats.Processed, stats.Discarded, stats.Written, time.Since(start).Milliseconds())
	logger.Info(message, "main")
	return err
}

// descriptorLoader reads each detector from the database, falling back to
// its text file when the database has no entry. With no_db only files are
// used.
func descriptorLoader(db *sqlx.DB, runNumber int, runDate time.Time) shower.DescriptorLoader {
	return func(dc shower.DetectorConfig) (*shower.Descriptor, error) {
		if db != nil {
			desc, err := shower.LoadDescriptorFromDB(db, dc.Key(), runNumber)
			if err == nil || dc.DBFile == "" || !errors.Is(err, shower.ErrNoCalibration) {
				return desc, err
			}
			message := fmt.Sprintf("%s: no database entry for run %d, reading %s", dc.Name, runNumber, dc.DBFile)
			logger.Info(message, "main")
		}
		return shower.ReadDatabaseFile(dc.DBFile, runDate, configuration.CalibConfig)
	}
}
