package shower

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// Schema of the calibration database. Every row is valid for the runs in
// [MinRun, MaxRun]. Blocks are numbered from 1.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ShowerGeometry (
		Detector VARCHAR(32) NOT NULL,
		MinRun INTEGER NOT NULL,
		MaxRun INTEGER NOT NULL,
		NCols INTEGER NOT NULL,
		NRows INTEGER NOT NULL,
		OriginX DOUBLE NOT NULL,
		OriginY DOUBLE NOT NULL,
		OriginZ DOUBLE NOT NULL,
		SizeX DOUBLE NOT NULL,
		SizeY DOUBLE NOT NULL,
		SizeZ DOUBLE NOT NULL,
		Angle DOUBLE NOT NULL,
		BlockX DOUBLE NOT NULL,
		BlockY DOUBLE NOT NULL,
		DX DOUBLE NOT NULL,
		DY DOUBLE NOT NULL,
		EMin DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ShowerModules (
		Detector VARCHAR(32) NOT NULL,
		MinRun INTEGER NOT NULL,
		MaxRun INTEGER NOT NULL,
		Module INTEGER NOT NULL,
		Crate INTEGER NOT NULL,
		Slot INTEGER NOT NULL,
		FirstChannel INTEGER NOT NULL,
		LastChannel INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ShowerChannelMap (
		Detector VARCHAR(32) NOT NULL,
		MinRun INTEGER NOT NULL,
		MaxRun INTEGER NOT NULL,
		Module INTEGER NOT NULL,
		Channel INTEGER NOT NULL,
		Block INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ShowerCalibration (
		Detector VARCHAR(32) NOT NULL,
		MinRun INTEGER NOT NULL,
		MaxRun INTEGER NOT NULL,
		Block INTEGER NOT NULL,
		Pedestal DOUBLE NOT NULL,
		Gain DOUBLE NOT NULL
	)`,
}

func CreateSchema(db *sqlx.DB) error {
	for _, statement := range schema {
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("error creating calibration schema: %w", err)
		}
	}
	return nil
}

type geometryRow struct {
	Detector string  `db:"Detector"`
	MinRun   int     `db:"MinRun"`
	MaxRun   int     `db:"MaxRun"`
	NCols    int     `db:"NCols"`
	NRows    int     `db:"NRows"`
	OriginX  float64 `db:"OriginX"`
	OriginY  float64 `db:"OriginY"`
	OriginZ  float64 `db:"OriginZ"`
	SizeX    float64 `db:"SizeX"`
	SizeY    float64 `db:"SizeY"`
	SizeZ    float64 `db:"SizeZ"`
	Angle    float64 `db:"Angle"`
	BlockX   float64 `db:"BlockX"`
	BlockY   float64 `db:"BlockY"`
	DX       float64 `db:"DX"`
	DY       float64 `db:"DY"`
	EMin     float64 `db:"EMin"`
}

type moduleRow struct {
	Detector string `db:"Detector"`
	MinRun   int    `db:"MinRun"`
	MaxRun   int    `db:"MaxRun"`
	Module   int    `db:"Module"`
	ModuleSpec
}

type channelMapRow struct {
	Detector string `db:"Detector"`
	MinRun   int    `db:"MinRun"`
	MaxRun   int    `db:"MaxRun"`
	Module   int    `db:"Module"`
	Channel  int    `db:"Channel"`
	Block    int    `db:"Block"`
}

type calibrationRow struct {
	Detector string  `db:"Detector"`
	MinRun   int     `db:"MinRun"`
	MaxRun   int     `db:"MaxRun"`
	Block    int     `db:"Block"`
	Pedestal float64 `db:"Pedestal"`
	Gain     float64 `db:"Gain"`
}

const (
	runWindow = "Detector = ? AND MinRun <= ? AND MaxRun >= ?"
	period    = "Detector = ? AND MinRun = ? AND MaxRun = ?"
)

// LoadDescriptorFromDB reads the descriptor of a detector valid for a run.
// When several periods contain the run, the one starting last wins and all
// tables are read from that period. Channels with no channel map row are
// unmapped.
func LoadDescriptorFromDB(db *sqlx.DB, detector string, runNumber int) (*Descriptor, error) {
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading %s calibration for run %d from database", detector, runNumber)
		logger.Info(message, "database")
	}
	dbError := func(what string, err error) error {
		return &ConfigError{Detector: detector, Reason: fmt.Sprintf("error querying %s for run %d", what, runNumber), Err: err}
	}

	var geometries []geometryRow
	query := "SELECT * FROM ShowerGeometry WHERE " + runWindow + " ORDER BY MinRun DESC, MaxRun ASC"
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}
	if err := db.Select(&geometries, db.Rebind(query), detector, runNumber, runNumber); err != nil {
		return nil, dbError("geometry", err)
	}
	if len(geometries) == 0 {
		return nil, &ConfigError{Detector: detector, Reason: fmt.Sprintf("no geometry for run %d", runNumber), Err: ErrNoCalibration}
	}
	geo := geometries[0]
	desc := &Descriptor{
		NCols:  geo.NCols,
		NRows:  geo.NRows,
		Origin: Vec3{geo.OriginX, geo.OriginY, geo.OriginZ},
		Size:   [3]float64{geo.SizeX, geo.SizeY, geo.SizeZ},
		Angle:  geo.Angle,
		BlockX: geo.BlockX,
		BlockY: geo.BlockY,
		DX:     geo.DX,
		DY:     geo.DY,
		EMin:   geo.EMin,
	}

	var modules []moduleRow
	query = "SELECT * FROM ShowerModules WHERE " + period + " ORDER BY Module"
	if err := db.Select(&modules, db.Rebind(query), detector, geo.MinRun, geo.MaxRun); err != nil {
		return nil, dbError("modules", err)
	}
	desc.Modules = make([]ModuleSpec, len(modules))
	desc.ChanMap = make([][]int, len(modules))
	for i, m := range modules {
		if m.Module != i {
			return nil, &ConfigError{Detector: detector, Reason: fmt.Sprintf("modules are not numbered 0..%d", len(modules)-1)}
		}
		desc.Modules[i] = m.ModuleSpec
		if m.NChan() > 0 {
			desc.ChanMap[i] = make([]int, m.NChan())
		}
	}

	var channels []channelMapRow
	query = "SELECT * FROM ShowerChannelMap WHERE " + period
	if err := db.Select(&channels, db.Rebind(query), detector, geo.MinRun, geo.MaxRun); err != nil {
		return nil, dbError("channel map", err)
	}
	for _, ch := range channels {
		if ch.Module < 0 || ch.Module >= len(modules) {
			return nil, &ConfigError{Detector: detector, Reason: fmt.Sprintf("channel map refers to unknown module %d", ch.Module)}
		}
		spec := desc.Modules[ch.Module]
		if ch.Channel < spec.First || ch.Channel > spec.Last {
			return nil, &ConfigError{Detector: detector, Reason: fmt.Sprintf("channel %d outside module %d range [%d, %d]",
				ch.Channel, ch.Module, spec.First, spec.Last)}
		}
		desc.ChanMap[ch.Module][ch.Channel-spec.First] = ch.Block
	}

	var calibrations []calibrationRow
	query = "SELECT * FROM ShowerCalibration WHERE " + period + " ORDER BY Block"
	if err := db.Select(&calibrations, db.Rebind(query), detector, geo.MinRun, geo.MaxRun); err != nil {
		return nil, dbError("calibration", err)
	}
	nelem := desc.NElem()
	if len(calibrations) != nelem {
		return nil, &ConfigError{Detector: detector, Reason: fmt.Sprintf("expected %d calibration rows, got %d",
			nelem, len(calibrations))}
	}
	desc.Pedestals = make([]float64, nelem)
	desc.Gains = make([]float64, nelem)
	for i, c := range calibrations {
		if c.Block != i+1 {
			return nil, &ConfigError{Detector: detector, Reason: fmt.Sprintf("calibration rows must cover blocks 1..%d, found block %d",
				nelem, c.Block)}
		}
		desc.Pedestals[i] = c.Pedestal
		desc.Gains[i] = c.Gain
	}
	return desc, nil
}

// ImportDescriptor stores a descriptor for a detector, valid for runs in
// [minRun, maxRun], in a single transaction. Unmapped channels are not
// stored.
func ImportDescriptor(db *sqlx.DB, detector string, minRun, maxRun int, desc *Descriptor) error {
	if nelem := desc.NElem(); len(desc.Pedestals) != nelem || len(desc.Gains) != nelem {
		return &ConfigError{Detector: detector, Reason: fmt.Sprintf("expected %d pedestals and gains, got %d and %d",
			nelem, len(desc.Pedestals), len(desc.Gains))}
	}
	if minRun > maxRun {
		return &ConfigError{Detector: detector, Reason: fmt.Sprintf("empty run range [%d, %d]", minRun, maxRun)}
	}
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	geo := geometryRow{
		Detector: detector, MinRun: minRun, MaxRun: maxRun,
		NCols: desc.NCols, NRows: desc.NRows,
		OriginX: desc.Origin.X, OriginY: desc.Origin.Y, OriginZ: desc.Origin.Z,
		SizeX: desc.Size[0], SizeY: desc.Size[1], SizeZ: desc.Size[2],
		Angle:  desc.Angle,
		BlockX: desc.BlockX, BlockY: desc.BlockY,
		DX: desc.DX, DY: desc.DY,
		EMin: desc.EMin,
	}
	_, err = tx.NamedExec(`INSERT INTO ShowerGeometry
		(Detector, MinRun, MaxRun, NCols, NRows, OriginX, OriginY, OriginZ, SizeX, SizeY, SizeZ,
		 Angle, BlockX, BlockY, DX, DY, EMin)
		VALUES (:Detector, :MinRun, :MaxRun, :NCols, :NRows, :OriginX, :OriginY, :OriginZ,
		 :SizeX, :SizeY, :SizeZ, :Angle, :BlockX, :BlockY, :DX, :DY, :EMin)`, geo)
	if err != nil {
		return fmt.Errorf("error inserting geometry: %w", err)
	}

	for i, spec := range desc.Modules {
		row := moduleRow{Detector: detector, MinRun: minRun, MaxRun: maxRun, Module: i, ModuleSpec: spec}
		_, err = tx.NamedExec(`INSERT INTO ShowerModules
			(Detector, MinRun, MaxRun, Module, Crate, Slot, FirstChannel, LastChannel)
			VALUES (:Detector, :MinRun, :MaxRun, :Module, :Crate, :Slot, :FirstChannel, :LastChannel)`, row)
		if err != nil {
			return fmt.Errorf("error inserting module %d: %w", i, err)
		}
		if i >= len(desc.ChanMap) {
			continue
		}
		for j, block := range desc.ChanMap[i] {
			if block == 0 {
				continue
			}
			row := channelMapRow{Detector: detector, MinRun: minRun, MaxRun: maxRun,
				Module: i, Channel: spec.First + j, Block: block}
			_, err = tx.NamedExec(`INSERT INTO ShowerChannelMap
				(Detector, MinRun, MaxRun, Module, Channel, Block)
				VALUES (:Detector, :MinRun, :MaxRun, :Module, :Channel, :Block)`, row)
			if err != nil {
				return fmt.Errorf("error inserting channel map of module %d: %w", i, err)
			}
		}
	}

	for k := range desc.Pedestals {
		row := calibrationRow{Detector: detector, MinRun: minRun, MaxRun: maxRun,
			Block: k + 1, Pedestal: desc.Pedestals[k], Gain: desc.Gains[k]}
		_, err = tx.NamedExec(`INSERT INTO ShowerCalibration
			(Detector, MinRun, MaxRun, Block, Pedestal, Gain)
			VALUES (:Detector, :MinRun, :MaxRun, :Block, :Pedestal, :Gain)`, row)
		if err != nil {
			return fmt.Errorf("error inserting calibration of block %d: %w", k+1, err)
		}
	}
	return tx.Commit()
}
