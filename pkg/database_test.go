package shower

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a different database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, CreateSchema(db))
	return db
}

func testDescriptor(t *testing.T) *Descriptor {
	t.Helper()
	desc, err := ReadDatabase(strings.NewReader(testDatabase), "db_ps.dat", time.Time{}, "")
	require.NoError(t, err)
	desc.Angle = 12.5
	return desc
}

func TestDescriptorDatabaseRoundTrip(t *testing.T) {
	db := newTestDB(t)
	desc := testDescriptor(t)
	require.NoError(t, ImportDescriptor(db, "L.ps", 100, 200, desc))

	for _, run := range []int{100, 150, 200} {
		loaded, err := LoadDescriptorFromDB(db, "L.ps", run)
		require.NoError(t, err)
		if diff := cmp.Diff(desc, loaded); diff != "" {
			t.Errorf("run %d: descriptor mismatch (-want +got):\n%s", run, diff)
		}
	}

	var nmap int
	require.NoError(t, db.Get(&nmap, "SELECT COUNT(*) FROM ShowerChannelMap"))
	assert.Equal(t, 3, nmap, "unmapped channels are not stored")
}

func TestLoadDescriptorRunWindow(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, ImportDescriptor(db, "L.ps", 100, 200, testDescriptor(t)))

	for _, run := range []int{99, 201} {
		_, err := LoadDescriptorFromDB(db, "L.ps", run)
		assert.ErrorIs(t, err, ErrNoCalibration)
	}
	_, err := LoadDescriptorFromDB(db, "L.sh", 150)
	assert.ErrorIs(t, err, ErrNoCalibration)
}

func TestLoadDescriptorSelectsPeriod(t *testing.T) {
	db := newTestDB(t)
	first := testDescriptor(t)
	second := testDescriptor(t)
	second.Pedestals = []float64{1, 2, 3, 4}
	second.EMin = 7
	require.NoError(t, ImportDescriptor(db, "L.ps", 100, 199, first))
	require.NoError(t, ImportDescriptor(db, "L.ps", 200, 299, second))

	loaded, err := LoadDescriptorFromDB(db, "L.ps", 250)
	require.NoError(t, err)
	assert.Equal(t, second.Pedestals, loaded.Pedestals)
	assert.Equal(t, 7.0, loaded.EMin)

	loaded, err = LoadDescriptorFromDB(db, "L.ps", 150)
	require.NoError(t, err)
	assert.Equal(t, first.Pedestals, loaded.Pedestals)
}

func TestLoadDescriptorOverlappingPeriods(t *testing.T) {
	db := newTestDB(t)
	outer := testDescriptor(t)
	inner := testDescriptor(t)
	inner.Pedestals = []float64{1, 2, 3, 4}
	inner.ChanMap = [][]int{{4, 3}, {2, 1}}
	require.NoError(t, ImportDescriptor(db, "L.ps", 100, 300, outer))
	require.NoError(t, ImportDescriptor(db, "L.ps", 200, 250, inner))

	tests := []struct {
		run  int
		want *Descriptor
	}{
		{150, outer},
		{200, inner},
		{250, inner},
		{251, outer},
	}
	for _, tt := range tests {
		loaded, err := LoadDescriptorFromDB(db, "L.ps", tt.run)
		require.NoError(t, err, "run %d", tt.run)
		if diff := cmp.Diff(tt.want, loaded); diff != "" {
			t.Errorf("run %d: descriptor mismatch (-want +got):\n%s", tt.run, diff)
		}
	}
}

func TestLoadDescriptorIncompleteCalibration(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, ImportDescriptor(db, "L.ps", 100, 200, testDescriptor(t)))
	_, err := db.Exec("DELETE FROM ShowerCalibration WHERE Block = 2")
	require.NoError(t, err)

	_, err = LoadDescriptorFromDB(db, "L.ps", 150)
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.False(t, errors.Is(err, ErrNoCalibration))
}

func TestImportDescriptorErrors(t *testing.T) {
	db := newTestDB(t)

	desc := testDescriptor(t)
	desc.Gains = desc.Gains[:2]
	assert.Error(t, ImportDescriptor(db, "L.ps", 100, 200, desc))
	assert.Error(t, ImportDescriptor(db, "L.ps", 200, 100, testDescriptor(t)))

	var ngeo int
	require.NoError(t, db.Get(&ngeo, "SELECT COUNT(*) FROM ShowerGeometry"))
	assert.Zero(t, ngeo)
}

func TestLoadDescriptorInitializesShower(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, ImportDescriptor(db, "L.ps", 1, 10, testDescriptor(t)))
	desc, err := LoadDescriptorFromDB(db, "L.ps", 5)
	require.NoError(t, err)

	s := initShower(t, "ps", desc)
	event := slotEvent(1, 3, map[int]int32{0: 20, 1: 31})
	addHits(event, 1, 4, map[int]int32{4: 42})
	n, err := s.Decode(event)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{10, 20, 30, 0}, s.Record().AP)
}
