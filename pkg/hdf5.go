package shower

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type EventDataHDF5 struct {
	evt_number int32
	run_number int32
	timestamp  uint64
}

type SummaryHDF5 struct {
	evt_number int32
	nhit       int32
	asum_p     float64
	asum_c     float64
	nclust     int32
	e          float64
	x          float64
	y          float64
	mult       int32
}

type TrackProjectionHDF5 struct {
	evt_number int32
	track      int32
	x          float64
	y          float64
	pathl      float64
	inside     int32
}

type TotalShowerHDF5 struct {
	evt_number int32
	e          float64
	id         int32
}

const unlimitedDims = -1 // H5S_UNLIMITED is -1L

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

// datasetProperties sets chunking and the deflate level from the
// configuration.
func datasetProperties(chunks []uint) (*hdf5.PropList, error) {
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if err := plist.SetChunk(chunks); err != nil {
		return nil, err
	}
	if configuration.CompressionLevel > 0 {
		if err := plist.SetDeflate(configuration.CompressionLevel); err != nil {
			return nil, err
		}
	}
	return plist, nil
}

// create2dArray creates an events x nValues dataset that grows one row per
// event.
func create2dArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, nValues int) (*hdf5.Dataset, error) {
	dims := []uint{0, uint(nValues)}
	maxDims := []uint{uint(unlimitedDims), uint(nValues)}
	chunks := []uint{1024, uint(nValues)}

	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()
	plist, err := datasetProperties(chunks)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}) (*hdf5.Dataset, error) {
	dims := []uint{0}
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := datasetProperties([]uint{32768})
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T, rows int) error {
	array := []T{data}
	return writeArrayToTable(dataset, &array, rows)
}

// writeArrayToTable appends data to a table that already holds rows entries.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rows int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	if err := dataset.Resize([]uint{uint(rows) + length}); err != nil {
		return fmt.Errorf("error extending table: %w", err)
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(rows)}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

func write2dArray[T number](dataset *hdf5.Dataset, data *[]T, evtCounter int) error {
	nValues := uint(len(*data))
	// extend
	if err := dataset.Resize([]uint{uint(evtCounter) + 1, nValues}); err != nil {
		return fmt.Errorf("error extending array: %w", err)
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(evtCounter), 0}
	count := []uint{1, nValues}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}
