package dutil

import (
	"reflect"

	"github.com/pkg/errors"
)

// DataLoader iterates a Dataset batch by batch following a Sampler.
type DataLoader struct {
	dataset Dataset
	sampler Sampler
	batches [][]int
	cursor  int
}

// NewDataLoader creates a DataLoader.
func NewDataLoader(data Dataset, s Sampler) (*DataLoader, error) {
	if data == nil || s == nil {
		return nil, errors.New("dataset and sampler must not be nil")
	}

	dl := &DataLoader{
		dataset: data,
		sampler: s,
	}
	dl.Reset()

	return dl, nil
}

// Len returns number of batches per pass.
func (dl *DataLoader) Len() int {
	return len(dl.batches)
}

// HasNext returns whether there is a next batch in the current pass.
func (dl *DataLoader) HasNext() bool {
	return dl.cursor < len(dl.batches)
}

// Next returns the next batch as a slice of the dataset's DType, e.g.
// []Sample for a dataset whose DType is Sample. An item of another type is
// an error.
func (dl *DataLoader) Next() (interface{}, error) {
	if !dl.HasNext() {
		return nil, errors.New("no more batch")
	}

	indices := dl.batches[dl.cursor]
	dl.cursor++

	dtype := dl.dataset.DType()
	batch := reflect.MakeSlice(reflect.SliceOf(dtype), 0, len(indices))
	for _, idx := range indices {
		item, err := dl.dataset.Item(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot load item %v", idx)
		}
		v := reflect.ValueOf(item)
		if !v.IsValid() || v.Type() != dtype {
			return nil, errors.Errorf("item %v: want type %v, got %T", idx, dtype, item)
		}
		batch = reflect.Append(batch, v)
	}

	return batch.Interface(), nil
}

// Reset starts a new pass, resampling batches.
func (dl *DataLoader) Reset() {
	dl.batches = dl.sampler.Sample()
	dl.cursor = 0
}
