package dutil

import "reflect"

// Dataset represents a set of samples accessed by index.
type Dataset interface {
	// Item returns sample at index idx.
	Item(idx int) (interface{}, error)
	// Len returns number of samples.
	Len() int
	// DType returns type of the items returned by Item.
	DType() reflect.Type
}
