package kitti

import (
	"reflect"

	"github.com/pkg/errors"
	ts "github.com/sugarme/gotch/tensor"
)

// Sample is an image tensor [3 H W] in [0, 1] and its one-hot label [2 H W].
type Sample struct {
	Image ts.Tensor
	Label ts.Tensor
}

// Dataset implements dutil.Dataset over KITTI image/label pairs.
type Dataset struct {
	pairs []Pair
	shape []int64 // height, width
}

// NewDataset creates a Dataset resizing every sample to shape (height, width).
func NewDataset(pairs []Pair, shape []int64) *Dataset {
	return &Dataset{pairs: pairs, shape: shape}
}

// Len implements dutil.Dataset interface.
func (ds *Dataset) Len() int {
	return len(ds.pairs)
}

// DType implements dutil.Dataset interface.
func (ds *Dataset) DType() reflect.Type {
	return reflect.TypeOf(Sample{})
}

// Item implements dutil.Dataset interface. It returns a Sample.
func (ds *Dataset) Item(idx int) (interface{}, error) {
	img, label, err := ds.load(idx)
	if err != nil {
		return nil, err
	}

	h, w := ds.shape[0], ds.shape[1]
	imgTs := ts.MustOfSlice(img).MustView([]int64{3, h, w}, true)
	labelTs := ts.MustOfSlice(label).MustView([]int64{NumClasses, h, w}, true)

	return Sample{
		Image: *imgTs,
		Label: *labelTs,
	}, nil
}

// load reads and resizes pair idx, returning CHW image values and one-hot
// label values.
func (ds *Dataset) load(idx int) (img, label []float32, err error) {
	p := ds.pairs[idx]
	h, w := int(ds.shape[0]), int(ds.shape[1])

	im, err := readImage(p.Image)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read image %q", p.Image)
	}
	gt, err := readImage(p.Label)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read label %q", p.Label)
	}

	img = imageToCHW(resizeImage(im, h, w))
	label = labelToOneHot(resizeLabel(gt, h, w), BackgroundColor)

	return img, label, nil
}
