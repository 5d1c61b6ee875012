package kitti

import (
	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/dutil"
)

// Batcher yields stacked image and label minibatches from a Dataset.
type Batcher struct {
	loader *dutil.DataLoader
	device gotch.Device
	n      int
}

// NewBatcher creates a Batcher over ds. Samples are reshuffled every pass and
// the last incomplete batch is kept, so a pass yields ceil(N/batchSize) batches.
func NewBatcher(ds *Dataset, batchSize int, device gotch.Device) (*Batcher, error) {
	s, err := dutil.NewBatchSampler(ds.Len(), batchSize, false, true)
	if err != nil {
		return nil, err
	}
	dl, err := dutil.NewDataLoader(ds, s)
	if err != nil {
		return nil, err
	}

	return &Batcher{loader: dl, device: device, n: ds.Len()}, nil
}

// Len returns number of batches per pass.
func (b *Batcher) Len() int { return b.loader.Len() }

// Reset starts a new pass.
func (b *Batcher) Reset() { b.loader.Reset() }

// HasNext reports whether the current pass has more batches.
func (b *Batcher) HasNext() bool { return b.loader.HasNext() }

// Next returns images [B 3 H W] and labels [B 2 H W] on the batcher's device.
func (b *Batcher) Next() (images, labels *ts.Tensor, err error) {
	s, err := b.loader.Next()
	if err != nil {
		return nil, nil, err
	}
	samples, ok := s.([]Sample)
	if !ok {
		return nil, nil, errors.Errorf("unexpected batch type %T", s)
	}

	var img, label []ts.Tensor
	for _, x := range samples {
		img = append(img, x.Image)
		label = append(label, x.Label)
	}
	imgTs := ts.MustStack(img, 0)
	for _, x := range img {
		x.MustDrop()
	}
	labelTs := ts.MustStack(label, 0)
	for _, x := range label {
		x.MustDrop()
	}

	return imgTs.MustTo(b.device, true), labelTs.MustTo(b.device, true), nil
}

// Samples returns number of samples per pass.
func (b *Batcher) Samples() int { return b.n }
