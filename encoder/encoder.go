package encoder

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Encoder is encoder interface for a image segmentation model.
type Encoder interface {
	// ForwardAll runs the backbone and returns its named endpoints. Dropout
	// layers drop activations with probability 1-keepProb when training.
	ForwardAll(x *ts.Tensor, keepProb float64, train bool) *Endpoints

	// Channels returns channel depths of layer3, layer4 and layer7 outputs.
	Channels() []int64
}
