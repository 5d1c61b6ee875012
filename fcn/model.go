package fcn

import (
	"log"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/encoder"
)

// Stride is the total downsampling of the encoder. Input height and width
// must be multiples of it.
const Stride = 32

// FCN8 is a FCN-8s model struct
// Ref: https://arxiv.org/abs/1411.4038
type FCN8 struct {
	encoder encoder.Encoder
	decoder *Decoder
	classes int64
}

// NewFCN8 creates FCN8 on top of enc. Decoder variables are created under p,
// which is usually the root of a var store separate from the encoder's.
func NewFCN8(p *nn.Path, enc encoder.Encoder, classes int64) *FCN8 {
	return &FCN8{
		encoder: enc,
		decoder: NewDecoder(p, enc.Channels(), classes),
		classes: classes,
	}
}

// Classes returns number of output classes.
func (n *FCN8) Classes() int64 { return n.classes }

// Decoder returns the model decoder.
func (n *FCN8) Decoder() *Decoder { return n.decoder }

// Forward returns class scores [N classes H W] for image batch x [N 3 H W].
func (n *FCN8) Forward(x *ts.Tensor, keepProb float64, train bool) (*ts.Tensor, error) {
	size := x.MustSize()
	if len(size) != 4 || size[1] != 3 {
		return nil, errors.Errorf("expected image batch [N 3 H W]. Got %v", size)
	}
	if size[2]%Stride != 0 || size[3]%Stride != 0 {
		return nil, errors.Errorf("image size %vx%v is not a multiple of %v", size[2], size[3], Stride)
	}

	ep := n.encoder.ForwardAll(x, keepProb, train)
	out, err := n.decoder.ForwardFeatures(ep, train)
	ep.Drop()

	return out, err
}

// ForwardT implements ts.ModuleT for FCN8 struct. No dropout is applied.
func (n *FCN8) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	out, err := n.Forward(x, 1.0, train)
	if err != nil {
		log.Fatal(err)
	}

	return out
}

// Predict returns per-pixel probability [N H W] of class `class`.
func (n *FCN8) Predict(x *ts.Tensor, class int64) (*ts.Tensor, error) {
	var (
		prob *ts.Tensor
		err  error
	)
	ts.NoGrad(func() {
		var scores *ts.Tensor
		scores, err = n.Forward(x, 1.0, false)
		if err != nil {
			return
		}
		sm := scores.MustSoftmax(1, gotch.Float, true)
		prob = sm.MustSelect(1, class, true)
	})

	return prob, err
}
