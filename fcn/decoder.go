package fcn

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/base"
	"github.com/sugarme/roadseg/encoder"
	"github.com/sugarme/roadseg/metric"
)

const (
	initStdev = 0.01   // stdev of decoder kernel initialization
	l2Scale   = 0.0001 // L2 regularization scale of decoder kernels
)

// Decoder is the FCN-8s decoder. It projects layer3, layer4 and layer7
// features to class scores and fuses them coarse-to-fine:
//
//  score7 -> x2 -> + score4 -> x2 -> + score3 -> x8
type Decoder struct {
	classes  int64
	channels []int64 // layer3, layer4, layer7 depths

	score3 *base.ScoreHead
	score4 *base.ScoreHead
	score7 *base.ScoreHead

	up7 *nn.ConvTranspose2D // stride 32 -> 16
	up4 *nn.ConvTranspose2D // stride 16 -> 8
	up3 *nn.ConvTranspose2D // stride 8 -> 1
}

// NewDecoder creates a Decoder for encoder feature depths `channels`
// (layer3, layer4, layer7).
func NewDecoder(p *nn.Path, channels []int64, classes int64) *Decoder {
	if len(channels) != 3 {
		panic(errors.Errorf("expected 3 feature depths (layer3, layer4, layer7). Got %v", channels))
	}

	return &Decoder{
		classes:  classes,
		channels: channels,
		score3:   base.NewScoreHead(p.Sub("score3"), channels[0], classes, initStdev),
		score4:   base.NewScoreHead(p.Sub("score4"), channels[1], classes, initStdev),
		score7:   base.NewScoreHead(p.Sub("score7"), channels[2], classes, initStdev),
		up7:      base.ConvTranspose2d(p.Sub("up7"), classes, classes, 4, 2, initStdev),
		up4:      base.ConvTranspose2d(p.Sub("up4"), classes, classes, 4, 2, initStdev),
		up3:      base.ConvTranspose2d(p.Sub("up3"), classes, classes, 16, 8, initStdev),
	}
}

// ForwardFeatures decodes encoder endpoints into a [N classes H W] score map.
//
// A feature map with unexpected depth, or fused maps whose shapes disagree,
// is a construction error and is returned as such.
func (d *Decoder) ForwardFeatures(ep *encoder.Endpoints, train bool) (*ts.Tensor, error) {
	for i, f := range []*ts.Tensor{ep.Layer3, ep.Layer4, ep.Layer7} {
		size := f.MustSize()
		if len(size) != 4 || size[1] != d.channels[i] {
			return nil, errors.Errorf("feature %v: expected [N %v H W]. Got %v", i, d.channels[i], size)
		}
	}

	s7 := d.score7.ForwardT(ep.Layer7, train) // [N K H/32 W/32]
	u7 := d.up7.Forward(s7)                   // [N K H/16 W/16]
	s7.MustDrop()
	s4 := d.score4.ForwardT(ep.Layer4, train)
	f4, err := fuse(u7, s4)
	u7.MustDrop()
	s4.MustDrop()
	if err != nil {
		return nil, errors.Wrap(err, "layer4 skip")
	}

	u4 := d.up4.Forward(f4) // [N K H/8 W/8]
	f4.MustDrop()
	s3 := d.score3.ForwardT(ep.Layer3, train)
	f3, err := fuse(u4, s3)
	u4.MustDrop()
	s3.MustDrop()
	if err != nil {
		return nil, errors.Wrap(err, "layer3 skip")
	}

	out := d.up3.Forward(f3) // [N K H W]
	f3.MustDrop()

	return out, nil
}

// Penalty returns the L2 regularization term of all decoder kernels.
func (d *Decoder) Penalty() *ts.Tensor {
	return metric.L2Penalty(l2Scale,
		d.score3.Ws, d.score4.Ws, d.score7.Ws,
		d.up7.Ws, d.up4.Ws, d.up3.Ws,
	)
}

// fuse adds two score maps of identical shape.
func fuse(coarse, fine *ts.Tensor) (*ts.Tensor, error) {
	cs := coarse.MustSize()
	fs := fine.MustSize()
	if !reflect.DeepEqual(cs, fs) {
		return nil, errors.Errorf("cannot fuse %v with %v", cs, fs)
	}

	return coarse.MustAdd(fine, false), nil
}
