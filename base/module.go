package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dRelu creates a SequentialT composing of Conv2D and a ReLU activation.
func Conv2dRelu(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2d(p, cIn, cOut, ksize, padding, stride))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}

// ConvTranspose2d creates a ConvTranspose2D module that upsamples by `stride`
// exactly. Padding is chosen so that out = in * stride, which requires
// ksize - stride to be even (e.g. k=4,s=2 or k=16,s=8).
func ConvTranspose2d(p *nn.Path, cIn, cOut, ksize, stride int64, stdev float64) *nn.ConvTranspose2D {
	pad := (ksize - stride) / 2
	config := &nn.ConvTranspose2DConfig{
		Stride:        []int64{stride, stride},
		Padding:       []int64{pad, pad},
		OutputPadding: []int64{0, 0},
		Dilation:      []int64{1, 1},
		Groups:        1,
		Bias:          true,
		WsInit:        nn.NewRandnInit(0.0, stdev),
		BsInit:        nn.NewConstInit(0.0),
	}

	return nn.NewConvTranspose2D(p, cIn, cOut, []int64{ksize, ksize}, config)
}

// Conv1x1 creates a 1x1 Conv2D with weights drawn from N(0, stdev).
func Conv1x1(p *nn.Path, cIn, cOut int64, stdev float64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.WsInit = nn.NewRandnInit(0.0, stdev)

	return nn.NewConv2D(p, cIn, cOut, 1, config)
}
