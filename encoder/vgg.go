package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/base"
)

// VGGConfig describes a VGG feature extractor whose fully-connected layers
// are realised as convolutions.
type VGGConfig struct {
	// Blocks lists the output width of every 3x3 conv, grouped per pooling stage.
	// Exactly 5 stages are expected.
	Blocks [][]int64
	// FCWidth is the width of fc6 and fc7.
	FCWidth int64
	// FCKernel is the fc6 kernel size. Torchvision VGG16 pools to 7x7 before
	// the classifier, so 7 lets fc6 reuse classifier.0 weights.
	FCKernel int64
}

// VGG16Config returns the standard VGG16 layout.
func VGG16Config() VGGConfig {
	return VGGConfig{
		Blocks: [][]int64{
			{64, 64},
			{128, 128},
			{256, 256, 256},
			{512, 512, 512},
			{512, 512, 512},
		},
		FCWidth:  4096,
		FCKernel: 7,
	}
}

// VGG is a VGG encoder exposing pool3, pool4 and fc7 outputs.
type VGG struct {
	config VGGConfig
	stage3 *nn.SequentialT // block1..block3 + pool3 (stride 8)
	stage4 *nn.SequentialT // block4 + pool4 (stride 16)
	stage5 *nn.SequentialT // block5 + pool5 (stride 32)
	fc6    *nn.Conv2D
	fc7    *nn.Conv2D
}

// NewVGG creates a VGG encoder under path p. Convolution variables follow the
// torchvision naming (`features.<idx>`) so pretrained weights load directly.
func NewVGG(p *nn.Path, cfg VGGConfig) *VGG {
	stages, cIn := newFeatures(p.Sub("features"), cfg)
	fc6 := base.Conv2d(p.Sub("fc6"), cIn, cfg.FCWidth, cfg.FCKernel, cfg.FCKernel/2, 1)
	fc7 := base.Conv2d(p.Sub("fc7"), cfg.FCWidth, cfg.FCWidth, 1, 0, 1)

	return &VGG{
		config: cfg,
		stage3: stages[0],
		stage4: stages[1],
		stage5: stages[2],
		fc6:    fc6,
		fc7:    fc7,
	}
}

// newFeatures builds the convolution stages ending at pool3, pool4 and pool5.
// It returns the stages and the channel depth of pool5.
func newFeatures(fp *nn.Path, cfg VGGConfig) ([]*nn.SequentialT, int64) {
	if len(cfg.Blocks) != 5 {
		panic(fmt.Sprintf("VGG expects 5 blocks. Got %v", len(cfg.Blocks)))
	}

	var (
		idx    int   // torchvision layer index in `features`
		cIn    int64 = 3
		stages       = []*nn.SequentialT{nn.SeqT(), nn.SeqT(), nn.SeqT()}
	)
	for b, block := range cfg.Blocks {
		// blocks 0-2 -> stage3, 3 -> stage4, 4 -> stage5
		s := 0
		if b > 2 {
			s = b - 2
		}
		seq := stages[s]
		for _, cOut := range block {
			seq.Add(base.Conv2dRelu(fp.Sub(fmt.Sprint(idx)), cIn, cOut, 3, 1, 1))
			cIn = cOut
			idx += 2 // conv + relu
		}
		seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
			return xs.MustMaxPool2d([]int64{2, 2}, []int64{2, 2}, []int64{0, 0}, []int64{1, 1}, false, false)
		}))
		idx++
	}

	return stages, cIn
}

// Channels implements Encoder interface for VGG.
func (v *VGG) Channels() []int64 {
	b := v.config.Blocks
	return []int64{b[2][len(b[2])-1], b[3][len(b[3])-1], v.config.FCWidth}
}

// ForwardAll implements Encoder interface for VGG.
func (v *VGG) ForwardAll(x *ts.Tensor, keepProb float64, train bool) *Endpoints {
	dropProb := 1 - keepProb

	xn := rgbNormalize(x)
	l3 := v.stage3.ForwardT(xn, train) // [N C3 H/8 W/8]
	xn.MustDrop()
	l4 := v.stage4.ForwardT(l3, train) // [N C4 H/16 W/16]
	p5 := v.stage5.ForwardT(l4, train) // [N C5 H/32 W/32]

	f6 := v.fc6.ForwardT(p5, train).MustRelu(true)
	p5.MustDrop()
	d6 := ts.MustDropout(f6, dropProb, train)
	f6.MustDrop()
	f7 := v.fc7.ForwardT(d6, train).MustRelu(true)
	d6.MustDrop()
	l7 := ts.MustDropout(f7, dropProb, train) // [N FC H/32 W/32]
	f7.MustDrop()

	return &Endpoints{
		Input:    x.MustDetach(false),
		KeepProb: ts.MustOfSlice([]float64{keepProb}),
		Layer3:   l3,
		Layer4:   l4,
		Layer7:   l7,
	}
}

func rgbNormalize(x *ts.Tensor) *ts.Tensor {
	meanVals := []float32{0.485, 0.456, 0.406} // image RGB mean
	sdVals := []float32{0.229, 0.224, 0.225}   // image RGB standard error

	device := x.MustDevice()
	mean := ts.MustOfSlice(meanVals).MustView([]int64{1, 3, 1, 1}, true).MustTo(device, true)
	sd := ts.MustOfSlice(sdVals).MustView([]int64{1, 3, 1, 1}, true).MustTo(device, true)

	// x = (x - mean)/sd
	n := x.MustSub(mean, false).MustDiv(sd, true)
	mean.MustDrop()
	sd.MustDrop()

	return n
}
