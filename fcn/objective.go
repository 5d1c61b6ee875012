package fcn

import (
	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/metric"
)

// Objective couples the pixelwise cross-entropy loss with Adam updates and a
// running mean IoU.
type Objective struct {
	classes int64
	opts    []*nn.Optimizer
	steps   int

	// IoU accumulates over the whole run.
	IoU *metric.MeanIoU
}

// NewObjective builds an Adam optimizer with learning rate lr for each var
// store. A frozen backbone store is simply not passed in.
func NewObjective(stores []*nn.VarStore, lr float64, classes int64) (*Objective, error) {
	if len(stores) == 0 {
		return nil, errors.New("no trainable var store")
	}

	var opts []*nn.Optimizer
	for _, vs := range stores {
		opt, err := nn.DefaultAdamConfig().Build(vs, lr)
		if err != nil {
			return nil, errors.Wrap(err, "cannot build Adam optimizer")
		}
		opts = append(opts, opt)
	}

	return &Objective{
		classes: classes,
		opts:    opts,
		IoU:     metric.NewMeanIoU(int(classes)),
	}, nil
}

// Optimize flattens scores and labels [N C H W] to per-pixel rows, computes
// the mean softmax cross entropy and takes one Adam step on loss + penalty.
// penalty may be nil.
//
// It returns the flattened logits and the cross-entropy loss (without
// penalty). Caller owns both.
func (o *Objective) Optimize(scores, labels, penalty *ts.Tensor) (logits, loss *ts.Tensor) {
	logits = metric.FlattenLogits(scores, o.classes)
	target := metric.FlattenLogits(labels, o.classes)
	loss = metric.SoftmaxCrossEntropy(logits, target)
	target.MustDrop()

	total := loss
	if penalty != nil {
		total = loss.MustAdd(penalty, false)
	}

	for _, opt := range o.opts {
		opt.ZeroGrad()
	}
	total.MustBackward()
	for _, opt := range o.opts {
		opt.Step()
	}
	o.steps++

	if total != loss {
		total.MustDrop()
	}

	return logits, loss
}

// Steps returns number of optimizer steps taken so far.
func (o *Objective) Steps() int { return o.steps }

// UpdateIoU feeds a score map and its labels to the IoU accumulator and
// returns the running mean IoU.
func (o *Objective) UpdateIoU(scores, labels *ts.Tensor) (float64, error) {
	if err := o.IoU.UpdateTensor(scores, labels); err != nil {
		return 0, err
	}
	return o.IoU.Value(), nil
}
