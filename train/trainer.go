package train

import (
	"fmt"

	"github.com/pkg/errors"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/fcn"
)

// Dropout keep probabilities of the update pass and of the IoU pass.
// Both are fixed; they are not taken from configuration.
const (
	TrainKeepProb = 0.5
	EvalKeepProb  = 1.0
)

// Batcher yields minibatches of images [B 3 H W] and one-hot labels [B C H W].
type Batcher interface {
	Reset()
	HasNext() bool
	Next() (images, labels *ts.Tensor, err error)
}

// Trainer runs minibatch training of a FCN8 model.
type Trainer struct {
	Model     *fcn.FCN8
	Objective *fcn.Objective
	Batches   Batcher
	Epochs    int

	// Regularize adds the decoder L2 penalty to the optimized loss. Off by
	// default; reported losses never include the penalty.
	Regularize bool
}

// Run trains for t.Epochs epochs and returns per-epoch statistics.
//
// Every minibatch takes one optimizer step at keep probability 0.5, then runs
// a second forward pass without dropout to update the running IoU. The IoU
// accumulator is never reset between epochs. Any error aborts the run.
func (t *Trainer) Run() (*History, error) {
	if t.Epochs <= 0 {
		return nil, errors.Errorf("invalid number of epochs: %v", t.Epochs)
	}

	h := NewHistory()
	for e := 0; e < t.Epochs; e++ {
		fmt.Printf("Epoch : %v\n", e+1)
		stat, err := t.runEpoch(e + 1)
		if err != nil {
			return h, errors.Wrapf(err, "epoch %v", e+1)
		}
		h.Add(stat)
		fmt.Printf("Loss : %.6f\n", stat.Loss)
		fmt.Printf("IoU : %.6f\n", stat.IoU)
	}

	fmt.Println(h.Losses())
	fmt.Println(h.IoUs())

	return h, nil
}

func (t *Trainer) runEpoch(epoch int) (EpochStat, error) {
	var (
		stat     = EpochStat{Epoch: epoch}
		losses   []float64
		totalIoU float64
	)

	t.Batches.Reset()
	for t.Batches.HasNext() {
		images, labels, err := t.Batches.Next()
		if err != nil {
			return stat, err
		}

		loss, err := t.step(images, labels)
		if err != nil {
			images.MustDrop()
			labels.MustDrop()
			return stat, err
		}
		losses = append(losses, loss)

		iou, err := t.evalIoU(images, labels)
		n := images.MustSize()[0]
		images.MustDrop()
		labels.MustDrop()
		if err != nil {
			return stat, err
		}

		stat.Steps++
		stat.Images += int(n)
		totalIoU += iou * float64(n)
	}

	if stat.Images == 0 {
		return stat, errors.New("batch generator yielded no images")
	}

	stat.Loss = losses[len(losses)-1]
	stat.MeanLoss = mean(losses)
	stat.IoU = totalIoU / float64(stat.Images)

	return stat, nil
}

// step takes one optimizer step and returns the minibatch cross-entropy loss.
func (t *Trainer) step(images, labels *ts.Tensor) (float64, error) {
	scores, err := t.Model.Forward(images, TrainKeepProb, true)
	if err != nil {
		return 0, err
	}

	var penalty *ts.Tensor
	if t.Regularize {
		penalty = t.Model.Decoder().Penalty()
	}

	logits, loss := t.Objective.Optimize(scores, labels, penalty)
	lossVal := loss.Float64Values()[0]

	scores.MustDrop()
	logits.MustDrop()
	loss.MustDrop()
	if penalty != nil {
		penalty.MustDrop()
	}

	return lossVal, nil
}

// evalIoU re-runs the minibatch without dropout and updates the running IoU.
func (t *Trainer) evalIoU(images, labels *ts.Tensor) (float64, error) {
	var (
		iou float64
		err error
	)
	ts.NoGrad(func() {
		var scores *ts.Tensor
		scores, err = t.Model.Forward(images, EvalKeepProb, false)
		if err != nil {
			return
		}
		iou, err = t.Objective.UpdateIoU(scores, labels)
		scores.MustDrop()
	})

	return iou, err
}
