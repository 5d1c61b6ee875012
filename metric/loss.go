package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// FlattenLogits reshapes a [N C H W] score map into [N*H*W C] rows of
// per-pixel class scores.
func FlattenLogits(x *ts.Tensor, classes int64) *ts.Tensor {
	return x.MustPermute([]int64{0, 2, 3, 1}, false).MustReshape([]int64{-1, classes}, true)
}

// SoftmaxCrossEntropy computes mean softmax cross entropy between flattened
// logits [M C] and per-row class distributions labels [M C].
//
// loss = mean_i( -sum_c labels[i,c] * log_softmax(logits[i])[c] )
func SoftmaxCrossEntropy(logits, labels *ts.Tensor) *ts.Tensor {
	logp := logits.MustLogSoftmax(-1, gotch.Float, false)
	target := labels.MustTotype(gotch.Float, false)

	prod := target.MustMul(logp, true)
	logp.MustDrop()
	rowSum := prod.MustSum1([]int64{-1}, false, gotch.Float, true)
	mean := rowSum.MustMean(gotch.Float, true)

	return mean.MustMul1(ts.FloatScalar(-1), true)
}

// L2Penalty returns scale * sum(w^2) / 2 over all given weights.
func L2Penalty(scale float64, weights ...*ts.Tensor) *ts.Tensor {
	var total *ts.Tensor
	for _, w := range weights {
		sq := w.MustMul(w, false)
		s := sq.MustSum(gotch.Float, true)
		if total == nil {
			total = s
			continue
		}
		total = total.MustAdd(s, true)
		s.MustDrop()
	}

	if total == nil {
		return ts.MustOfSlice([]float32{0}).MustView([]int64{}, true)
	}

	return total.MustMul1(ts.FloatScalar(scale/2), true)
}
