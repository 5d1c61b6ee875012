package metric

import (
	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// MeanIoU accumulates a confusion matrix across updates and reports the
// Intersection-over-Union averaged over classes.
//
// The accumulator is never reset implicitly; values reflect every update
// since construction or the last Reset.
type MeanIoU struct {
	classes int
	cm      []int64 // cm[truth*classes+pred]
}

// NewMeanIoU creates a MeanIoU over `classes` classes.
func NewMeanIoU(classes int) *MeanIoU {
	return &MeanIoU{
		classes: classes,
		cm:      make([]int64, classes*classes),
	}
}

// Update adds per-pixel predicted and ground-truth class indices.
func (m *MeanIoU) Update(pred, truth []int64) error {
	if len(pred) != len(truth) {
		return errors.Errorf("prediction/truth length mismatch: %v vs %v", len(pred), len(truth))
	}

	n := int64(m.classes)
	for i, p := range pred {
		t := truth[i]
		if p < 0 || p >= n || t < 0 || t >= n {
			return errors.Errorf("class index out of range [0, %v): pred=%v truth=%v", n, p, t)
		}
		m.cm[t*n+p]++
	}

	return nil
}

// UpdateTensor updates the accumulator from a score map [N C H W] and a
// one-hot label map [N C H W].
//
// Prediction is the arg-max over the class dimension. Ground truth is the
// value of the FIRST label channel read as a class index; the label encoding
// must put the class index there. This is not checked.
func (m *MeanIoU) UpdateTensor(scores, labels *ts.Tensor) error {
	size := scores.MustSize()
	if len(size) != 4 {
		return errors.Errorf("expected 4D scores [N C H W]. Got shape %v", size)
	}
	classes := int(size[1])
	if classes != m.classes {
		return errors.Errorf("expected %v score channels. Got %v", m.classes, classes)
	}

	s := scores.MustPermute([]int64{0, 2, 3, 1}, false).MustContiguous(true).MustTo(gotch.CPU, true)
	vals := s.Float64Values()
	s.MustDrop()

	pred := make([]int64, len(vals)/classes)
	for i := range pred {
		row := vals[i*classes : (i+1)*classes]
		best := 0
		for c := 1; c < classes; c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		pred[i] = int64(best)
	}

	gt := labels.MustSelect(1, 0, false).MustContiguous(true).MustTo(gotch.CPU, true)
	gtVals := gt.Float64Values()
	gt.MustDrop()

	truth := make([]int64, len(gtVals))
	for i, v := range gtVals {
		truth[i] = int64(v)
	}

	return m.Update(pred, truth)
}

// Value returns the mean IoU over classes with a non-zero denominator.
// It returns 0 when nothing has been accumulated.
func (m *MeanIoU) Value() float64 {
	n := m.classes
	var (
		sum   float64
		valid int
	)
	for c := 0; c < n; c++ {
		var row, col int64
		for k := 0; k < n; k++ {
			row += m.cm[c*n+k]
			col += m.cm[k*n+c]
		}
		tp := m.cm[c*n+c]
		denom := row + col - tp
		if denom == 0 {
			continue
		}
		sum += float64(tp) / float64(denom)
		valid++
	}

	if valid == 0 {
		return 0
	}
	return sum / float64(valid)
}

// Confusion returns a copy of the confusion matrix indexed [truth][pred].
func (m *MeanIoU) Confusion() [][]int64 {
	out := make([][]int64, m.classes)
	for t := range out {
		out[t] = append([]int64(nil), m.cm[t*m.classes:(t+1)*m.classes]...)
	}
	return out
}

// Reset clears the accumulator.
func (m *MeanIoU) Reset() {
	for i := range m.cm {
		m.cm[i] = 0
	}
}
