package base

import "github.com/sugarme/gotch/nn"

// ScoreHead projects a feature map to per-class scores with a 1x1 convolution.
type ScoreHead struct {
	*nn.Conv2D
	Classes int64
}

// NewScoreHead creates new ScoreHead.
func NewScoreHead(p *nn.Path, cIn, classes int64, stdev float64) *ScoreHead {
	return &ScoreHead{
		Conv2D:  Conv1x1(p, cIn, classes, stdev),
		Classes: classes,
	}
}
