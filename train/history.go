package train

import (
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// EpochStat summarizes one training epoch.
type EpochStat struct {
	Epoch    int
	Steps    int     // optimizer steps
	Images   int     // images seen
	Loss     float64 // loss of the last minibatch
	MeanLoss float64 // mean minibatch loss
	IoU      float64 // image-weighted mean of running IoU
}

// History records per-epoch statistics of a run.
type History struct {
	Epochs []EpochStat
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{}
}

// Add appends an epoch.
func (h *History) Add(s EpochStat) {
	h.Epochs = append(h.Epochs, s)
}

// Losses returns last-minibatch loss per epoch.
func (h *History) Losses() []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.Loss
	}
	return out
}

// IoUs returns mean IoU per epoch.
func (h *History) IoUs() []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.IoU
	}
	return out
}

// DataFrame returns the history as a dataframe with one row per epoch.
func (h *History) DataFrame() dataframe.DataFrame {
	n := len(h.Epochs)
	epochs := make([]int, n)
	steps := make([]int, n)
	images := make([]int, n)
	meanLoss := make([]float64, n)
	for i, e := range h.Epochs {
		epochs[i] = e.Epoch
		steps[i] = e.Steps
		images[i] = e.Images
		meanLoss[i] = e.MeanLoss
	}

	return dataframe.New(
		series.New(epochs, series.Int, "epoch"),
		series.New(steps, series.Int, "steps"),
		series.New(images, series.Int, "images"),
		series.New(h.Losses(), series.Float, "loss"),
		series.New(meanLoss, series.Float, "mean_loss"),
		series.New(h.IoUs(), series.Float, "iou"),
	)
}

// SaveCSV writes the history to a CSV file.
func (h *History) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	df := h.DataFrame()
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return errors.Wrap(err, "cannot write history")
	}

	return f.Close()
}

// Plot saves loss and IoU curves to an image file. Format follows the file
// extension (.png, .svg, .pdf...).
func (h *History) Plot(path string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Training"
	p.X.Label.Text = "epoch"

	loss := make(plotter.XYs, len(h.Epochs))
	iou := make(plotter.XYs, len(h.Epochs))
	for i, e := range h.Epochs {
		loss[i].X, loss[i].Y = float64(e.Epoch), e.MeanLoss
		iou[i].X, iou[i].Y = float64(e.Epoch), e.IoU
	}

	if err := plotutil.AddLinePoints(p, "mean loss", loss, "IoU", iou); err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
