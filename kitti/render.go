package kitti

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/image/draw"
)

// RoadClass is the class index of road pixels (label channel 1).
const RoadClass = 1

// roadColor paints predicted road pixels, half transparent.
var roadColor = color.NRGBA{R: 0, G: 255, B: 0, A: 127}

// Predictor returns per-pixel probabilities [N H W] of a class.
type Predictor interface {
	Predict(x *ts.Tensor, class int64) (*ts.Tensor, error)
}

// SaveInferenceSamples runs net on every testing image under dataDir and
// writes road overlays into a new timestamped directory under runsDir.
// It returns the output directory.
func SaveInferenceSamples(runsDir, dataDir string, net Predictor, shape []int64, device gotch.Device) (string, error) {
	outDir := filepath.Join(runsDir, fmt.Sprint(time.Now().Unix()))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	fmt.Printf("Training Finished. Saving test images to: %v\n", outDir)

	files, err := filepath.Glob(filepath.Join(dataDir, TestingDir, ImageDir, "*.png"))
	if err != nil {
		return "", err
	}

	h, w := int(shape[0]), int(shape[1])
	for _, f := range files {
		img, err := readImage(f)
		if err != nil {
			return "", errors.Wrapf(err, "cannot read test image %q", f)
		}
		img = resizeImage(img, h, w)

		x := ts.MustOfSlice(imageToCHW(img)).MustView([]int64{1, 3, shape[0], shape[1]}, true).MustTo(device, true)
		prob, err := net.Predict(x, RoadClass)
		x.MustDrop()
		if err != nil {
			return "", err
		}
		p := prob.MustTo(gotch.CPU, true)
		vals := p.Float64Values()
		p.MustDrop()

		out := overlay(img, vals, 0.5)
		if err := savePNG(filepath.Join(outDir, filepath.Base(f)), out); err != nil {
			return "", err
		}
	}

	return outDir, nil
}

// overlay paints pixels whose probability exceeds threshold over img.
// prob is laid out row-major with img's dimensions.
func overlay(img image.Image, prob []float64, threshold float64) *image.RGBA {
	b := img.Bounds()
	w := b.Dx()
	rec := image.Rect(0, 0, w, b.Dy())

	mask := image.NewNRGBA(rec)
	for i, p := range prob {
		if p > threshold {
			mask.SetNRGBA(i%w, i/w, roadColor)
		}
	}

	dst := image.NewRGBA(rec)
	draw.Draw(dst, rec, img, b.Min, draw.Src)
	draw.Draw(dst, rec, mask, image.Point{}, draw.Over)

	return dst
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
