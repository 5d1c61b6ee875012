// Package kitti reads the KITTI road dataset, feeds it to the trainer in
// minibatches and renders inference samples.
//
// Expected layout under the data directory:
//
//  data_road/training/image_2/um_000000.png
//  data_road/training/gt_image_2/um_road_000000.png
//  data_road/testing/image_2/um_000000.png
package kitti

import (
	"image/color"
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
)

// NumClasses is number of segmentation classes: background and road.
const NumClasses = 2

// ImageShape is the network input size (height, width) for KITTI.
var ImageShape = []int64{160, 576}

// BackgroundColor marks non-road pixels in ground-truth images.
var BackgroundColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}

// Dataset sub-directories.
const (
	TrainingDir = "data_road/training"
	TestingDir  = "data_road/testing"
	ImageDir    = "image_2"
	LabelDir    = "gt_image_2"
)

// CheckDataset verifies the KITTI road dataset is present under dataDir.
func CheckDataset(dataDir string) error {
	dirs := []string{
		filepath.Join(dataDir, TrainingDir, ImageDir),
		filepath.Join(dataDir, TrainingDir, LabelDir),
		filepath.Join(dataDir, TestingDir, ImageDir),
	}

	for _, dir := range dirs {
		files, err := ioutil.ReadDir(dir)
		if err != nil {
			return errors.Wrap(err, "KITTI dataset not found")
		}
		if len(files) == 0 {
			return errors.Errorf("KITTI dataset directory %q is empty", dir)
		}
	}

	return nil
}
