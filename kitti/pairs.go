package kitti

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Pair is an image file and its ground-truth label file.
type Pair struct {
	Image string
	Label string
}

// TrainingPairs matches every `image_2/<cat>_<id>.png` under dir with its
// `gt_image_2/<cat>_road_<id>.png` label. Lane labels are ignored.
func TrainingPairs(dir string) ([]Pair, error) {
	images, err := filepath.Glob(filepath.Join(dir, ImageDir, "*.png"))
	if err != nil {
		return nil, err
	}
	labels, err := filepath.Glob(filepath.Join(dir, LabelDir, "*_road_*.png"))
	if err != nil {
		return nil, err
	}

	byImage := make(map[string]string, len(labels))
	for _, l := range labels {
		name := strings.Replace(filepath.Base(l), "_road_", "_", 1)
		byImage[name] = l
	}

	sort.Strings(images)
	pairs := make([]Pair, 0, len(images))
	for _, img := range images {
		label, ok := byImage[filepath.Base(img)]
		if !ok {
			return nil, errors.Errorf("no road label for image %q", img)
		}
		pairs = append(pairs, Pair{Image: img, Label: label})
	}

	if len(pairs) == 0 {
		return nil, errors.Errorf("no training images found in %q", dir)
	}

	return pairs, nil
}
