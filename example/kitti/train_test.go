package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/encoder"
	"github.com/sugarme/roadseg/kitti"
)

func tinyVGG() encoder.VGGConfig {
	return encoder.VGGConfig{
		Blocks:   [][]int64{{4}, {4}, {8}, {8}, {8}},
		FCWidth:  16,
		FCKernel: 3,
	}
}

// saveTorchvisionVGG writes an artifact laid out like torchvision VGG:
// `features.*` convolutions and a linear `classifier.0`/`classifier.3`.
func saveTorchvisionVGG(t *testing.T, path string, cfg encoder.VGGConfig) {
	t.Helper()

	feat := nn.NewVarStore(gotch.CPU)
	encoder.NewVGG(feat.Root(), cfg)

	c5 := cfg.Blocks[4][len(cfg.Blocks[4])-1]
	cls := nn.NewVarStore(gotch.CPU)
	cp := cls.Root().Sub("classifier")
	nn.NewLinear(cp.Sub("0"), c5*cfg.FCKernel*cfg.FCKernel, cfg.FCWidth, nn.DefaultLinearConfig())
	nn.NewLinear(cp.Sub("3"), cfg.FCWidth, cfg.FCWidth, nn.DefaultLinearConfig())

	var named []ts.NamedTensor
	for name, x := range feat.Variables() {
		if strings.HasPrefix(name, "features.") {
			named = append(named, ts.NamedTensor{Name: name, Tensor: x})
		}
	}
	for name, x := range cls.Variables() {
		named = append(named, ts.NamedTensor{Name: name, Tensor: x})
	}

	if err := ts.SaveMultiNew(named, path); err != nil {
		t.Fatal(err)
	}
}

// writeKITTI writes n training pairs and n testing images of size h x w.
// Road covers the lower half of every label.
func writeKITTI(t *testing.T, dataDir string, n, h, w int) {
	t.Helper()

	imgDir := filepath.Join(dataDir, kitti.TrainingDir, kitti.ImageDir)
	gtDir := filepath.Join(dataDir, kitti.TrainingDir, kitti.LabelDir)
	testDir := filepath.Join(dataDir, kitti.TestingDir, kitti.ImageDir)
	for _, d := range []string{imgDir, gtDir, testDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	road := color.RGBA{R: 255, G: 0, B: 255, A: 255}
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		gt := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 8), B: uint8(i * 40), A: 255})
				if y >= h/2 {
					gt.Set(x, y, road)
				} else {
					gt.Set(x, y, kitti.BackgroundColor)
				}
			}
		}

		name := fmt.Sprintf("um_%06d.png", i)
		writePNG(t, filepath.Join(imgDir, name), img)
		writePNG(t, filepath.Join(testDir, name), img)
		writePNG(t, filepath.Join(gtDir, fmt.Sprintf("um_road_%06d.png", i)), gt)
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRunTrain(t *testing.T) {
	dir := t.TempDir()
	writeKITTI(t, dir, 5, 32, 64)
	vggPath := filepath.Join(dir, "vgg16.ot")
	saveTorchvisionVGG(t, vggPath, tinyVGG())

	defer func(load func(*nn.VarStore, string) (*encoder.VGG, error), shape []int64) {
		loadBackbone = load
		imageShape = shape
	}(loadBackbone, imageShape)
	loadBackbone = func(vs *nn.VarStore, artifact string) (*encoder.VGG, error) {
		return encoder.LoadVGG(vs, artifact, tinyVGG())
	}
	imageShape = []int64{32, 64}

	DataPath = dir
	RunsPath = filepath.Join(dir, "runs")
	VGGPath = vggPath
	SavePath = filepath.Join(dir, "fcn8")
	HistoryPath = filepath.Join(dir, "history")
	Device = gotch.CPU
	Freeze = false
	Samples = true
	L2 = false
	Epochs = 1
	BatchSize = 2
	LR = 0.0001

	h, err := runTrain()
	if err != nil {
		t.Fatal(err)
	}

	if len(h.Epochs) != 1 {
		t.Fatalf("Want 1 epoch, got %v", len(h.Epochs))
	}
	if got := h.Epochs[0].Steps; got != 3 {
		t.Errorf("Want ceil(5/2)=3 steps, got %v", got)
	}
	if got := h.Epochs[0].Images; got != 5 {
		t.Errorf("Want 5 images, got %v", got)
	}
	if len(h.Losses()) != 1 || len(h.IoUs()) != 1 {
		t.Errorf("Want one loss and one IoU, got %v and %v", h.Losses(), h.IoUs())
	}
	if iou := h.IoUs()[0]; iou < 0 || iou > 1 {
		t.Errorf("IoU out of range: %v", iou)
	}

	for _, f := range []string{
		SavePath + ".vgg.ot",
		SavePath + ".fcn.ot",
		HistoryPath + ".csv",
		HistoryPath + ".png",
	} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("Want output file: %v", err)
		}
	}

	runs, err := ioutil.ReadDir(RunsPath)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Want one inference run directory, got %v (%v)", len(runs), err)
	}
	samples, err := filepath.Glob(filepath.Join(RunsPath, runs[0].Name(), "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 5 {
		t.Errorf("Want 5 inference samples, got %v", len(samples))
	}
}

func TestL2OptIn(t *testing.T) {
	f := flag.Lookup("l2")
	if f == nil || f.DefValue != "false" {
		t.Fatalf("Want -l2 flag defaulting to false, got %v", f)
	}

	defer func(v bool) { L2 = v }(L2)

	L2 = false
	if newTrainer(nil, nil, nil).Regularize {
		t.Error("Want plain cross entropy by default")
	}
	L2 = true
	if !newTrainer(nil, nil, nil).Regularize {
		t.Error("Want L2 penalty with -l2")
	}
}
