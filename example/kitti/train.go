package main

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"

	"github.com/sugarme/roadseg/encoder"
	"github.com/sugarme/roadseg/fcn"
	"github.com/sugarme/roadseg/kitti"
	"github.com/sugarme/roadseg/train"
)

var (
	// loadBackbone builds and restores the pretrained encoder.
	loadBackbone = encoder.LoadVGG16
	// imageShape is the network input (height, width).
	imageShape = kitti.ImageShape
)

func runTrain() (*train.History, error) {
	if err := kitti.CheckDataset(DataPath); err != nil {
		return nil, err
	}
	fmt.Println("KITTI dataset OK")

	pairs, err := kitti.TrainingPairs(filepath.Join(DataPath, kitti.TrainingDir))
	if err != nil {
		return nil, err
	}
	batches, err := kitti.NewBatcher(kitti.NewDataset(pairs, imageShape), BatchSize, Device)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Training samples: %v, batches per epoch: %v\n", batches.Samples(), batches.Len())

	// Backbone and decoder live in separate var stores so the backbone can be
	// frozen and restored on its own.
	vggVS := nn.NewVarStore(Device)
	vgg, err := loadBackbone(vggVS, VGGPath)
	if err != nil {
		return nil, err
	}
	fmt.Println("VGG16 loaded")

	decVS := nn.NewVarStore(Device)
	net := fcn.NewFCN8(decVS.Root(), vgg, kitti.NumClasses)

	stores := []*nn.VarStore{decVS}
	if Freeze {
		vggVS.Freeze()
	} else {
		stores = append(stores, vggVS)
	}
	obj, err := fcn.NewObjective(stores, LR, net.Classes())
	if err != nil {
		return nil, err
	}

	history, err := newTrainer(net, obj, batches).Run()
	if err != nil {
		return nil, err
	}

	if HistoryPath != "" {
		if err := history.SaveCSV(HistoryPath + ".csv"); err != nil {
			return nil, err
		}
		if err := history.Plot(HistoryPath + ".png"); err != nil {
			return nil, err
		}
	}

	if SavePath != "" {
		if err := vggVS.Save(SavePath + ".vgg.ot"); err != nil {
			return nil, errors.Wrap(err, "cannot save backbone weights")
		}
		if err := decVS.Save(SavePath + ".fcn.ot"); err != nil {
			return nil, errors.Wrap(err, "cannot save decoder weights")
		}
	}

	if Samples {
		if _, err := kitti.SaveInferenceSamples(RunsPath, DataPath, net, imageShape, Device); err != nil {
			return nil, err
		}
	}

	return history, nil
}

// newTrainer minimizes plain cross entropy unless -l2 is set.
func newTrainer(net *fcn.FCN8, obj *fcn.Objective, batches train.Batcher) *train.Trainer {
	return &train.Trainer{
		Model:      net,
		Objective:  obj,
		Batches:    batches,
		Epochs:     Epochs,
		Regularize: L2,
	}
}
