package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"

	"github.com/sugarme/roadseg/env"
)

// flag variables
var (
	DataPath    string
	RunsPath    string
	VGGPath     string
	SavePath    string
	HistoryPath string
	Cuda        bool
	Freeze      bool
	Samples     bool
	L2          bool
	Device      gotch.Device
)

// hyperparameters
var (
	Epochs    int     // number of epochs
	BatchSize int     // batch size
	LR        float64 // learning rate
)

func init() {
	flag.StringVar(&DataPath, "data", "./data", "specify data directory containing 'data_road'")
	flag.StringVar(&RunsPath, "runs", "./runs", "specify directory for inference samples")
	flag.StringVar(&VGGPath, "vgg", "./data/vgg/vgg16.ot", "specify full path to pretrained VGG16 weight '.ot' file.")
	flag.StringVar(&SavePath, "save", "", "specify path to save trained weights. Empty skips saving.")
	flag.StringVar(&HistoryPath, "history", "", "specify path prefix for training history '.csv' and '.png'. Empty skips.")
	flag.BoolVar(&Cuda, "cuda", true, "specify whether using CUDA if available.")
	flag.BoolVar(&Freeze, "freeze", false, "specify whether to freeze VGG16 weights.")
	flag.BoolVar(&Samples, "samples", true, "specify whether to save inference samples after training.")
	flag.BoolVar(&L2, "l2", false, "specify whether to add decoder L2 penalty to the optimized loss.")
	flag.IntVar(&Epochs, "epochs", 50, "specify number of epochs")
	flag.IntVar(&BatchSize, "batch", 2, "specify batch size")
	flag.Float64Var(&LR, "lr", 0.0001, "specify learning rate")
}

func main() {
	flag.Parse()

	DataPath = absPath(DataPath)
	RunsPath = absPath(RunsPath)
	VGGPath = absPath(VGGPath)

	if err := env.CheckFramework(env.MinFrameworkVersion); err != nil {
		log.Fatal(err)
	}
	Device = env.SelectDevice(Cuda)

	if _, err := runTrain(); err != nil {
		log.Fatal(err)
	}
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
