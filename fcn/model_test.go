package fcn_test

import (
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/encoder"
	"github.com/sugarme/roadseg/fcn"
)

func tinyConfig() encoder.VGGConfig {
	return encoder.VGGConfig{
		Blocks:   [][]int64{{4}, {4}, {8}, {8}, {8}},
		FCWidth:  16,
		FCKernel: 3,
	}
}

func newTinyFCN() (*fcn.FCN8, *nn.VarStore, *nn.VarStore) {
	encVS := nn.NewVarStore(gotch.CPU)
	decVS := nn.NewVarStore(gotch.CPU)
	enc := encoder.NewVGG(encVS.Root(), tinyConfig())
	net := fcn.NewFCN8(decVS.Root(), enc, 2)

	return net, encVS, decVS
}

func TestFCN8OutputSize(t *testing.T) {
	net, _, _ := newTinyFCN()

	for _, hw := range [][]int64{{32, 32}, {64, 96}, {160, 576}} {
		x := ts.MustRand([]int64{1, 3, hw[0], hw[1]}, gotch.Float, gotch.CPU)
		var out *ts.Tensor
		ts.NoGrad(func() {
			out = net.ForwardT(x, false)
		})

		want := []int64{1, 2, hw[0], hw[1]}
		if got := out.MustSize(); !reflect.DeepEqual(got, want) {
			t.Errorf("Want output shape %v, got %v", want, got)
		}
		out.MustDrop()
		x.MustDrop()
	}
}

func TestFCN8InvalidSize(t *testing.T) {
	net, _, _ := newTinyFCN()

	x := ts.MustRand([]int64{1, 3, 50, 64}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	if _, err := net.Forward(x, 1.0, false); err == nil {
		t.Error("Want error for input height not multiple of 32")
	}
}

func TestDecoderChannelMismatch(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	dec := fcn.NewDecoder(vs.Root(), []int64{8, 8, 32}, 2)

	ep := &encoder.Endpoints{
		Layer3: ts.MustRand([]int64{1, 8, 4, 4}, gotch.Float, gotch.CPU),
		Layer4: ts.MustRand([]int64{1, 8, 2, 2}, gotch.Float, gotch.CPU),
		Layer7: ts.MustRand([]int64{1, 16, 1, 1}, gotch.Float, gotch.CPU),
	}
	defer ep.Drop()

	if _, err := dec.ForwardFeatures(ep, false); err == nil {
		t.Error("Want error for layer7 depth mismatch")
	}
}

func TestDecoderStrideMismatch(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	dec := fcn.NewDecoder(vs.Root(), []int64{8, 8, 16}, 2)

	ep := &encoder.Endpoints{
		Layer3: ts.MustRand([]int64{1, 8, 8, 12}, gotch.Float, gotch.CPU),
		Layer4: ts.MustRand([]int64{1, 8, 5, 5}, gotch.Float, gotch.CPU),
		Layer7: ts.MustRand([]int64{1, 16, 2, 3}, gotch.Float, gotch.CPU),
	}
	defer ep.Drop()

	if _, err := dec.ForwardFeatures(ep, false); err == nil {
		t.Error("Want error for incompatible skip resolution")
	}
}

func TestPredict(t *testing.T) {
	net, _, _ := newTinyFCN()

	x := ts.MustRand([]int64{2, 3, 32, 64}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	prob, err := net.Predict(x, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer prob.MustDrop()

	if got := prob.MustSize(); !reflect.DeepEqual(got, []int64{2, 32, 64}) {
		t.Fatalf("Want shape [2 32 64], got %v", got)
	}
	for _, p := range prob.Float64Values() {
		if p < 0 || p > 1 {
			t.Fatalf("Probability out of range: %v", p)
		}
	}
}
