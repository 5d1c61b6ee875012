package base_test

import (
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/roadseg/base"
)

func TestConvTranspose2dUpsamples(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	up2 := base.ConvTranspose2d(vs.Root().Sub("up2"), 2, 2, 4, 2, 0.01)
	up8 := base.ConvTranspose2d(vs.Root().Sub("up8"), 2, 2, 16, 8, 0.01)

	x := ts.MustRand([]int64{1, 2, 5, 18}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	y2 := up2.Forward(x)
	defer y2.MustDrop()
	if got := y2.MustSize(); !reflect.DeepEqual(got, []int64{1, 2, 10, 36}) {
		t.Errorf("Want [1 2 10 36], got %v", got)
	}

	y8 := up8.Forward(x)
	defer y8.MustDrop()
	if got := y8.MustSize(); !reflect.DeepEqual(got, []int64{1, 2, 40, 144}) {
		t.Errorf("Want [1 2 40 144], got %v", got)
	}
}

func TestScoreHead(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	head := base.NewScoreHead(vs.Root().Sub("score"), 8, 2, 0.01)

	x := ts.MustRand([]int64{1, 8, 3, 4}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	y := head.ForwardT(x, false)
	defer y.MustDrop()
	if got := y.MustSize(); !reflect.DeepEqual(got, []int64{1, 2, 3, 4}) {
		t.Errorf("Want [1 2 3 4], got %v", got)
	}
	if got := head.Ws.MustSize(); !reflect.DeepEqual(got, []int64{2, 8, 1, 1}) {
		t.Errorf("Want kernel [2 8 1 1], got %v", got)
	}
}

func TestConvTranspose2dConfig(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	up := base.ConvTranspose2d(vs.Root().Sub("up"), 2, 2, 16, 8, 0.01)

	if got := up.Ws.MustSize(); !reflect.DeepEqual(got, []int64{2, 2, 16, 16}) {
		t.Errorf("Want kernel [2 2 16 16], got %v", got)
	}
	if got := up.Config.Padding; !reflect.DeepEqual(got, []int64{4, 4}) {
		t.Errorf("Want padding [4 4], got %v", got)
	}
	for _, b := range up.Bs.Float64Values() {
		if b != 0 {
			t.Fatalf("Want zero initialized bias, got %v", up.Bs.Float64Values())
		}
	}
	if _, ok := vs.Variables()["up.bias"]; !ok {
		t.Error("Want bias variable up.bias")
	}
}
