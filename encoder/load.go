package encoder

import (
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// LoadVGG16 builds a VGG16 encoder at the root of vs and restores its weights
// from a gotch `.ot` artifact.
func LoadVGG16(vs *nn.VarStore, artifact string) (*VGG, error) {
	return LoadVGG(vs, artifact, VGG16Config())
}

// LoadVGG builds a VGG encoder with the given config at the root of vs and
// restores its weights from artifact.
//
// The artifact may carry either `fc6`/`fc7` convolution kernels or the
// torchvision classifier (`classifier.0`, `classifier.3`). In the latter case
// the linear weights are reshaped into convolution kernels. Any encoder
// variable missing or mis-shaped afterwards makes the artifact malformed.
func LoadVGG(vs *nn.VarStore, artifact string, cfg VGGConfig) (*VGG, error) {
	if _, err := os.Stat(artifact); err != nil {
		return nil, errors.Wrap(err, "backbone artifact not found")
	}

	net := NewVGG(vs.Root(), cfg)

	// NOTE. vs.LoadPartial dereferences a nil tensor on a missing name, so
	// names are matched here.
	named, err := ts.LoadMultiWithDevice(artifact, vs.Device())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot restore backbone from %q", artifact)
	}
	loaded := make(map[string]*ts.Tensor, len(named))
	for _, nt := range named {
		loaded[nt.Name] = nt.Tensor
	}
	defer func() {
		for _, x := range loaded {
			x.MustDrop()
		}
	}()

	var fcMissing, bad []string
	for name, dst := range vs.Variables() {
		src, ok := loaded[name]
		if !ok {
			if strings.HasPrefix(name, "fc6.") || strings.HasPrefix(name, "fc7.") {
				fcMissing = append(fcMissing, name)
			} else {
				bad = append(bad, name)
			}
			continue
		}
		if err := copyVar(dst, src); err != nil {
			bad = append(bad, name)
		}
	}

	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, errors.Errorf("malformed backbone artifact %q: missing or mis-shaped variables %v", artifact, bad)
	}

	if len(fcMissing) > 0 {
		if err := net.loadClassifier(loaded); err != nil {
			return nil, errors.Wrapf(err, "malformed backbone artifact %q", artifact)
		}
	}

	return net, nil
}

// loadClassifier copies torchvision classifier.0 and classifier.3 linear
// weights into fc6 and fc7 kernels.
func (v *VGG) loadClassifier(loaded map[string]*ts.Tensor) error {
	cfg := v.config
	c5 := cfg.Blocks[4][len(cfg.Blocks[4])-1]
	k := cfg.FCKernel

	pairs := []struct {
		name  string
		dst   *ts.Tensor
		shape []int64
	}{
		{"classifier.0.weight", v.fc6.Ws, []int64{cfg.FCWidth, c5, k, k}},
		{"classifier.0.bias", v.fc6.Bs, []int64{cfg.FCWidth}},
		{"classifier.3.weight", v.fc7.Ws, []int64{cfg.FCWidth, cfg.FCWidth, 1, 1}},
		{"classifier.3.bias", v.fc7.Bs, []int64{cfg.FCWidth}},
	}

	for _, p := range pairs {
		src, ok := loaded[p.name]
		if !ok {
			return errors.Errorf("neither fc6/fc7 nor classifier found, missing %v", p.name)
		}
		if numel(src.MustSize()) != numel(p.shape) {
			return errors.Errorf("%v: cannot reshape %v into %v", p.name, src.MustSize(), p.shape)
		}
		w := src.MustView(p.shape, false)
		err := copyVar(p.dst, w)
		w.MustDrop()
		if err != nil {
			return errors.Wrap(err, p.name)
		}
	}

	return nil
}

// copyVar overwrites dst in place with src of identical shape.
func copyVar(dst, src *ts.Tensor) error {
	ds, ss := dst.MustSize(), src.MustSize()
	if !reflect.DeepEqual(ds, ss) {
		return errors.Errorf("shape mismatch: want %v, got %v", ds, ss)
	}
	ts.NoGrad(func() {
		dst.Copy_(src)
	})
	return nil
}

func numel(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
