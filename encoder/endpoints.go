package encoder

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Endpoint names, in the order returned by Endpoints.Tensors.
const (
	ImageInput = "image_input"
	KeepProb   = "keep_prob"
	Layer3Out  = "layer3_out"
	Layer4Out  = "layer4_out"
	Layer7Out  = "layer7_out"
)

// Endpoints holds the five tensors a backbone exposes to the decoder.
//
// Shapes for an input of [N 3 H W]:
//  image_input [N 3 H W]
//  keep_prob   [1]
//  layer3_out  [N C3 H/8 W/8]
//  layer4_out  [N C4 H/16 W/16]
//  layer7_out  [N C7 H/32 W/32]
type Endpoints struct {
	Input    *ts.Tensor
	KeepProb *ts.Tensor
	Layer3   *ts.Tensor
	Layer4   *ts.Tensor
	Layer7   *ts.Tensor
}

// Names returns endpoint names in order.
func (e *Endpoints) Names() []string {
	return []string{ImageInput, KeepProb, Layer3Out, Layer4Out, Layer7Out}
}

// Tensors returns endpoint tensors in the same order as Names.
func (e *Endpoints) Tensors() []*ts.Tensor {
	return []*ts.Tensor{e.Input, e.KeepProb, e.Layer3, e.Layer4, e.Layer7}
}

// Named returns endpoints keyed by name.
func (e *Endpoints) Named() map[string]*ts.Tensor {
	m := make(map[string]*ts.Tensor, 5)
	for i, t := range e.Tensors() {
		m[e.Names()[i]] = t
	}
	return m
}

// Drop frees all endpoint tensors.
func (e *Endpoints) Drop() {
	for _, t := range e.Tensors() {
		if t != nil {
			t.MustDrop()
		}
	}
}
