package kitti

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// readImage reads image from file.
func readImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	default:
		err = fmt.Errorf("Unsupported image format: %v\n", ext)
		return nil, err
	}
}

// resizeImage resizes a camera image to (h, w) with bilinear filtering.
func resizeImage(img image.Image, h, w int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}

// resizeLabel resizes a label image to (h, w) keeping colors intact.
func resizeLabel(img image.Image, h, w int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return resize.Resize(uint(w), uint(h), img, resize.NearestNeighbor)
}

// imageToCHW converts an image to RGB float values in [0, 1] laid out as
// channels x height x width.
func imageToCHW(img image.Image) []float32 {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	plane := h * w
	out := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			out[i] = float32(r) / 0xffff
			out[plane+i] = float32(g) / 0xffff
			out[2*plane+i] = float32(bl) / 0xffff
		}
	}

	return out
}

// labelToOneHot converts a ground-truth image to a 2 x height x width one-hot
// encoding. Channel 0 is set where the pixel matches bg, channel 1 elsewhere.
func labelToOneHot(img image.Image, bg color.Color) []float32 {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	plane := h * w
	out := make([]float32, 2*plane)

	br, bgG, bb, _ := bg.RGBA()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			if r>>8 == br>>8 && g>>8 == bgG>>8 && bl>>8 == bb>>8 {
				out[i] = 1
			} else {
				out[plane+i] = 1
			}
		}
	}

	return out
}
