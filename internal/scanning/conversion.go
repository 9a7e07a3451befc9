package scanning

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// smoothKernel is the 3x3 smoothing filter that sharpness enhancement
// blends away from
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Enhance prepares a rendered page for recognition: greyscale, then a
// contrast boost and a sharpness boost, each by factor. A factor of 1
// leaves the greyscale image unchanged.
func Enhance(img image.Image, factor float64) *image.NRGBA {
	grey := imaging.Grayscale(img)
	grey = adjustContrast(grey, factor)
	return adjustSharpness(grey, factor)
}

// adjustContrast pushes every pixel away from the mean grey level
func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	b := img.Bounds()
	mean := meanLevel(img)
	degenerate := imaging.New(b.Dx(), b.Dy(), color.NRGBA{R: mean, G: mean, B: mean, A: 255})
	return blend(degenerate, img, factor)
}

// adjustSharpness pushes every pixel away from its smoothed neighbourhood
func adjustSharpness(img *image.NRGBA, factor float64) *image.NRGBA {
	degenerate := imaging.Convolve3x3(img, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
	return blend(degenerate, img, factor)
}

// meanLevel returns the rounded mean of the red channel, which equals the
// grey level for a greyscale image
func meanLevel(img *image.NRGBA) uint8 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += uint64(row[x])
		}
	}
	return uint8((sum + uint64(n)/2) / uint64(n))
}

// blend returns degenerate + factor*(img-degenerate) per colour channel.
// Both images must have the same size; alpha is taken from img.
func blend(degenerate, img *image.NRGBA, factor float64) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		deg := degenerate.Pix[y*degenerate.Stride : y*degenerate.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for x := 0; x < len(src); x += 4 {
			for c := 0; c < 3; c++ {
				v := float64(deg[x+c]) + factor*(float64(src[x+c])-float64(deg[x+c]))
				dst[x+c] = clamp(v)
			}
			dst[x+3] = src[x+3]
		}
	}
	return out
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// encodePNG encodes an image as PNG
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
