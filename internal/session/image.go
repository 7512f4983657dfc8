package session

import (
	"image"

	"golang.org/x/image/draw"
)

// resizeImage scales img to exactly width x height.
func resizeImage(img image.Image, width, height int) image.Image {
	if img == nil {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
