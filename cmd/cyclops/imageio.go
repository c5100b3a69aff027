package main

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/anthonynsimon/bild/blur"
	"github.com/golang/glog"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening image")
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	b := img.Bounds()
	glog.V(1).Infof("loaded %s: %s %dx%d", path, format, b.Dx(), b.Dy())
	return img, nil
}

// prepare shrinks img to at most maxWidth pixels across, keeping its
// aspect ratio, blurs it with a Gaussian of the given radius and returns
// it as RGBA with its origin at zero. Zero disables either step.
func prepare(img image.Image, maxWidth int, blurRadius float64) *image.RGBA {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = resize.Resize(uint(maxWidth), 0, img, resize.Bilinear)
	}
	if blurRadius > 0 {
		img = blur.Gaussian(img, blurRadius)
	}
	return toRGBA(img)
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

func savePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrap(cerr, "closing output")
		}
	}()
	return errors.Wrapf(png.Encode(f, img), "encoding %s", path)
}
