package ocr

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// minRecognitionWidth is the width below which images are upscaled
	// before local recognition. Small phone crops fall under the
	// resolution Tesseract needs for reliable line detection.
	minRecognitionWidth = 1000

	// tallAspect is the width/height ratio below which an image is
	// assumed to be a rotated portrait scan and turned back to landscape.
	tallAspect = 0.6
)

// PrepareImage normalizes an image for local recognition: decode,
// grayscale, rotate extreme portrait scans back to landscape, and upscale
// small images. The result is re-encoded as PNG.
func PrepareImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	gray := toGray(img)

	if b := gray.Bounds(); float64(b.Dx())/float64(b.Dy()) < tallAspect {
		gray = rotate90(gray)
	}

	if gray.Bounds().Dx() < minRecognitionWidth {
		gray = upscale(gray, 2)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// rotate90 rotates the image a quarter turn clockwise.
func rotate90(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetGray(b.Max.Y-1-y, x-b.Min.X, src.GrayAt(x, y))
		}
	}
	return dst
}

func upscale(src *image.Gray, factor int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
