package document

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Image is an embedded raster. JPEG data passes through untouched
// (DCTDecode); PNG data is decoded into raw RGB samples with an
// optional alpha soft mask.
type Image struct {
	Width  int
	Height int

	jpegData []byte // DCTDecode passthrough when non-nil
	rgb      []byte // 8-bit RGB samples otherwise
	alpha    []byte // 8-bit soft mask; nil when fully opaque
}

// EmbedJPEG registers a JPEG for drawing. The compressed data is kept
// as-is and wrapped in a DCTDecode stream at save time.
func (d *Document) EmbedJPEG(data []byte) (*Image, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return &Image{
		Width:    cfg.Width,
		Height:   cfg.Height,
		jpegData: append([]byte(nil), data...),
	}, nil
}

// EmbedPNG decodes a PNG into raw samples for embedding. Transparency
// becomes a soft mask.
func (d *Document) EmbedPNG(data []byte) (*Image, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return imageFromRaster(src), nil
}

func imageFromRaster(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		o := i * 4
		rgb = append(rgb, nrgba.Pix[o], nrgba.Pix[o+1], nrgba.Pix[o+2])
		a := nrgba.Pix[o+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}
	img := &Image{Width: w, Height: h, rgb: rgb}
	if hasAlpha {
		img.alpha = alpha
	}
	return img
}

// FitRaster downsamples src so that neither dimension exceeds the given
// maximum, using Catmull-Rom resampling. Rasters already within bounds
// are returned unchanged.
func FitRaster(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if (maxWidth <= 0 || w <= maxWidth) && (maxHeight <= 0 || h <= maxHeight) {
		return src
	}
	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if maxWidth <= 0 || (maxHeight > 0 && scaleH < scaleW) {
		scale = scaleH
	}
	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

// EmbedRaster registers an already-decoded raster, used after
// resampling oversized signature captures.
func (d *Document) EmbedRaster(src image.Image) *Image {
	return imageFromRaster(src)
}
