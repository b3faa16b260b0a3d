// Package imaging shrinks images before upload.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var (
	ErrDecode          = errors.New("image decode failed")
	ErrUnsupportedType = errors.New("unsupported output type")
)

// File is an in-memory image file.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

type Options struct {
	MaxWidth  int
	MaxHeight int
	// Quality is the JPEG quality in 0..1. Ignored for PNG.
	Quality  float64
	MimeType string
}

func DefaultOptions() Options {
	return Options{MaxWidth: 1920, MaxHeight: 1080, Quality: 0.8, MimeType: MimeJPEG}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxWidth <= 0 {
		o.MaxWidth = d.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = d.MaxHeight
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = d.Quality
	}
	if o.MimeType == "" {
		o.MimeType = d.MimeType
	}
	return o
}

// Fit scales w x h down to fit inside maxW x maxH keeping the aspect ratio.
// Images already inside the bounds are returned unchanged.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := clamp(int(math.Round(float64(w)*ratio)), 1, maxW)
	nh := clamp(int(math.Round(float64(h)*ratio)), 1, maxH)
	return nw, nh
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Compress decodes f, shrinks it to fit the bounds in opts and re-encodes it
// as opts.MimeType. The input is not modified.
func Compress(ctx context.Context, f *File, opts Options) (*File, error) {
	opts = opts.withDefaults()
	if opts.MimeType != MimeJPEG && opts.MimeType != MimePNG {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, opts.MimeType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, f.Name, err)
	}

	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)
	img := src
	if w != b.Dx() || h != b.Dy() {
		img = resize.Resize(uint(w), uint(h), src, resize.Lanczos3)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch opts.MimeType {
	case MimeJPEG:
		q := clamp(int(math.Round(opts.Quality*100)), 1, 100)
		err = jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: q})
	case MimePNG:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", opts.MimeType, err)
	}

	return &File{Name: renameExt(f.Name, opts.MimeType), MimeType: opts.MimeType, Data: buf.Bytes()}, nil
}

// flatten draws img over white so transparent areas do not turn black in JPEG.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func renameExt(name, mime string) string {
	ext := ".jpg"
	if mime == MimePNG {
		ext = ".png"
	}
	if name == "" {
		return "image" + ext
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
