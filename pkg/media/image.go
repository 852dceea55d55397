package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage marks raw bytes that no registered decoder understands.
// Retrying such a job cannot succeed.
var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// MaxSourcePixels caps the declared width x height of a raw upload. The header
// is checked before any pixel data is decoded.
const MaxSourcePixels = 50_000_000

type (
	// Tier is one derived artifact size.
	Tier struct {
		MaxWidth int
		Quality  int
	}

	DerivedImages struct {
		Thumbnail []byte
		Main      []byte
	}

	ImageDeriver interface {
		Derive(raw []byte) (DerivedImages, error)
	}

	jpegDeriver struct {
		thumb     Tier
		main      Tier
		maxPixels int64
	}
)

var (
	ThumbnailTier = Tier{MaxWidth: 400, Quality: 80}
	MainTier      = Tier{MaxWidth: 1200, Quality: 82}
)

func NewImageDeriver() ImageDeriver {
	return &jpegDeriver{thumb: ThumbnailTier, main: MainTier, maxPixels: MaxSourcePixels}
}

func (d *jpegDeriver) Derive(raw []byte) (DerivedImages, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return DerivedImages{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > d.maxPixels {
		return DerivedImages{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, d.maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return DerivedImages{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	thumb, err := encodeTier(src, d.thumb)
	if err != nil {
		return DerivedImages{}, fmt.Errorf("thumbnail: %w", err)
	}
	main, err := encodeTier(src, d.main)
	if err != nil {
		return DerivedImages{}, fmt.Errorf("main image: %w", err)
	}
	return DerivedImages{Thumbnail: thumb, Main: main}, nil
}

func encodeTier(src image.Image, tier Tier) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resize(src, tier.MaxWidth), &jpeg.Options{Quality: tier.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// resize scales src down to maxWidth keeping the aspect ratio. Narrower
// sources keep their size. Transparent pixels are flattened onto white.
func resize(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxWidth {
		h = int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
		if h < 1 {
			h = 1
		}
		w = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
