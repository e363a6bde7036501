package analysis

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"skinscraper/pkg/logger"
	"skinscraper/pkg/storage"
)

// Region copies one rectangle of the sprite sheet to a point on the template
type Region struct {
	Name string
	Src  image.Rectangle
	Dst  image.Point
	Flip bool
}

// Layout is the fixed crop table for a sprite sheet format
type Layout struct {
	Width      int
	Height     int
	Background color.NRGBA
	Base       []Region
	Overlay    []Region
}

// DefaultLayout crops the front faces of a 64x64 skin
var DefaultLayout = Layout{
	Width:      16,
	Height:     32,
	Background: color.NRGBA{R: 0xD8, G: 0xD8, B: 0xD8, A: 0xFF},
	Base: []Region{
		{Name: "head", Src: image.Rect(8, 8, 16, 16), Dst: image.Pt(4, 0)},
		{Name: "torso", Src: image.Rect(20, 20, 28, 32), Dst: image.Pt(4, 8)},
		{Name: "right_arm", Src: image.Rect(44, 20, 48, 32), Dst: image.Pt(0, 8)},
		{Name: "left_arm", Src: image.Rect(36, 52, 40, 64), Dst: image.Pt(12, 8)},
		{Name: "right_leg", Src: image.Rect(4, 20, 8, 32), Dst: image.Pt(4, 20)},
		{Name: "left_leg", Src: image.Rect(20, 52, 24, 64), Dst: image.Pt(8, 20)},
	},
	Overlay: []Region{
		{Name: "hat", Src: image.Rect(40, 8, 48, 16), Dst: image.Pt(4, 0)},
	},
}

// LegacyLayout crops a 64x32 skin, mirroring the right limbs for the left side
var LegacyLayout = Layout{
	Width:      16,
	Height:     32,
	Background: DefaultLayout.Background,
	Base: []Region{
		{Name: "head", Src: image.Rect(8, 8, 16, 16), Dst: image.Pt(4, 0)},
		{Name: "torso", Src: image.Rect(20, 20, 28, 32), Dst: image.Pt(4, 8)},
		{Name: "right_arm", Src: image.Rect(44, 20, 48, 32), Dst: image.Pt(0, 8)},
		{Name: "left_arm", Src: image.Rect(44, 20, 48, 32), Dst: image.Pt(12, 8), Flip: true},
		{Name: "right_leg", Src: image.Rect(4, 20, 8, 32), Dst: image.Pt(4, 20)},
		{Name: "left_leg", Src: image.Rect(4, 20, 8, 32), Dst: image.Pt(8, 20), Flip: true},
	},
	Overlay: DefaultLayout.Overlay,
}

// LayoutFor picks the layout matching the sprite sheet dimensions
func LayoutFor(img image.Image) (Layout, error) {
	b := img.Bounds()
	switch {
	case b.Dx() == 64 && b.Dy() == 64:
		return DefaultLayout, nil
	case b.Dx() == 64 && b.Dy() == 32:
		return LegacyLayout, nil
	default:
		return Layout{}, fmt.Errorf("unsupported skin size %dx%d", b.Dx(), b.Dy())
	}
}

// Preview composites the layout's regions onto the template and scales the
// result by an integer factor using nearest neighbour.
func Preview(img image.Image, layout Layout, scale int) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}

	origin := img.Bounds().Min
	for _, r := range append(append([]Region{}, layout.Base...), layout.Overlay...) {
		if !r.Src.Add(origin).In(img.Bounds()) {
			return nil, fmt.Errorf("region %s %v outside image bounds %v", r.Name, r.Src, img.Bounds())
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, layout.Width, layout.Height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: layout.Background}, image.Point{}, draw.Src)

	for _, r := range layout.Base {
		paste(canvas, img, r, origin)
	}
	for _, r := range layout.Overlay {
		paste(canvas, img, r, origin)
	}

	return scaleNearest(canvas, scale), nil
}

func paste(dst *image.RGBA, src image.Image, r Region, origin image.Point) {
	src = crop(src, r.Src.Add(origin), r.Flip)
	target := image.Rectangle{Min: r.Dst, Max: r.Dst.Add(r.Src.Size())}
	draw.Draw(dst, target, src, src.Bounds().Min, draw.Over)
}

func crop(src image.Image, rect image.Rectangle, flip bool) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			sx := rect.Min.X + x
			if flip {
				sx = rect.Max.X - 1 - x
			}
			out.Set(x, y, src.At(sx, rect.Min.Y+y))
		}
	}
	return out
}

func scaleNearest(src *image.RGBA, scale int) *image.RGBA {
	if scale == 1 {
		return src
	}
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := 0; y < out.Bounds().Dy(); y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			out.Set(x, y, src.At(b.Min.X+x/scale, b.Min.Y+y/scale))
		}
	}
	return out
}

// Histogram draws a bar chart of values over 0..255
func Histogram(values []float64, bins, width, height int) *image.RGBA {
	if bins <= 0 {
		bins = 32
	}
	if width < bins {
		width = bins * 8
	}
	if height <= 0 {
		height = 200
	}

	counts := make([]int, bins)
	peak := 0
	for _, v := range values {
		i := int(v / 256 * float64(bins))
		if i < 0 {
			i = 0
		}
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
		if counts[i] > peak {
			peak = counts[i]
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if peak == 0 {
		return img
	}

	bar := color.RGBA{R: 0x3A, G: 0x6E, B: 0xA5, A: 0xFF}
	barWidth := width / bins
	for i, c := range counts {
		h := c * height / peak
		rect := image.Rect(i*barWidth, height-h, (i+1)*barWidth-1, height)
		draw.Draw(img, rect, &image.Uniform{C: bar}, image.Point{}, draw.Src)
	}
	return img
}

// WritePNG encodes img to path, creating parent directories
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// WritePreviews renders <index>.png previews for every stored image in dir.
// Images that cannot be decoded or have an unknown layout are logged and skipped.
func WritePreviews(ctx context.Context, dir, outDir string, scale, workers int, log logger.Logger) (int, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if workers <= 0 {
		workers = 1
	}

	images, err := storage.ListImages(dir)
	if err != nil {
		return 0, err
	}

	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, stored := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			img, err := decodePNG(stored.Path)
			if err == nil {
				var layout Layout
				if layout, err = LayoutFor(img); err == nil {
					var preview *image.RGBA
					if preview, err = Preview(img, layout, scale); err == nil {
						err = WritePNG(filepath.Join(outDir, filepath.Base(stored.Path)), preview)
					}
				}
			}
			if err != nil {
				log.WithError(err).WarnWithFields("Preview not written", map[string]interface{}{
					"index": stored.Index,
				})
				return nil
			}
			written.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(written.Load()), err
	}
	return int(written.Load()), nil
}
