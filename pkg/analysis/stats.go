package analysis

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"skinscraper/pkg/logger"
	"skinscraper/pkg/storage"
)

// Stats describes the visible pixels of one image
type Stats struct {
	Index      int     `json:"index"`
	Brightness float64 `json:"brightness"`
	Variance   float64 `json:"variance"`
	Hue        float64 `json:"hue"`
	Pixels     int     `json:"pixels"`
}

// ComputeStats measures brightness, brightness variance and mean hue over
// every pixel with non-zero alpha.
func ComputeStats(img image.Image) Stats {
	var (
		n            int
		sum, sumSq   float64
		sinSum       float64
		cosSum       float64
		chromaPixels int
	)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			v := (float64(c.R) + float64(c.G) + float64(c.B)) / 3
			sum += v
			sumSq += v * v
			n++

			if h, ok := hue(c); ok {
				rad := h * math.Pi / 180
				sinSum += math.Sin(rad)
				cosSum += math.Cos(rad)
				chromaPixels++
			}
		}
	}

	s := Stats{Pixels: n}
	if n == 0 {
		return s
	}
	mean := sum / float64(n)
	s.Brightness = mean
	s.Variance = math.Max(0, sumSq/float64(n)-mean*mean)
	if chromaPixels > 0 {
		s.Hue = normalizeDegrees(math.Atan2(sinSum, cosSum) * 180 / math.Pi)
	}
	return s
}

// hue returns the HSV hue in degrees, false for grey pixels
func hue(c color.NRGBA) (float64, bool) {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	d := maxC - minC
	if d == 0 {
		return 0, false
	}

	var h float64
	switch maxC {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return normalizeDegrees(h * 60), true
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	// rounding can land exactly on 360
	if d >= 360 {
		d = 0
	}
	return d
}

// AnalyzeDir decodes every stored image in dir and computes its stats.
// Images that fail to decode are logged and left out.
func AnalyzeDir(ctx context.Context, dir string, workers int, log logger.Logger) ([]Stats, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if workers <= 0 {
		workers = 1
	}

	images, err := storage.ListImages(dir)
	if err != nil {
		return nil, err
	}

	results := make([]*Stats, len(images))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, stored := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			img, err := decodePNG(stored.Path)
			if err != nil {
				log.WithError(err).WarnWithFields("Image not analyzed", map[string]interface{}{
					"index": stored.Index,
					"path":  stored.Path,
				})
				return nil
			}

			s := ComputeStats(img)
			s.Index = stored.Index

			results[i] = &s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := make([]Stats, 0, len(results))
	for _, s := range results {
		if s != nil {
			stats = append(stats, *s)
		}
	}
	return stats, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Summary aggregates stats across images
type Summary struct {
	Count          int
	MeanBrightness float64
	MinBrightness  float64
	MaxBrightness  float64
	MeanVariance   float64
	MeanHue        float64
}

// Summarize averages brightness and variance and takes the circular mean of hues
func Summarize(stats []Stats) Summary {
	s := Summary{Count: len(stats)}
	if len(stats) == 0 {
		return s
	}

	s.MinBrightness = math.Inf(1)
	s.MaxBrightness = math.Inf(-1)
	var sinSum, cosSum float64
	for _, st := range stats {
		s.MeanBrightness += st.Brightness
		s.MeanVariance += st.Variance
		s.MinBrightness = math.Min(s.MinBrightness, st.Brightness)
		s.MaxBrightness = math.Max(s.MaxBrightness, st.Brightness)
		rad := st.Hue * math.Pi / 180
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}
	s.MeanBrightness /= float64(len(stats))
	s.MeanVariance /= float64(len(stats))
	s.MeanHue = normalizeDegrees(math.Atan2(sinSum, cosSum) * 180 / math.Pi)
	return s
}

// Brightnesses extracts the brightness column
func Brightnesses(stats []Stats) []float64 {
	out := make([]float64, len(stats))
	for i, s := range stats {
		out[i] = s.Brightness
	}
	return out
}
