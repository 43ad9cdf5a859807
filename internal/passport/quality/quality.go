// Package quality inspects submitted passport photos and reports photometric
// diagnostics. It deliberately never rejects an image: travelers photograph
// passports in hotel rooms and airport queues, and a false rejection costs
// more than a failed recognition attempt. Decode failures therefore produce a
// valid result with zeroed metadata.
package quality

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

// Config holds the photometric cutoffs. Values are wired from the service
// configuration rather than hard-coded so operations can retune them without
// a rebuild.
type Config struct {
	// DarkPixelCutoff is the luminance below which a pixel counts as dark.
	DarkPixelCutoff float64
	// BrightPixelCutoff is the luminance above which a pixel counts as
	// overexposed.
	BrightPixelCutoff float64
}

// Analyzer computes image diagnostics for audit entries.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze decodes the image and reports dimensions, format and brightness
// statistics. It always returns IsValid true. An undecodable payload yields
// a valid result with format "unknown" and a diagnostic issue so the audit
// trail still records what was received.
func (a *Analyzer) Analyze(data []byte) domain.ImageDiagnostics {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.ImageDiagnostics{
			IsValid: true,
			Format:  "unknown",
			Issues:  []string{fmt.Sprintf("decode failed: %v", err)},
		}
	}

	diag := domain.ImageDiagnostics{
		IsValid: true,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Format:  format,
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		diag.Issues = append(diag.Issues, fmt.Sprintf("pixel decode failed: %v", err))
		return diag
	}

	mean, darkRatio, brightRatio := luminanceStats(img, a.cfg.DarkPixelCutoff, a.cfg.BrightPixelCutoff)
	diag.MeanBrightness = mean
	diag.DarkRatio = darkRatio
	diag.OverexposeRatio = brightRatio

	if darkRatio > 0.8 {
		diag.Issues = append(diag.Issues, "image is mostly dark")
	}
	if brightRatio > 0.8 {
		diag.Issues = append(diag.Issues, "image is mostly overexposed")
	}

	return diag
}

// luminanceStats walks every pixel once and returns the mean luminance in
// the 0..255 range plus the ratios of pixels below darkCutoff and above
// brightCutoff.
func luminanceStats(img image.Image, darkCutoff, brightCutoff float64) (mean, darkRatio, brightRatio float64) {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0, 0, 0
	}

	var sum float64
	var dark, bright int

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, scaled from 16-bit channels to 0..255.
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			sum += lum
			if lum < darkCutoff {
				dark++
			}
			if lum > brightCutoff {
				bright++
			}
		}
	}

	return sum / float64(total), float64(dark) / float64(total), float64(bright) / float64(total)
}
