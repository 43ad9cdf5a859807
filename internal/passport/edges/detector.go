// Package edges decides whether a submitted photo shows the full passport
// information page. Detection runs in two phases: a Laplacian edge analysis
// of the border region, and a permissive brightness/contrast fallback when
// the first phase cannot produce a decision. The detector never blocks a
// submission because of its own failures: any internal error maps to accept.
package edges

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// Config carries every heuristic threshold the detector uses. Wired from the
// service configuration, defaults documented there.
type Config struct {
	WorkingWidth         int
	BinarizeThreshold    uint8
	MarginRatio          float64
	MinSideRatio         float64
	MinEdgeDensity       float64
	MinGoodSides         int
	FallbackMinMean      float64
	FallbackMaxBright    float64
	FallbackMaxDark      float64
	FallbackDarkCutoff   float64
	FallbackBrightCutoff float64
	ContrastDelta        float64
	ContrastSamples      int
	MinTransitionRatio   float64
}

// Corners reports which page corners are visible, derived from the adjacent
// sides.
type Corners struct {
	TopLeft     bool `json:"top_left"`
	TopRight    bool `json:"top_right"`
	BottomLeft  bool `json:"bottom_left"`
	BottomRight bool `json:"bottom_right"`
}

// Sides reports per-side edge visibility.
type Sides struct {
	Top     bool    `json:"top"`
	Bottom  bool    `json:"bottom"`
	Left    bool    `json:"left"`
	Right   bool    `json:"right"`
	Corners Corners `json:"corners"`
}

// Result is the detector's decision. HasCompleteEdges false asks the
// traveler to retake the photo; the message explains what was wrong.
type Result struct {
	HasCompleteEdges bool   `json:"has_complete_edges"`
	Message          string `json:"message"`
	Edges            Sides  `json:"edges"`
}

type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

var errTooSmall = errors.New("image too small for edge analysis")

// Detect runs both phases and maps any internal error to an accepting
// result. A broken detector must never stop a traveler from submitting.
func (d *Detector) Detect(data []byte) Result {
	res, err := d.detect(data)
	if err != nil {
		return Result{
			HasCompleteEdges: true,
			Message:          "edge detection unavailable, image accepted",
			Edges:            allSides(),
		}
	}
	return res
}

func (d *Detector) detect(data []byte) (Result, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, err
	}

	working := d.downscale(img)

	if res, err := d.analyzeBorder(working); err == nil {
		return res, nil
	}

	return d.fallback(working)
}

// downscale bounds the working image to the configured width. Small images
// are left alone.
func (d *Detector) downscale(img image.Image) *image.NRGBA {
	if img.Bounds().Dx() > d.cfg.WorkingWidth {
		return imaging.Resize(img, d.cfg.WorkingWidth, 0, imaging.Lanczos)
	}
	return imaging.Clone(img)
}

// analyzeBorder is the primary phase: grayscale, contrast stretch, sharpen,
// blur, Laplacian convolution, binarize, then scan the border band of the
// resulting edge map for the four page sides.
func (d *Detector) analyzeBorder(working *image.NRGBA) (Result, error) {
	w, h := working.Bounds().Dx(), working.Bounds().Dy()
	margin := int(float64(min(w, h)) * d.cfg.MarginRatio)
	if margin < 1 {
		return Result{}, errTooSmall
	}

	gray := imaging.Grayscale(working)
	gray = stretchContrast(gray)
	gray = imaging.Sharpen(gray, 1.5)
	gray = imaging.Blur(gray, 1.0)

	laplacian := imaging.Convolve3x3(gray, [9]float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}, nil)

	edgeMap := binarize(laplacian, d.cfg.BinarizeThreshold)

	var top, bottom, left, right, total int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edgeMap[y*w+x] {
				continue
			}
			total++
			inBandX := x >= margin && x < w-margin
			inBandY := y >= margin && y < h-margin
			switch {
			case y < margin && inBandX:
				top++
			case y >= h-margin && inBandX:
				bottom++
			case x < margin && inBandY:
				left++
			case x >= w-margin && inBandY:
				right++
			}
		}
	}

	horizontalBand := float64((w - 2*margin) * margin)
	verticalBand := float64((h - 2*margin) * margin)
	if horizontalBand <= 0 || verticalBand <= 0 {
		return Result{}, errTooSmall
	}

	sides := Sides{
		Top:    float64(top)/horizontalBand > d.cfg.MinSideRatio,
		Bottom: float64(bottom)/horizontalBand > d.cfg.MinSideRatio,
		Left:   float64(left)/verticalBand > d.cfg.MinSideRatio,
		Right:  float64(right)/verticalBand > d.cfg.MinSideRatio,
	}
	sides.Corners = Corners{
		TopLeft:     sides.Top && sides.Left,
		TopRight:    sides.Top && sides.Right,
		BottomLeft:  sides.Bottom && sides.Left,
		BottomRight: sides.Bottom && sides.Right,
	}

	goodSides := 0
	for _, ok := range []bool{sides.Top, sides.Bottom, sides.Left, sides.Right} {
		if ok {
			goodSides++
		}
	}

	density := float64(total) / float64(w*h)
	valid := goodSides >= d.cfg.MinGoodSides || density > d.cfg.MinEdgeDensity

	var message string
	if valid {
		message = fmt.Sprintf("passport edges detected (%d/4 sides, density %.0f%%)", goodSides, density*100)
	} else {
		message = fmt.Sprintf("passport edges unclear (%d/4 sides), please retake with the full page in frame", goodSides)
	}

	return Result{HasCompleteEdges: valid, Message: message, Edges: sides}, nil
}

// stretchContrast remaps luminance to the full 0..255 range. The input is a
// grayscale NRGBA image so only the red channel needs inspecting.
func stretchContrast(gray *image.NRGBA) *image.NRGBA {
	bounds := gray.Bounds()
	lo, hi := uint8(255), uint8(0)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := gray.NRGBAAt(x, y).R
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi <= lo {
		return gray
	}

	span := float64(hi - lo)
	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		v := uint8(float64(c.R-lo) / span * 255)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// binarize flattens the edge image into a bitmap of pixels at or above the
// threshold.
func binarize(img *image.NRGBA, threshold uint8) []bool {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = img.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R >= threshold
		}
	}
	return out
}

func allSides() Sides {
	return Sides{
		Top: true, Bottom: true, Left: true, Right: true,
		Corners: Corners{TopLeft: true, TopRight: true, BottomLeft: true, BottomRight: true},
	}
}
