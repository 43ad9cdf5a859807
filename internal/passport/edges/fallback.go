package edges

import (
	"fmt"
	"image"
	"math/rand"
)

// fallback is the secondary phase: a brightness sanity check followed by
// random pixel-pair contrast sampling. A photo of a document has frequent
// sharp brightness transitions between print and paper; a photo of a wall
// or a pocket does not. The fallback cannot localize sides, so an accepting
// result reports all four as visible.
func (d *Detector) fallback(working *image.NRGBA) (Result, error) {
	bounds := working.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	total := w * h
	if total == 0 {
		return Result{}, errTooSmall
	}

	var sum float64
	var dark, bright int
	brightnessAt := func(i int) float64 {
		p := working.Pix[i*4:]
		return (float64(p[0]) + float64(p[1]) + float64(p[2])) / 3
	}

	for i := 0; i < total; i++ {
		b := brightnessAt(i)
		sum += b
		if b < d.cfg.FallbackDarkCutoff {
			dark++
		}
		if b > d.cfg.FallbackBrightCutoff {
			bright++
		}
	}

	mean := sum / float64(total)
	darkRatio := float64(dark) / float64(total)
	brightRatio := float64(bright) / float64(total)

	switch {
	case mean < d.cfg.FallbackMinMean:
		return Result{Message: "image too dark, please retake in better light"}, nil
	case brightRatio > d.cfg.FallbackMaxBright:
		return Result{Message: "image overexposed, please avoid direct glare"}, nil
	case darkRatio > d.cfg.FallbackMaxDark:
		return Result{Message: "image too dark, please add light or change the angle"}, nil
	}

	samples := d.cfg.ContrastSamples
	if limit := total / 10; limit < samples {
		samples = limit
	}
	if samples < 1 {
		return Result{}, errTooSmall
	}

	transitions := 0
	for i := 0; i < samples; i++ {
		idx := rand.Intn(total - 1)
		if diff := brightnessAt(idx) - brightnessAt(idx + 1); diff > d.cfg.ContrastDelta || diff < -d.cfg.ContrastDelta {
			transitions++
		}
	}

	if float64(transitions) > float64(samples)*d.cfg.MinTransitionRatio {
		return Result{
			HasCompleteEdges: true,
			Message:          fmt.Sprintf("document features detected (%d/%d contrast transitions)", transitions, samples),
			Edges:            allSides(),
		}, nil
	}

	return Result{
		Message: "image may not be a passport information page, please check and retake",
	}, nil
}
