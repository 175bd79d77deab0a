package transcode

import (
	"fmt"
	"math"
)

// Policy selects how the target resolution is derived.
type Policy string

const (
	// PolicyPreserve keeps the source resolution, rounding odd sides up.
	PolicyPreserve Policy = "preserve"
	// PolicyUpscale raises video below the minimum height to it, keeping
	// the aspect ratio.
	PolicyUpscale Policy = "upscale"
)

// Dimensions is a frame size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Target returns the encode resolution for src. Both sides of the result
// are even.
func Target(policy Policy, src Dimensions, minHeight int) Dimensions {
	if policy == PolicyUpscale && src.Height > 0 && src.Height < minHeight {
		width := int(math.Round(float64(src.Width) * float64(minHeight) / float64(src.Height)))
		return Dimensions{Width: even(width), Height: even(minHeight)}
	}
	return Dimensions{Width: even(src.Width), Height: even(src.Height)}
}

func even(n int) int {
	return n + n%2
}

// scaleFilter renders the scale filter for dst.
func scaleFilter(src, dst Dimensions) string {
	if dst.Height > src.Height {
		return fmt.Sprintf("scale=%d:%d:flags=lanczos+accurate_rnd+full_chroma_int", dst.Width, dst.Height)
	}
	return fmt.Sprintf("scale=%d:%d", dst.Width, dst.Height)
}
