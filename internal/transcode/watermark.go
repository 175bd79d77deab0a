package transcode

import (
	"fmt"
	"math"
)

// Corner is where the logo sits in the frame.
type Corner string

const (
	BottomRight Corner = "bottom-right"
	BottomLeft  Corner = "bottom-left"
	TopRight    Corner = "top-right"
	TopLeft     Corner = "top-left"
)

// Region is a rectangle inside the frame.
type Region struct {
	X, Y, W, H int
}

// LogoRegion returns the square covering the logo: its side is ratio of the
// shorter frame dimension and it is inset from the two nearest edges.
func LogoRegion(frame Dimensions, corner Corner, ratio float64, inset int) Region {
	side := int(math.Round(ratio * float64(min(frame.Width, frame.Height))))
	side = max(1, min(side, frame.Width-2*inset-1, frame.Height-2*inset-1))

	r := Region{X: inset, Y: inset, W: side, H: side}
	if corner == BottomRight || corner == TopRight {
		r.X = frame.Width - side - inset
	}
	if corner == BottomRight || corner == BottomLeft {
		r.Y = frame.Height - side - inset
	}
	r.X, r.Y = max(0, r.X), max(0, r.Y)
	return r
}

func (r Region) delogo() string {
	return fmt.Sprintf("delogo=x=%d:y=%d:w=%d:h=%d:show=0", r.X, r.Y, r.W, r.H)
}

// stripCrop returns the crop filter that removes the horizontal strip
// holding the region, and the frame left after it. ok is false when
// nothing would remain.
func stripCrop(frame Dimensions, corner Corner, r Region, inset int) (string, Dimensions, bool) {
	strip := r.H + inset
	height := (frame.Height - strip) &^ 1
	if height <= 0 {
		return "", Dimensions{}, false
	}
	width := frame.Width &^ 1
	y := 0
	if corner == TopRight || corner == TopLeft {
		y = frame.Height - height
	}
	return fmt.Sprintf("crop=%d:%d:0:%d", width, height, y), Dimensions{Width: width, Height: height}, true
}
