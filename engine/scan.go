package engine

import (
	"image"

	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/types"
)

// gridStride is the fixed sampling step, in physical pixels, for the Grid
// scan mode. Grid scans visit every gridStride-th pixel row-major and keep
// the best sample.
const gridStride = 10

// ScanHit is a successful color scan, reported in physical coordinates.
type ScanHit struct {
	X          int
	Y          int
	Confidence float64
}

// channelDiff returns the per-channel absolute differences between an
// image pixel and the target color. Image color values are 16-bit
// premultiplied; shifting down gives the 8-bit channel.
func channelDiff(img image.Image, x, y int, target types.RGB) (int, int, int) {
	r, g, b, _ := img.At(x, y).RGBA()
	dr := int(r>>8) - int(target.R)
	dg := int(g>>8) - int(target.G)
	db := int(b>>8) - int(target.B)
	if dr < 0 {
		dr = -dr
	}
	if dg < 0 {
		dg = -dg
	}
	if db < 0 {
		db = -db
	}
	return dr, dg, db
}

// withinTolerance reports whether each channel difference is inside the
// per-channel tolerance.
func withinTolerance(dr, dg, db, tolerance int) bool {
	return dr <= tolerance && dg <= tolerance && db <= tolerance
}

// confidence converts a summed channel distance into a 0-1 score.
func confidence(dr, dg, db int) float64 {
	return 1.0 - float64(dr+dg+db)/(255.0*3.0)
}

// scanRegion searches region (physical coordinates, clipped to the image
// bounds) for the target color.
func scanRegion(img image.Image, region types.Rect, target types.RGB, tolerance int, mode script.ScanMode) (ScanHit, bool) {
	bounds := img.Bounds()
	x1 := max(region.X1, bounds.Min.X)
	y1 := max(region.Y1, bounds.Min.Y)
	x2 := min(region.X2, bounds.Max.X)
	y2 := min(region.Y2, bounds.Max.Y)
	if x1 >= x2 || y1 >= y2 {
		return ScanHit{}, false
	}

	switch mode {
	case script.ScanExact:
		for y := y1; y < y2; y++ {
			for x := x1; x < x2; x++ {
				dr, dg, db := channelDiff(img, x, y, target)
				if withinTolerance(dr, dg, db, tolerance) {
					return ScanHit{X: x, Y: y, Confidence: confidence(dr, dg, db)}, true
				}
			}
		}

	case script.ScanMaxMatch:
		best := ScanHit{}
		bestDist := 1 << 30
		for y := y1; y < y2; y++ {
			for x := x1; x < x2; x++ {
				dr, dg, db := channelDiff(img, x, y, target)
				if dist := dr + dg + db; dist < bestDist {
					bestDist = dist
					best = ScanHit{X: x, Y: y, Confidence: confidence(dr, dg, db)}
				}
			}
		}
		if hitWithin(img, best, target, tolerance) {
			return best, true
		}

	case script.ScanGrid:
		best := ScanHit{}
		bestDist := 1 << 30
		for y := y1; y < y2; y += gridStride {
			for x := x1; x < x2; x += gridStride {
				dr, dg, db := channelDiff(img, x, y, target)
				if dist := dr + dg + db; dist < bestDist {
					bestDist = dist
					best = ScanHit{X: x, Y: y, Confidence: confidence(dr, dg, db)}
				}
			}
		}
		if hitWithin(img, best, target, tolerance) {
			return best, true
		}
	}

	return ScanHit{}, false
}

func hitWithin(img image.Image, hit ScanHit, target types.RGB, tolerance int) bool {
	dr, dg, db := channelDiff(img, hit.X, hit.Y, target)
	return withinTolerance(dr, dg, db, tolerance)
}

// regionDivergence returns the mean normalized per-channel difference
// between the same region of two frames, 0 for identical pixels and 1 for
// maximal difference. Frames of mismatched geometry compare over the
// intersection.
func regionDivergence(a, b image.Image, region types.Rect) float64 {
	ab := a.Bounds().Intersect(b.Bounds())
	x1 := max(region.X1, ab.Min.X)
	y1 := max(region.Y1, ab.Min.Y)
	x2 := min(region.X2, ab.Max.X)
	y2 := min(region.Y2, ab.Max.Y)
	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	var total float64
	var samples int
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			ar, ag, abl, _ := a.At(x, y).RGBA()
			br, bg, bbl, _ := b.At(x, y).RGBA()
			dr := absInt(int(ar>>8) - int(br>>8))
			dg := absInt(int(ag>>8) - int(bg>>8))
			db := absInt(int(abl>>8) - int(bbl>>8))
			total += float64(dr+dg+db) / (255.0 * 3.0)
			samples++
		}
	}
	if samples == 0 {
		return 0
	}
	return total / float64(samples)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
