package engine

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/types"
)

// solidImage fills a frame with base and plants spots of a second color.
func solidImage(w, h int, base color.RGBA, spots map[image.Point]color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, base)
		}
	}
	for p, c := range spots {
		img.SetRGBA(p.X, p.Y, c)
	}
	return img
}

var (
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

func TestScanExactFindsFirstMatch(t *testing.T) {
	img := solidImage(100, 100, white, map[image.Point]color.RGBA{
		{X: 40, Y: 30}: red,
		{X: 80, Y: 90}: red,
	})

	hit, found := scanRegion(img, types.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, types.RGB{R: 255}, 0, script.ScanExact)
	require.True(t, found)
	assert.Equal(t, 40, hit.X)
	assert.Equal(t, 30, hit.Y)
	assert.Equal(t, 1.0, hit.Confidence)
}

func TestScanExactRespectsRegion(t *testing.T) {
	img := solidImage(100, 100, white, map[image.Point]color.RGBA{
		{X: 40, Y: 30}: red,
	})

	_, found := scanRegion(img, types.Rect{X1: 50, Y1: 50, X2: 100, Y2: 100}, types.RGB{R: 255}, 0, script.ScanExact)
	assert.False(t, found)
}

func TestScanToleranceIsPerChannel(t *testing.T) {
	// off-red: each channel within 10 of the target
	offRed := color.RGBA{250, 8, 5, 255}
	img := solidImage(50, 50, white, map[image.Point]color.RGBA{
		{X: 25, Y: 25}: offRed,
	})
	target := types.RGB{R: 255, G: 0, B: 0}

	_, found := scanRegion(img, types.Rect{X1: 0, Y1: 0, X2: 50, Y2: 50}, target, 10, script.ScanExact)
	assert.True(t, found)

	// tolerance 7 fails on the green channel even though the sum is small
	_, found = scanRegion(img, types.Rect{X1: 0, Y1: 0, X2: 50, Y2: 50}, target, 7, script.ScanExact)
	assert.False(t, found)
}

func TestScanMaxMatchPicksClosestPixel(t *testing.T) {
	img := solidImage(60, 60, white, map[image.Point]color.RGBA{
		{X: 10, Y: 10}: {200, 40, 40, 255},
		{X: 50, Y: 50}: {250, 5, 5, 255},
	})

	hit, found := scanRegion(img, types.Rect{X1: 0, Y1: 0, X2: 60, Y2: 60}, types.RGB{R: 255}, 15, script.ScanMaxMatch)
	require.True(t, found)
	assert.Equal(t, 50, hit.X)
	assert.Equal(t, 50, hit.Y)
}

func TestScanMaxMatchStillHonorsTolerance(t *testing.T) {
	img := solidImage(30, 30, white, nil)

	// closest pixel is plain white, far outside tolerance for red
	_, found := scanRegion(img, types.Rect{X1: 0, Y1: 0, X2: 30, Y2: 30}, types.RGB{R: 255}, 20, script.ScanMaxMatch)
	assert.False(t, found)
}

func TestScanGridSamplesOnStride(t *testing.T) {
	// spot on a stride point is found, spot between stride points is not
	onGrid := solidImage(100, 100, white, map[image.Point]color.RGBA{
		{X: 20, Y: 30}: red,
	})
	hit, found := scanRegion(onGrid, types.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, types.RGB{R: 255}, 0, script.ScanGrid)
	require.True(t, found)
	assert.Equal(t, 20, hit.X)
	assert.Equal(t, 30, hit.Y)

	offGrid := solidImage(100, 100, white, map[image.Point]color.RGBA{
		{X: 23, Y: 37}: red,
	})
	_, found = scanRegion(offGrid, types.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, types.RGB{R: 255}, 0, script.ScanGrid)
	assert.False(t, found)
}

func TestScanRegionOutsideImage(t *testing.T) {
	img := solidImage(10, 10, white, nil)
	_, found := scanRegion(img, types.Rect{X1: 50, Y1: 50, X2: 60, Y2: 60}, types.RGB{R: 255}, 255, script.ScanExact)
	assert.False(t, found)
}

func TestRegionDivergence(t *testing.T) {
	a := solidImage(20, 20, white, nil)
	b := solidImage(20, 20, white, nil)
	region := types.Rect{X1: 0, Y1: 0, X2: 20, Y2: 20}

	assert.Equal(t, 0.0, regionDivergence(a, b, region))

	// black vs white diverges maximally
	black := solidImage(20, 20, color.RGBA{0, 0, 0, 255}, nil)
	assert.InDelta(t, 1.0, regionDivergence(a, black, region), 0.001)

	// a quarter of the region changed
	c := solidImage(20, 20, white, nil)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	assert.InDelta(t, 0.25, regionDivergence(a, c, region), 0.001)
}
