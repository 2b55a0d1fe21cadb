package types

import "fmt"

// Point is a coordinate pair in either logical or physical space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size represents width and height dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect is a rectangular region, x2/y2 exclusive.
type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the horizontal extent of the rect.
func (r Rect) Width() int { return r.X2 - r.X1 }

// Height returns the vertical extent of the rect.
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether the rect covers no pixels.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
