// Package engine runs scripts against targets: one worker per target, a
// cooperative pause/stop state machine, and the coordinate scaling layer
// between the script's logical space and the target's physical surface.
package engine

import (
	"math"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/types"
)

// Mapper converts logical script coordinates into physical surface
// coordinates. Scale factors are recomputed only when an input changes,
// and inputs outside the logical bounds are rejected, never clamped.
type Mapper struct {
	logical types.Resolution
	surface types.Size
	origin  types.Point

	scaleX float64
	scaleY float64
}

// NewMapper creates a mapper for the given logical resolution and observed
// physical surface. origin is the surface's top-left in the addressable
// space.
func NewMapper(logical types.Resolution, surface types.Size, origin types.Point) *Mapper {
	m := &Mapper{}
	m.Update(logical, surface, origin)
	return m
}

// Update recomputes the scale factors if either the logical resolution or
// the surface geometry changed.
func (m *Mapper) Update(logical types.Resolution, surface types.Size, origin types.Point) {
	if m.logical == logical && m.surface == surface && m.origin == origin && m.scaleX != 0 {
		return
	}
	m.logical = logical
	m.surface = surface
	m.origin = origin
	m.scaleX = float64(surface.Width) / float64(logical.Width)
	m.scaleY = float64(surface.Height) / float64(logical.Height)
}

// Scale returns the current scale factors.
func (m *Mapper) Scale() (float64, float64) {
	return m.scaleX, m.scaleY
}

// Logical returns the logical resolution the mapper scales from.
func (m *Mapper) Logical() types.Resolution {
	return m.logical
}

// LocalToScreen maps a logical point to physical coordinates. The logical
// bounds are half-open: 0 <= x < width, 0 <= y < height.
func (m *Mapper) LocalToScreen(x, y int) (int, int, error) {
	if x < 0 || x >= m.logical.Width || y < 0 || y >= m.logical.Height {
		return 0, 0, core.ErrOutOfRange.WithMessagef(
			"local coordinate (%d,%d) outside logical bounds %dx%d", x, y, m.logical.Width, m.logical.Height)
	}
	sx := m.origin.X + int(math.Round(float64(x)*m.scaleX))
	sy := m.origin.Y + int(math.Round(float64(y)*m.scaleY))
	return sx, sy, nil
}

// ScreenToLocal maps a physical point back into logical coordinates, for
// reporting scan hits in the space scripts are written in.
func (m *Mapper) ScreenToLocal(sx, sy int) (int, int) {
	x := int(math.Round(float64(sx-m.origin.X) / m.scaleX))
	y := int(math.Round(float64(sy-m.origin.Y) / m.scaleY))
	return x, y
}

// RegionToScreen maps a logical region to physical surface coordinates.
// The exclusive corner may sit on the logical bounds.
func (m *Mapper) RegionToScreen(r types.Rect) (types.Rect, error) {
	if r.X1 < 0 || r.Y1 < 0 || r.X2 > m.logical.Width || r.Y2 > m.logical.Height || r.Empty() {
		return types.Rect{}, core.ErrOutOfRange.WithMessagef(
			"region (%d,%d)-(%d,%d) outside logical bounds %dx%d",
			r.X1, r.Y1, r.X2, r.Y2, m.logical.Width, m.logical.Height)
	}
	return types.Rect{
		X1: m.origin.X + int(math.Round(float64(r.X1)*m.scaleX)),
		Y1: m.origin.Y + int(math.Round(float64(r.Y1)*m.scaleY)),
		X2: m.origin.X + int(math.Round(float64(r.X2)*m.scaleX)),
		Y2: m.origin.Y + int(math.Round(float64(r.Y2)*m.scaleY)),
	}, nil
}
