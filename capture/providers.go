// Package capture acquires and caches screen images for targets. Captures
// go through an ordered provider chain, fastest first, and land in a
// short-TTL cache so bursts of pixel work against one target reuse a frame.
package capture

import (
	"bytes"
	"image"
	"time"

	"github.com/szuyu2308/Tool-Simulator/devices"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

// Frame is one captured screen image.
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
	Provider   string
}

// Age returns how old the frame is.
func (f *Frame) Age() time.Duration {
	return time.Since(f.CapturedAt)
}

// Provider is one way of acquiring a screen image from a target.
type Provider interface {
	Name() string
	Capture(target devices.Target) (image.Image, error)
}

// execOutProvider captures through `adb exec-out screencap -p`, the fast
// path: binary-safe, no shell transport in between.
type execOutProvider struct{}

func (execOutProvider) Name() string { return "exec-out" }

func (execOutProvider) Capture(target devices.Target) (image.Image, error) {
	data, err := target.Screenshot()
	if err != nil {
		return nil, err
	}
	return utils.DecodePng(data)
}

// shellProvider captures through `adb shell screencap -p`. Older adb
// transports translate LF to CRLF in shell output; the PNG is repaired
// before decoding.
type shellProvider struct {
	adb *devices.Adb
}

func (shellProvider) Name() string { return "shell" }

func (p shellProvider) Capture(target devices.Target) (image.Image, error) {
	data, err := p.adb.RunDevice(target.Serial(), "shell", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	return utils.DecodePng(repairCRLF(data))
}

// repairCRLF undoes the shell transport's LF-to-CRLF translation. PNG data
// never legitimately depends on 0x0d 0x0a pairs surviving, so the blanket
// replacement is safe.
func repairCRLF(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte{0x0d, 0x0a}, []byte{0x0a})
}

// defaultProviders returns the fallback chain in preference order.
func defaultProviders(adb *devices.Adb) []Provider {
	return []Provider{
		execOutProvider{},
		shellProvider{adb: adb},
	}
}
