package types

// Resolution is a target display's logical resolution in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Unresolved reports whether the resolution could not be determined.
func (r Resolution) Unresolved() bool {
	return r.Width <= 0 || r.Height <= 0
}

// TargetInfo represents the JSON-friendly description of one addressable target.
type TargetInfo struct {
	Serial string `json:"serial"`
	Name   string `json:"name"`
	Type   string `json:"type"` // "emulator" or "real"
	State  string `json:"state"`
}
