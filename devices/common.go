package devices

import (
	"github.com/szuyu2308/Tool-Simulator/types"
)

// Target is the device collaborator consumed by the execution engine. All
// coordinates it receives are physical: the engine performs logical-to-
// physical scaling before dispatch, never the target.
type Target interface {
	Serial() string
	Name() string
	Type() string // "emulator" or "real"

	Tap(x, y int) error
	DoubleTap(x, y int) error
	LongPress(x, y int) error
	Scroll(x, y, delta int) error
	KeyPress(key string) error
	KeyCombo(keys []string, simultaneous bool) error
	InputText(text string) error
	Screenshot() ([]byte, error)
}

// ListTargets returns the addressable targets currently visible to adb.
func ListTargets(adb *Adb) ([]Target, error) {
	return listAdbTargets(adb)
}

// TargetInfoList converts targets into their JSON-friendly descriptions.
func TargetInfoList(targets []Target) []types.TargetInfo {
	infos := make([]types.TargetInfo, len(targets))
	for i, t := range targets {
		infos[i] = types.TargetInfo{
			Serial: t.Serial(),
			Name:   t.Name(),
			Type:   t.Type(),
			State:  "online",
		}
	}
	return infos
}
