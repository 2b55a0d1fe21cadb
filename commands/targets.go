package commands

import (
	"github.com/szuyu2308/Tool-Simulator/devices"
)

// TargetsCommand lists the connected targets.
func TargetsCommand() *CommandResponse {
	targets, err := Manager().Registry().All()
	if err != nil {
		return NewErrorResponse(err)
	}
	return NewSuccessResponse(devices.TargetInfoList(targets))
}
