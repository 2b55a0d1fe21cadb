package commands

import (
	"fmt"

	"github.com/szuyu2308/Tool-Simulator/engine"
	"github.com/szuyu2308/Tool-Simulator/script"
)

// RunRequest names the script file and the targets to run it on. An empty
// target list means every connected target.
type RunRequest struct {
	ScriptPath string   `json:"scriptPath"`
	Targets    []string `json:"targets,omitempty"`
}

// RunCommand runs the script to completion on every requested target and
// returns the per-target reports.
func RunCommand(req RunRequest) *CommandResponse {
	s, err := script.Load(req.ScriptPath)
	if err != nil {
		return NewErrorResponse(err)
	}

	serials := req.Targets
	if len(serials) == 0 {
		targets, err := Manager().Registry().All()
		if err != nil {
			return NewErrorResponse(err)
		}
		for _, t := range targets {
			serials = append(serials, t.Serial())
		}
	}
	if len(serials) == 0 {
		return NewErrorResponse(fmt.Errorf("no connected targets"))
	}

	reports, err := Manager().Run(s, serials, engine.Config{})
	if err != nil {
		return NewErrorResponse(err)
	}

	for _, r := range reports {
		if r.Failed() {
			resp := NewSuccessResponse(reports)
			resp.Status = "error"
			resp.Error = fmt.Sprintf("target %s: %s", r.Target, r.LastError)
			return resp
		}
	}
	return NewSuccessResponse(reports)
}
