package commands

import (
	"github.com/szuyu2308/Tool-Simulator/script"
)

// ValidateResponse summarizes a script that passed construction.
type ValidateResponse struct {
	Commands      int      `json:"commands"`
	MaxIterations int      `json:"maxIterations"`
	Labels        []string `json:"labels,omitempty"`
}

// ValidateCommand loads a script file and reports its shape. Construction
// already enforces name uniqueness, label resolution, field ranges and
// expression syntax, so a successful load means the script is runnable.
func ValidateCommand(path string) *CommandResponse {
	s, err := script.Load(path)
	if err != nil {
		return NewErrorResponse(err)
	}

	labels := make([]string, 0, len(s.Sequence))
	for _, cmd := range s.Sequence {
		labels = append(labels, cmd.Name)
	}

	return NewSuccessResponse(ValidateResponse{
		Commands:      s.Len(),
		MaxIterations: s.MaxIterations,
		Labels:        labels,
	})
}
