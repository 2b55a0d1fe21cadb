package script

import (
	"encoding/json"
	"fmt"
	"os"
)

// FormatVersion is the persisted document version this build reads and
// writes.
const FormatVersion = 1

// document is the persisted script form. Marshaling a Command keeps nested
// Repeat/Condition children inline, so ordering, fields and enabled flags
// round-trip exactly.
type document struct {
	Version        int                    `json:"version"`
	Commands       []*Command             `json:"commands"`
	Variables      map[string]interface{} `json:"variables,omitempty"`
	MaxIterations  int                    `json:"maxIterations,omitempty"`
	OnErrorHandler *Command               `json:"onErrorHandler,omitempty"`
}

// Marshal serializes the script into its versioned document form.
func Marshal(s *Script) ([]byte, error) {
	doc := document{
		Version:        FormatVersion,
		Commands:       s.Sequence,
		Variables:      s.VariablesGlobal,
		MaxIterations:  s.MaxIterations,
		OnErrorHandler: s.OnErrorHandler,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses a versioned document and constructs the script,
// running full construction-time validation.
func Unmarshal(data []byte) (*Script, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse script document: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported script version %d (want %d)", doc.Version, FormatVersion)
	}
	return NewScript(doc.Commands, doc.Variables, doc.MaxIterations, doc.OnErrorHandler)
}

// Load reads and constructs a script from a file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Save writes the script document to a file.
func Save(s *Script, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
