package script

import (
	"github.com/szuyu2308/Tool-Simulator/core"
)

// DefaultMaxIterations is the hard safety bound applied when a script does
// not set its own.
const DefaultMaxIterations = 10000

// Script is an ordered command sequence plus its derived indexes. The
// structure is immutable once constructed; only variable values and Enabled
// flags change while a run proceeds.
type Script struct {
	Sequence        []*Command
	VariablesGlobal map[string]interface{}
	MaxIterations   int
	OnErrorHandler  *Command

	arena    map[string]*Command // every command, nested included
	labelMap map[string]string   // top-level name -> id
	nextIdx  map[string]string   // top-level id -> following id
}

// NewScript validates the sequence and builds the id arena, the label map
// and the natural-next index. Any defect — duplicate name, unresolved label,
// invalid field, dangling parent — fails construction with a configuration
// error; nothing is validated again at dispatch time.
func NewScript(sequence []*Command, variablesGlobal map[string]interface{}, maxIterations int, onError *Command) (*Script, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if variablesGlobal == nil {
		variablesGlobal = map[string]interface{}{}
	}

	s := &Script{
		Sequence:        sequence,
		VariablesGlobal: variablesGlobal,
		MaxIterations:   maxIterations,
		OnErrorHandler:  onError,
		arena:           make(map[string]*Command),
		labelMap:        make(map[string]string),
		nextIdx:         make(map[string]string),
	}

	seen := make(map[string]bool)
	for _, cmd := range sequence {
		if err := s.index(cmd, seen); err != nil {
			return nil, err
		}
	}

	// Labels resolve against the top-level sequence only: a jump repositions
	// the run cursor, and the cursor walks top-level ids.
	for i, cmd := range sequence {
		s.labelMap[cmd.Name] = cmd.ID
		if i+1 < len(sequence) {
			s.nextIdx[cmd.ID] = sequence[i+1].ID
		}
	}

	if onError != nil {
		if err := onError.validate(); err != nil {
			return nil, err
		}
		if err := s.checkSubtree(onError); err != nil {
			return nil, err
		}
	}

	for _, cmd := range s.arena {
		if err := s.checkReferences(cmd); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// index validates cmd, registers it and its nested children in the arena
// and enforces script-wide name uniqueness.
func (s *Script) index(cmd *Command, seen map[string]bool) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	if seen[cmd.Name] {
		return core.ErrDuplicateName.WithMessagef("duplicate command name %q", cmd.Name)
	}
	seen[cmd.Name] = true
	s.arena[cmd.ID] = cmd

	for _, inner := range cmd.children() {
		if err := s.index(inner, seen); err != nil {
			return err
		}
	}
	return nil
}

// children returns the nested command lists of Repeat/Condition variants.
func (c *Command) children() []*Command {
	switch c.Kind {
	case KindRepeat:
		return c.Repeat.Inner
	case KindCondition:
		return append(append([]*Command{}, c.Condition.Then...), c.Condition.Else...)
	}
	return nil
}

// checkSubtree runs the reference walk over a command and its nested
// children. The error handler sits outside the arena, so its references
// are checked through this path.
func (s *Script) checkSubtree(cmd *Command) error {
	if err := s.checkReferences(cmd); err != nil {
		return err
	}
	for _, inner := range cmd.children() {
		if err := s.checkSubtree(inner); err != nil {
			return err
		}
	}
	return nil
}

// checkReferences resolves every label and parent reference cmd carries.
func (s *Script) checkReferences(cmd *Command) error {
	if cmd.OnFail == OnFailGotoLabel {
		if _, ok := s.labelMap[cmd.OnFailLabel]; !ok {
			return core.ErrUnresolvedLabel.WithMessagef("command %q: onFail label %q", cmd.Name, cmd.OnFailLabel)
		}
	}

	switch cmd.Kind {
	case KindGoto:
		if _, ok := s.labelMap[cmd.Goto.Target]; !ok {
			return core.ErrUnresolvedLabel.WithMessagef("command %q: goto target %q", cmd.Name, cmd.Goto.Target)
		}
	case KindCondition:
		if l := cmd.Condition.ThenLabel; l != "" {
			if _, ok := s.labelMap[l]; !ok {
				return core.ErrUnresolvedLabel.WithMessagef("command %q: then label %q", cmd.Name, l)
			}
		}
		if l := cmd.Condition.ElseLabel; l != "" {
			if _, ok := s.labelMap[l]; !ok {
				return core.ErrUnresolvedLabel.WithMessagef("command %q: else label %q", cmd.Name, l)
			}
		}
	}

	if cmd.ParentID != "" {
		parent, ok := s.arena[cmd.ParentID]
		if !ok {
			return core.ErrDanglingParent.WithMessagef("command %q: parent id %s", cmd.Name, cmd.ParentID)
		}
		if parent.Kind != KindRepeat && parent.Kind != KindCondition {
			return core.ErrDanglingParent.WithMessagef("command %q: parent %q is not a Repeat or Condition", cmd.Name, parent.Name)
		}
	}
	return nil
}

// CommandByID looks up any command, nested included.
func (s *Script) CommandByID(id string) (*Command, bool) {
	cmd, ok := s.arena[id]
	return cmd, ok
}

// IDForLabel resolves a label to the top-level command id it names.
func (s *Script) IDForLabel(label string) (string, bool) {
	id, ok := s.labelMap[label]
	return id, ok
}

// NextAfter returns the id of the top-level command following id in
// document order, or "" at the end of the sequence.
func (s *Script) NextAfter(id string) string {
	return s.nextIdx[id]
}

// FirstID returns the id of the first command, or "" for an empty script.
func (s *Script) FirstID() string {
	if len(s.Sequence) == 0 {
		return ""
	}
	return s.Sequence[0].ID
}

// Len returns the number of top-level commands.
func (s *Script) Len() int {
	return len(s.Sequence)
}
