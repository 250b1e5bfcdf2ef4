package ai

import (
	"context"
	"encoding/json"
)

// Tool is a function the model may call during a streamed generation.
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the arguments object.
	Parameters() json.RawMessage
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

type ToolSet struct {
	byName map[string]Tool
	order  []Tool
}

func NewToolSet(tools ...Tool) *ToolSet {
	s := &ToolSet{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, dup := s.byName[t.Name()]; dup {
			continue
		}
		s.byName[t.Name()] = t
		s.order = append(s.order, t)
	}
	return s
}

func (s *ToolSet) Lookup(name string) (Tool, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.byName[name]
	return t, ok
}

func (s *ToolSet) All() []Tool {
	if s == nil {
		return nil
	}
	return s.order
}

func (s *ToolSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
