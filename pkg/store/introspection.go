package store

import (
	"github.com/aretw0/introspection"
)

// State exposes internal counters for observability.
type State struct {
	Container string `json:"container"`
	ReadOnly  bool   `json:"read_only"`
	Reads     uint64 `json:"reads"`
	Writes    uint64 `json:"writes"`
	Connector string `json:"connector"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	connType := "connector"
	if comp, ok := s.conn.(introspection.Component); ok {
		connType = comp.ComponentType()
	}

	return State{
		Container: s.container,
		ReadOnly:  s.capability == ReadOnly,
		Reads:     s.reads.Load(),
		Writes:    s.writes.Load(),
		Connector: connType,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
