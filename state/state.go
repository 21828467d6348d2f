// Package state defines the shared agent state that flows through a graph
// and the channel schema that controls how node updates are merged into it.
package state

import (
	"encoding/json"
	"fmt"
)

// State is the mutable data passed between graph nodes. Keys are channel
// names, values are whatever the agent stores under them. Nodes receive a
// copy and return partial updates; they never mutate shared state directly.
type State map[string]any

// New returns an empty state.
func New() State {
	return State{}
}

// Clone returns a deep copy of the state via a JSON round trip. Values must
// be JSON-serializable, which is already required for checkpointing.
func (s State) Clone() (State, error) {
	if s == nil {
		return State{}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("cloning state: %w", err)
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cloning state: %w", err)
	}
	if out == nil {
		out = State{}
	}
	return out, nil
}

// MustClone is Clone for states known to be serializable, such as values
// that already survived a checkpoint round trip. It panics on failure.
func (s State) MustClone() State {
	out, err := s.Clone()
	if err != nil {
		panic(err)
	}
	return out
}

// Get returns the value stored under key and whether it was present.
func (s State) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when the key is
// missing or holds a non-string value.
func (s State) GetString(key string) string {
	v, ok := s[key]
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Set stores value under key, replacing any previous value.
func (s State) Set(key string, value any) {
	s[key] = value
}

// Keys returns the channel names present in the state, in map order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}
