package state

import "fmt"

// Reducer merges a node's update for one channel into the channel's current
// value. The current value may be nil when the channel has never been
// written.
type Reducer interface {
	Reduce(current, update any) (any, error)
}

// ReducerFunc adapts a function to the Reducer interface.
type ReducerFunc func(current, update any) (any, error)

// Reduce calls f.
func (f ReducerFunc) Reduce(current, update any) (any, error) {
	return f(current, update)
}

// Overwrite replaces the current value with the update. It is the default
// behavior for channels without an explicit reducer.
func Overwrite() Reducer {
	return ReducerFunc(func(_, update any) (any, error) {
		return update, nil
	})
}

// Append accumulates updates into a slice. Slice updates are concatenated
// element-wise onto the current value; scalar updates are appended as a
// single element. Checkpoint round trips turn typed slices into []any, so
// both shapes are normalized here.
func Append() Reducer {
	return ReducerFunc(func(current, update any) (any, error) {
		out := toSlice(current)
		return append(out, toSlice(update)...), nil
	})
}

func toSlice(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(val))
		copy(out, val)
		return out
	default:
		return []any{val}
	}
}

// Channel describes one key of the state schema.
type Channel struct {
	// Name is the state key the channel occupies.
	Name string
	// Reducer merges updates into the channel. Nil means Overwrite.
	Reducer Reducer
	// Default seeds the channel when a run starts without a value for it.
	// Nil leaves the channel absent until first written.
	Default func() any
}

// Schema declares the channels a graph's state is made of and how each one
// merges concurrent updates. A nil or empty schema overwrites every key.
type Schema struct {
	channels map[string]Channel
}

// NewSchema builds a schema from the given channels.
func NewSchema(channels ...Channel) *Schema {
	s := &Schema{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		s.channels[ch.Name] = ch
	}
	return s
}

// Channel returns the declared channel for name, if any.
func (s *Schema) Channel(name string) (Channel, bool) {
	if s == nil {
		return Channel{}, false
	}
	ch, ok := s.channels[name]
	return ch, ok
}

// Init returns a fresh state seeded with every channel default, then
// overlaid with the caller's initial values.
func (s *Schema) Init(initial State) (State, error) {
	out := State{}
	if s != nil {
		for name, ch := range s.channels {
			if ch.Default == nil {
				continue
			}
			out[name] = ch.Default()
		}
	}
	if len(initial) == 0 {
		return out, nil
	}
	clone, err := initial.Clone()
	if err != nil {
		return nil, err
	}
	for k, v := range clone {
		out[k] = v
	}
	return out, nil
}

// Apply merges update into current according to the schema's reducers and
// returns the merged state. Neither input is mutated.
func (s *Schema) Apply(current State, update State) (State, error) {
	out, err := current.Clone()
	if err != nil {
		return nil, err
	}
	for key, value := range update {
		reducer := Reducer(nil)
		if ch, ok := s.Channel(key); ok && ch.Reducer != nil {
			reducer = ch.Reducer
		}
		if reducer == nil {
			out[key] = value
			continue
		}
		merged, err := reducer.Reduce(out[key], value)
		if err != nil {
			return nil, fmt.Errorf("reducing channel %q: %w", key, err)
		}
		out[key] = merged
	}
	return out, nil
}
