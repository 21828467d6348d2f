package tools

import "fmt"

// ArgError describes a missing or mistyped tool argument.
type ArgError struct {
	Arg    string
	Reason string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("argument %q %s", e.Arg, e.Reason)
}

// StringArg extracts a required string argument.
func StringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", &ArgError{Arg: name, Reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgError{Arg: name, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	return s, nil
}

// FloatArg extracts a required numeric argument. Arguments parsed from
// model output arrive as float64; integer values are accepted for
// programmatic callers.
func FloatArg(args map[string]any, name string) (float64, error) {
	v, ok := args[name]
	if !ok {
		return 0, &ArgError{Arg: name, Reason: "is required"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, &ArgError{Arg: name, Reason: fmt.Sprintf("must be a number, got %T", v)}
	}
}
