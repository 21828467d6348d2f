package tools

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

func init() {
	// Builtins are always resolvable by name, so declarative configs can
	// reference them without registering anything.
	for _, t := range []Tool{Calculator(), CurrentTime()} {
		if err := Register(t); err != nil {
			panic(err)
		}
	}
}

// Calculator evaluates a single binary arithmetic operation.
func Calculator() Tool {
	return Tool{
		Name:        "calculator",
		Description: "Perform basic arithmetic. Supports add, subtract, multiply and divide on two numbers.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operation": map[string]any{
					"type":        "string",
					"enum":        []string{"add", "subtract", "multiply", "divide"},
					"description": "The operation to perform",
				},
				"a": map[string]any{"type": "number", "description": "First operand"},
				"b": map[string]any{"type": "number", "description": "Second operand"},
			},
			"required": []string{"operation", "a", "b"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			op, err := StringArg(args, "operation")
			if err != nil {
				return "", err
			}
			a, err := FloatArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := FloatArg(args, "b")
			if err != nil {
				return "", err
			}
			var result float64
			switch op {
			case "add":
				result = a + b
			case "subtract":
				result = a - b
			case "multiply":
				result = a * b
			case "divide":
				if b == 0 {
					return "", fmt.Errorf("division by zero")
				}
				result = a / b
			default:
				return "", fmt.Errorf("unknown operation: %s", op)
			}
			return strconv.FormatFloat(result, 'f', -1, 64), nil
		},
	}
}

// CurrentTime reports the current time, optionally in a named IANA zone.
func CurrentTime() Tool {
	return Tool{
		Name:        "current_time",
		Description: "Get the current date and time. Optionally pass an IANA timezone name such as America/New_York.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name, defaults to UTC",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			loc := time.UTC
			if tz, ok := args["timezone"].(string); ok && tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
				}
				loc = l
			}
			return time.Now().In(loc).Format(time.RFC3339), nil
		},
	}
}
