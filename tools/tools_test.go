package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionMarshalsParameters(t *testing.T) {
	tool := Tool{
		Name:        "lookup",
		Description: "Look things up",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{"type": "string"},
			},
			"required": []string{"key"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", nil
		},
	}

	def := tool.Definition()
	assert.Equal(t, "lookup", def.Name)
	assert.Equal(t, "Look things up", def.Description)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(def.Parameters, &schema))
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "key")
}

func TestDefinitionNilParameters(t *testing.T) {
	tool := Tool{Name: "bare", Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }}
	def := tool.Definition()
	assert.JSONEq(t, "{}", string(def.Parameters))
}

func TestDefinitions(t *testing.T) {
	defs := Definitions([]Tool{Calculator(), CurrentTime()})
	require.Len(t, defs, 2)
	assert.Equal(t, "calculator", defs[0].Name)
	assert.Equal(t, "current_time", defs[1].Name)

	assert.Nil(t, Definitions(nil))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Calculator()))
	require.NoError(t, reg.Register(CurrentTime()))

	calc, ok := reg.Get("calculator")
	require.True(t, ok)
	assert.Equal(t, "calculator", calc.Name)

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "calculator", all[0].Name)
	assert.Equal(t, "current_time", all[1].Name)
	assert.Equal(t, []string{"calculator", "current_time"}, reg.Names())
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	for _, name := range []string{"calculator", "current_time"} {
		tool, ok := Get(name)
		require.True(t, ok, "builtin %q not registered", name)
		assert.Equal(t, name, tool.Name)
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(Tool{Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }})
	assert.Error(t, err)

	err = reg.Register(Tool{Name: "no-exec"})
	assert.Error(t, err)
}

func TestRegistryReplaces(t *testing.T) {
	reg := NewRegistry()
	exec := func(ctx context.Context, args map[string]any) (string, error) { return "", nil }
	require.NoError(t, reg.Register(Tool{Name: "t", Description: "first", Execute: exec}))
	require.NoError(t, reg.Register(Tool{Name: "t", Description: "second", Execute: exec}))

	got, ok := reg.Get("t")
	require.True(t, ok)
	assert.Equal(t, "second", got.Description)
	assert.Len(t, reg.All(), 1)
}

func TestStringArg(t *testing.T) {
	args := map[string]any{"name": "alice", "count": float64(3)}

	v, err := StringArg(args, "name")
	require.NoError(t, err)
	assert.Equal(t, "alice", v)

	_, err = StringArg(args, "missing")
	var argErr *ArgError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "missing", argErr.Arg)

	_, err = StringArg(args, "count")
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "count", argErr.Arg)
	assert.Contains(t, err.Error(), "must be a string")
}

func TestFloatArg(t *testing.T) {
	args := map[string]any{"f": float64(2.5), "i": 7, "s": "nope"}

	v, err := FloatArg(args, "f")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = FloatArg(args, "i")
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	var argErr *ArgError
	_, err = FloatArg(args, "s")
	require.ErrorAs(t, err, &argErr)

	_, err = FloatArg(args, "absent")
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "absent", argErr.Arg)
}

func TestCalculator(t *testing.T) {
	calc := Calculator()
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"add", map[string]any{"operation": "add", "a": float64(2), "b": float64(3)}, "5"},
		{"subtract", map[string]any{"operation": "subtract", "a": float64(10), "b": float64(4)}, "6"},
		{"multiply", map[string]any{"operation": "multiply", "a": float64(6), "b": float64(7)}, "42"},
		{"divide", map[string]any{"operation": "divide", "a": float64(9), "b": float64(2)}, "4.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Execute(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatorErrors(t *testing.T) {
	calc := Calculator()
	ctx := context.Background()

	_, err := calc.Execute(ctx, map[string]any{"operation": "divide", "a": float64(1), "b": float64(0)})
	assert.ErrorContains(t, err, "division by zero")

	_, err = calc.Execute(ctx, map[string]any{"operation": "modulo", "a": float64(1), "b": float64(2)})
	assert.ErrorContains(t, err, "unknown operation")

	_, err = calc.Execute(ctx, map[string]any{"operation": "add", "a": float64(1)})
	var argErr *ArgError
	assert.True(t, errors.As(err, &argErr))
}

func TestCurrentTime(t *testing.T) {
	clock := CurrentTime()
	ctx := context.Background()

	got, err := clock.Execute(ctx, map[string]any{})
	require.NoError(t, err)
	assert.NotEmpty(t, got)

	_, err = clock.Execute(ctx, map[string]any{"timezone": "Not/AZone"})
	assert.ErrorContains(t, err, "unknown timezone")
}
