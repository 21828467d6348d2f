// Package tools defines callable tools that agent graphs can expose to
// language models. A Tool pairs a JSON Schema parameter description with
// an Execute function; Definition converts it to the wire form providers
// send with completion requests.
package tools

import (
	"context"
	"encoding/json"
	"log"

	"github.com/agentgraph-dev/agentgraph/llm"
)

// ExecuteFunc runs a tool against parsed call arguments and returns the
// text result fed back to the model.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a callable capability exposed to the model.
type Tool struct {
	// Name is the identifier the model uses to call the tool.
	Name string

	// Description tells the model when the tool applies.
	Description string

	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]any

	// Execute runs the tool.
	Execute ExecuteFunc
}

// Definition converts the tool to the request form providers understand.
func (t Tool) Definition() llm.Tool {
	return llm.Tool{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  json.RawMessage(mustMarshal(t.Parameters)),
	}
}

// Definitions converts a set of tools for a completion request.
func Definitions(ts []Tool) []llm.Tool {
	if len(ts) == 0 {
		return nil
	}
	defs := make([]llm.Tool, len(ts))
	for i, t := range ts {
		defs[i] = t.Definition()
	}
	return defs
}

func mustMarshal(v any) []byte {
	if v == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		// This should never happen with valid schema, but handle it gracefully
		log.Printf("Warning: failed to marshal value: %v", err)
		return []byte("{}")
	}
	return b
}
