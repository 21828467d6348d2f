package agent

import "github.com/agentgraph-dev/agentgraph/state"

// State is the agent's working state. It is a plain state map; Schema
// declares how the default workflow's channels merge.
type State = state.State

// Well-known state keys of the default workflow.
const (
	// InputKey seeds a run with the user's request.
	InputKey = "input"
	// MessagesKey accumulates the conversation history.
	MessagesKey = state.MessagesKey
	// OutputKey receives the final answer when the workflow finishes.
	OutputKey = "output"
)

// Schema returns the default workflow's state schema: input and output
// overwrite, messages append.
func Schema() *state.Schema {
	return state.NewSchema(state.MessagesChannel())
}
