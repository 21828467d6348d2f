// Package agent is the starter agent built on the agentgraph framework:
// a state schema and a workflow builder, meant to be edited into your own
// agent.
//
// The workflow BuildGraph returns is the canonical tool-calling loop. A
// model node talks to the configured LLM provider; when the model requests
// tool calls, a tools node executes them and loops back; when it answers
// directly, the run finishes with the answer under the "output" key.
//
// # Usage
//
//	g, err := agent.BuildGraph(
//		agent.WithProvider(provider),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := g.Invoke(ctx, agent.State{"input": "example query"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.GetString(agent.OutputKey))
//
// The example is illustrative: the state carries whatever keys your nodes
// read and write, and the defaults here are replaceable scaffolding.
package agent
