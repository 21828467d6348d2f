package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected is returned when the graph contains a cycle with no
	// conditional exit.
	ErrCycleDetected = errors.New("inescapable cycle detected")

	// ErrUnknownNode is returned when an edge or router references a node
	// that was never added.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoEntryPoint is returned when a graph is compiled without an
	// entry point.
	ErrNoEntryPoint = errors.New("no entry point: call SetEntryPoint or add an edge from START")

	// ErrMaxStepsExceeded is returned when a run does not reach END within
	// the step limit.
	ErrMaxStepsExceeded = errors.New("maximum supersteps exceeded")
)

// CycleError reports a cycle in which no node has a conditional edge, so a
// run entering it could never leave.
type CycleError struct {
	Path []string
}

// Error returns a human-readable description of the cycle.
func (e *CycleError) Error() string {
	return fmt.Sprintf("inescapable cycle detected: %s (add a conditional edge to provide an exit)",
		strings.Join(e.Path, " -> "))
}

// Unwrap returns the base error for errors.Is compatibility.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// NodeError wraps a failure inside a node, carrying the node name and the
// superstep it failed on.
type NodeError struct {
	Node string
	Step int
	Err  error
}

// Error returns a human-readable description of the failure.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed at step %d: %v", e.Node, e.Step, e.Err)
}

// Unwrap returns the underlying node error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// RouterError wraps a failure or an invalid route returned by a conditional
// edge's router.
type RouterError struct {
	Node string
	Err  error
}

// Error returns a human-readable description of the failure.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router after node %q failed: %v", e.Node, e.Err)
}

// Unwrap returns the underlying router error.
func (e *RouterError) Unwrap() error {
	return e.Err
}
