package graph

import "fmt"

// validate checks graph structure before compilation. Cycles are legal
// (agent loops depend on them) as long as some node on the cycle has a
// conditional edge through which a run can leave.
func (g *StateGraph) validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	if len(g.edges[START]) == 0 {
		return ErrNoEntryPoint
	}

	// Every edge endpoint must be a known node.
	for from, targets := range g.edges {
		if from != START {
			if _, ok := g.nodes[from]; !ok {
				return fmt.Errorf("%w: edge source %q", ErrUnknownNode, from)
			}
		}
		for _, to := range targets {
			if to == END {
				continue
			}
			if _, ok := g.nodes[to]; !ok {
				return fmt.Errorf("%w: edge %s -> %s", ErrUnknownNode, from, to)
			}
		}
	}
	for from, edge := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: conditional edge source %q", ErrUnknownNode, from)
		}
		for label, target := range edge.pathMap {
			if target == END {
				continue
			}
			if _, ok := g.nodes[target]; !ok {
				return fmt.Errorf("%w: conditional path %q -> %s", ErrUnknownNode, label, target)
			}
		}
	}

	// Every node must also have a way forward. Dead ends stall the frontier.
	for name := range g.nodes {
		if len(g.edges[name]) == 0 && g.conditional[name] == nil {
			return fmt.Errorf("node %q has no outgoing edge: add an edge or SetFinishPoint", name)
		}
	}

	if err := g.checkReachability(); err != nil {
		return err
	}
	if err := g.checkTermination(); err != nil {
		return err
	}
	return g.checkCycles()
}

// checkTermination verifies every node has some path to END. A conditional
// edge without a path map can route anywhere at runtime, so it counts as a
// direct exit.
func (g *StateGraph) checkTermination() error {
	canFinish := make(map[string]bool)

	for name := range g.nodes {
		if edge := g.conditional[name]; edge != nil && edge.pathMap == nil {
			canFinish[name] = true
		}
	}

	changed := true
	for changed {
		changed = false
		for name := range g.nodes {
			if canFinish[name] {
				continue
			}
			reaches := false
			for _, to := range g.edges[name] {
				if to == END || canFinish[to] {
					reaches = true
					break
				}
			}
			if !reaches {
				if edge := g.conditional[name]; edge != nil {
					for _, target := range edge.pathMap {
						if target == END || canFinish[target] {
							reaches = true
							break
						}
					}
				}
			}
			if reaches {
				canFinish[name] = true
				changed = true
			}
		}
	}

	for name := range g.nodes {
		if !canFinish[name] {
			return fmt.Errorf("node %q has no path to END", name)
		}
	}
	return nil
}

// checkReachability walks from START over both static and conditional
// edges and rejects nodes no run could ever execute. A conditional edge
// without a path map resolves its label directly as a node name, so it
// can reach any node.
func (g *StateGraph) checkReachability() error {
	visited := make(map[string]bool)
	queue := append([]string(nil), g.edges[START]...)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if name == END || visited[name] {
			continue
		}
		visited[name] = true

		queue = append(queue, g.edges[name]...)
		if edge := g.conditional[name]; edge != nil {
			if edge.pathMap == nil {
				for target := range g.nodes {
					queue = append(queue, target)
				}
			}
			for _, target := range edge.pathMap {
				queue = append(queue, target)
			}
		}
	}

	for name := range g.nodes {
		if !visited[name] {
			return fmt.Errorf("node %q is unreachable from START", name)
		}
	}
	return nil
}

// checkCycles runs a coloring DFS over static edges only. A cycle found
// there is inescapable unless one of its members carries a conditional
// edge: static edges always fire, so nothing else can break the loop.
//
// Colors: 0=white (unvisited), 1=gray (visiting), 2=black (visited).
func (g *StateGraph) checkCycles() error {
	colors := make(map[string]int)
	var stack []string

	var dfs func(name string) error
	dfs = func(name string) error {
		if colors[name] == 1 {
			cycleStart := -1
			for i, n := range stack {
				if n == name {
					cycleStart = i
					break
				}
			}
			cyclePath := append(append([]string(nil), stack[cycleStart:]...), name)
			for _, member := range cyclePath[:len(cyclePath)-1] {
				if g.conditional[member] != nil {
					return nil // Router on the cycle provides an exit.
				}
			}
			return &CycleError{Path: cyclePath}
		}
		if colors[name] == 2 {
			return nil
		}

		colors[name] = 1
		stack = append(stack, name)

		for _, next := range g.edges[name] {
			if next == END {
				continue
			}
			if err := dfs(next); err != nil {
				return err
			}
		}

		colors[name] = 2
		stack = stack[:len(stack)-1]
		return nil
	}

	for name := range g.nodes {
		if colors[name] == 0 {
			if err := dfs(name); err != nil {
				return err
			}
		}
	}
	return nil
}
