package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// CallCycle is a set of functions that call each other, directly or
// through other functions. Call cycles are rejected: a callee must be
// compiled before its callers.
type CallCycle struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

func (c CallCycle) Error() string { return c.Message }

// AnalyzeCalls finds call cycles among defs.
//
// The algorithm:
//  1. Build the caller → callee graph from call steps
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-call as a cycle
//
// Calls to functions outside defs are ignored. An acyclic set returns an
// empty list.
func AnalyzeCalls(defs []FunctionDef) []CallCycle {
	graph := buildCallGraph(defs)

	var cycles []CallCycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	if cycles == nil {
		return []CallCycle{}
	}
	return cycles
}

// CallOrder returns the names of defs ordered so that every function comes
// after the functions it calls. It fails on the first call cycle.
func CallOrder(defs []FunctionDef) ([]string, error) {
	graph := buildCallGraph(defs)

	sccs := tarjanSCC(graph)
	order := make([]string, 0, len(graph))
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return nil, sccToCycle(scc, graph)
		}
		order = append(order, scc[0])
	}
	return order, nil
}

// callGraph maps function name → names of functions it calls.
type callGraph map[string][]string

// buildCallGraph keeps only edges between functions in defs.
func buildCallGraph(defs []FunctionDef) callGraph {
	graph := make(callGraph, len(defs))
	for i := range defs {
		if graph[defs[i].Name] == nil {
			graph[defs[i].Name] = []string{}
		}
	}
	for i := range defs {
		for _, callee := range defs[i].Callees() {
			if _, ok := graph[callee]; ok {
				graph[defs[i].Name] = append(graph[defs[i].Name], callee)
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph callGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Components come out in reverse topological order: every component is
// emitted after the components it can reach. Nodes are visited in name
// order so the result is deterministic.
func tarjanSCC(graph callGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// sccToCycle converts an SCC to a CallCycle.
//
// For self-calls, the path is [fn, fn].
func sccToCycle(scc []string, graph callGraph) CallCycle {
	if len(scc) == 1 {
		name := scc[0]
		return CallCycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("function calls itself: %s → %s", name, name),
		}
	}

	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)
	path := reconstructCyclePath(sorted, graph)
	return CallCycle{
		Path:    path,
		Message: fmt.Sprintf("call cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath starts at the first node in the SCC and follows
// edges to other SCC members until it returns to the start node.
func reconstructCyclePath(scc []string, graph callGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
