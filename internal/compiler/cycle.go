package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/formulon/internal/ast"
)

// CycleError reports calculated fields that reference each other.
type CycleError struct {
	Path []string // e.g. ["Margin", "Profit", "Margin"]
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("calculated field cycle: %s", strings.Join(e.Path, " → "))
}

// UnknownFieldError reports a formula that names a field the dataset lacks.
type UnknownFieldError struct {
	Name string
	Pos  ast.Pos
}

func (e *UnknownFieldError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: unknown field %q", e.Pos, e.Name)
	}
	return fmt.Sprintf("unknown field %q", e.Name)
}

// AnalyzeCycles finds the calculated fields of ds that depend on
// themselves. Each cycle is returned once, as a path that starts and ends
// at the same field. A dataset without cycles returns nil.
func AnalyzeCycles(ds *Dataset) []CycleError {
	graph := buildDependencyGraph(ds)

	var cycles []CycleError
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && slices.Contains(graph[scc[0]], scc[0])) {
			cycles = append(cycles, CycleError{Path: reconstructCyclePath(scc, graph)})
		}
	}
	slices.SortFunc(cycles, func(a, b CycleError) int { return strings.Compare(a.Path[0], b.Path[0]) })
	return cycles
}

// dependencyGraph maps a calculated field to the calculated fields its
// formula reads.
type dependencyGraph map[string][]string

func buildDependencyGraph(ds *Dataset) dependencyGraph {
	graph := make(dependencyGraph)
	for _, f := range ds.Fields {
		if !f.IsCalculated() {
			continue
		}
		graph[f.Name] = []string{}
		for _, name := range valueFields(f.Formula) {
			if dep, ok := ds.Field(name); ok && dep.IsCalculated() && !slices.Contains(graph[f.Name], name) {
				graph[f.Name] = append(graph[f.Name], name)
			}
		}
	}
	return graph
}

// valueFields lists the field names n reads, in order of appearance.
// Before-filter-by lists name filters, not values, and are skipped.
func valueFields(n ast.Node) []string {
	var names []string
	ast.Walk(n, func(n ast.Node, _ ast.Index, parents []ast.Node) bool {
		if f, ok := n.(*ast.Field); ok && !isBFB(f, parents) {
			names = append(names, f.Name())
		}
		return true
	})
	return names
}

func isBFB(f *ast.Field, parents []ast.Node) bool {
	if len(parents) == 0 {
		return false
	}
	call, ok := parents[len(parents)-1].(*ast.FuncCall)
	return ok && slices.Contains(call.BeforeFilterBy(), f)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
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
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside scc from its first member until
// it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	start := scc[0]
	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	path := []string{start}
	visited := map[string]bool{}
	current := start
	for {
		visited[current] = true
		next := ""
		for _, w := range graph[current] {
			if w == start {
				next = w
				break
			}
			if inSCC[w] && !visited[w] && next == "" {
				next = w
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

// Expand inlines the formulas of calculated fields into n until only
// physical fields remain. Before-filter-by lists are left untouched.
func Expand(ds *Dataset, n ast.Node) (ast.Node, error) {
	if cycles := AnalyzeCycles(ds); len(cycles) > 0 {
		return nil, &cycles[0]
	}
	return expand(ds, n, map[string]ast.Node{})
}

func expand(ds *Dataset, n ast.Node, done map[string]ast.Node) (ast.Node, error) {
	return ast.Transform(n, func(n ast.Node, _ ast.Index, parents []ast.Node) (ast.Node, error) {
		f, ok := n.(*ast.Field)
		if !ok || isBFB(f, parents) {
			return n, nil
		}
		field, ok := ds.Field(f.Name())
		if !ok {
			return nil, &UnknownFieldError{Name: f.Name(), Pos: f.Meta().Pos}
		}
		if !field.IsCalculated() {
			return n, nil
		}
		if out, ok := done[field.Name]; ok {
			return out, nil
		}
		out, err := expand(ds, field.Formula, done)
		if err != nil {
			return nil, err
		}
		done[field.Name] = out
		return out, nil
	})
}
