package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// DependencyGraph indexes the dependency edges between process instances
// and answers ordering questions: topological tiers for placement and
// transitive dependent counts for critical-path weighting.
type DependencyGraph struct {
	instances map[string]*entities.ProcessInstance

	// dependents maps an instance id to the ids that depend on it.
	dependents map[string][]string

	// inDegree tracks the number of unsatisfied dependencies per instance.
	inDegree map[string]int

	// order preserves input position for deterministic tie-breaking.
	order map[string]int
}

// NewDependencyGraph builds the graph and validates that every declared
// dependency refers to a known instance.
func NewDependencyGraph(instances []entities.ProcessInstance) (*DependencyGraph, error) {
	g := &DependencyGraph{
		instances:  make(map[string]*entities.ProcessInstance, len(instances)),
		dependents: make(map[string][]string),
		inDegree:   make(map[string]int, len(instances)),
		order:      make(map[string]int, len(instances)),
	}

	for i := range instances {
		inst := &instances[i]
		if _, exists := g.instances[inst.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate process instance id %s", ErrInvalidInput, inst.ID)
		}
		g.instances[inst.ID] = inst
		g.inDegree[inst.ID] = 0
		g.order[inst.ID] = i
	}

	for _, inst := range g.instances {
		for _, depID := range inst.Dependencies {
			if _, exists := g.instances[depID]; !exists {
				return nil, fmt.Errorf("%w: instance %s depends on unknown instance %s",
					ErrInvalidInput, inst.ID, depID)
			}
			g.dependents[depID] = append(g.dependents[depID], inst.ID)
			g.inDegree[inst.ID]++
		}
	}

	return g, nil
}

// Tiers computes topological tiers with Kahn's algorithm. Instances in
// the same tier have all dependencies satisfied by earlier tiers. A
// cycle yields ErrCyclicDependency naming the instances on the cycle.
func (g *DependencyGraph) Tiers() ([][]string, error) {
	inDegree := make(map[string]int, len(g.inDegree))
	for id, deg := range g.inDegree {
		inDegree[id] = deg
	}

	current := make([]string, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			current = append(current, id)
		}
	}
	g.sortByInput(current)

	var tiers [][]string
	processed := 0
	for len(current) > 0 {
		tiers = append(tiers, current)
		processed += len(current)

		next := make([]string, 0)
		for _, id := range current {
			for _, dependent := range g.dependents[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		g.sortByInput(next)
		current = next
	}

	if processed != len(g.instances) {
		cycle := g.findCycle()
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, formatCycle(cycle))
	}

	return tiers, nil
}

// DependentCounts returns, per instance, how many other instances
// transitively depend on it. Instances that unblock more downstream work
// score higher in priority ordering.
func (g *DependencyGraph) DependentCounts() map[string]int {
	counts := make(map[string]int, len(g.instances))
	for id := range g.instances {
		visited := make(map[string]bool)
		queue := []string{id}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, dep := range g.dependents[current] {
				if !visited[dep] {
					visited[dep] = true
					queue = append(queue, dep)
				}
			}
		}
		counts[id] = len(visited)
	}
	return counts
}

// Instance returns the instance with the given id, if known.
func (g *DependencyGraph) Instance(id string) (*entities.ProcessInstance, bool) {
	inst, ok := g.instances[id]
	return inst, ok
}

// InputOrder returns the input position of an instance for stable
// tie-breaking.
func (g *DependencyGraph) InputOrder(id string) int {
	return g.order[id]
}

func (g *DependencyGraph) sortByInput(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return g.order[ids[i]] < g.order[ids[j]]
	})
}

// findCycle locates one dependency cycle via depth-first search for use
// in error messages. Called only after Kahn's algorithm proved a cycle
// exists.
func (g *DependencyGraph) findCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	ids := make([]string, 0, len(g.instances))
	for id := range g.instances {
		ids = append(ids, id)
	}
	g.sortByInput(ids)

	var cycle []string
	var visit func(id string, path []string) bool
	visit = func(id string, path []string) bool {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dependent := range g.dependents[id] {
			if !visited[dependent] {
				if visit(dependent, path) {
					return true
				}
			} else if onStack[dependent] {
				start := 0
				for i, p := range path {
					if p == dependent {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, path[start:]...), dependent)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range ids {
		if !visited[id] && visit(id, nil) {
			break
		}
	}
	return cycle
}

func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return "cycle detected"
	}
	return strings.Join(cycle, " -> ")
}
