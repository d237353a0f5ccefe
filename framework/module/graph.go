package module

import (
	"container/heap"
	"slices"
)

// Order returns ds in load order: a topological order of the dependency
// graph (provider before dependent) in which modules that are ready at the
// same time come out by ascending Order, then discovery index.
//
// A cycle fails with *ModuleCycleError naming one concrete cycle, read in
// the "requires" direction.
func Order(ds []*Descriptor) ([]*Descriptor, error) {
	if len(ds) == 0 {
		return nil, nil
	}
	providers, _ := capabilityProviders(ds)

	// dependents maps each module to the modules that require something it
	// provides; requires is the reverse, used to report cycles.
	dependents := make(map[*Descriptor][]*Descriptor, len(ds))
	requires := make(map[*Descriptor][]*Descriptor, len(ds))
	inDegree := make(map[*Descriptor]int, len(ds))
	for _, d := range ds {
		for _, r := range d.Requires {
			p, ok := providers[r.Capability]
			if !ok || p == d || slices.Contains(requires[d], p) {
				continue
			}
			requires[d] = append(requires[d], p)
			dependents[p] = append(dependents[p], d)
			inDegree[d]++
		}
	}

	ready := &readyQueue{}
	for _, d := range ds {
		if inDegree[d] == 0 {
			heap.Push(ready, d)
		}
	}

	result := make([]*Descriptor, 0, len(ds))
	for ready.Len() > 0 {
		d := heap.Pop(ready).(*Descriptor)
		result = append(result, d)
		for _, next := range dependents[d] {
			inDegree[next]--
			if inDegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(result) != len(ds) {
		return nil, &ModuleCycleError{Cycle: findCycle(ds, requires, inDegree)}
	}
	return result, nil
}

// findCycle walks the modules Kahn's algorithm could not place and returns
// the first cycle it meets.
func findCycle(ds []*Descriptor, requires map[*Descriptor][]*Descriptor, inDegree map[*Descriptor]int) []string {
	const (
		unseen = iota
		onPath
		done
	)
	state := make(map[*Descriptor]int)
	var path []*Descriptor
	var cycle []string

	var visit func(d *Descriptor) bool
	visit = func(d *Descriptor) bool {
		state[d] = onPath
		path = append(path, d)
		for _, dep := range requires[d] {
			if inDegree[dep] == 0 {
				continue
			}
			switch state[dep] {
			case onPath:
				start := slices.Index(path, dep)
				for _, n := range path[start:] {
					cycle = append(cycle, n.Name)
				}
				cycle = append(cycle, dep.Name)
				return true
			case unseen:
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		state[d] = done
		return false
	}

	for _, d := range ds {
		if inDegree[d] > 0 && state[d] == unseen && visit(d) {
			break
		}
	}
	return cycle
}

// readyQueue is a min-heap of modules keyed by (Order, discovery index).
type readyQueue []*Descriptor

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	if q[i].Order != q[j].Order {
		return q[i].Order < q[j].Order
	}
	return q[i].index < q[j].index
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(*Descriptor)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	d := old[n-1]
	*q = old[:n-1]
	return d
}
