package techtree

import "strings"

const (
	unvisited uint8 = iota
	inProgress
	resolved
)

// dfsFrame is one entry of the explicit traversal stack: a node and the
// index of the next prerequisite edge to follow.
type dfsFrame struct {
	node int
	next int
}

// findCycle walks prerequisite edges depth-first, starting from each
// technology in declaration order. It returns the first cycle found as a
// closed path of handles (the last element repeats an earlier one), or nil.
//
// The stack never holds more frames than there are technologies because a
// node is pushed only while unvisited.
func (g *Graph) findCycle() []int {
	n := g.Len()
	marks := make([]uint8, n)
	stack := make([]dfsFrame, 0, n)

	for root := 0; root < n; root++ {
		if marks[root] != unvisited {
			continue
		}
		marks[root] = inProgress
		stack = append(stack, dfsFrame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g.requires[top.node]
			if top.next == len(edges) {
				marks[top.node] = resolved
				stack = stack[:len(stack)-1]
				continue
			}
			dep := edges[top.next]
			top.next++
			if dep < 0 {
				continue
			}
			switch marks[dep] {
			case inProgress:
				return cyclePath(stack, dep)
			case unvisited:
				marks[dep] = inProgress
				stack = append(stack, dfsFrame{node: dep})
			}
		}
	}
	return nil
}

// cyclePath extracts the active path from the first occurrence of repeated
// to the top of the stack, then closes it with repeated.
func cyclePath(stack []dfsFrame, repeated int) []int {
	start := 0
	for i := range stack {
		if stack[i].node == repeated {
			start = i
			break
		}
	}
	path := make([]int, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.node)
	}
	return append(path, repeated)
}

func (g *Graph) formatPath(path []int) string {
	ids := make([]string, len(path))
	for i, h := range path {
		ids[i] = string(g.Tech(h).ID)
	}
	return strings.Join(ids, " → ")
}
