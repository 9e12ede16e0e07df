// Package track links time-ordered position estimates into a DAG of
// physically plausible moves and extracts the best-scoring path through it.
package track

import (
	"context"
	"sort"

	"github.com/banshee-data/radiotrack/internal/locate"
)

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	sorted
)

// Node is one position estimate in the graph arena. In and Out hold arena
// indexes. Best and Pred are filled in by Reconstruct; Pred is -1 when the
// node starts its best path.
type Node struct {
	Estimate locate.PositionEstimate
	In       []int
	Out      []int
	Best     float64
	Pred     int

	state visitState
}

// Graph is an arena of nodes joined by edges that run strictly forward in
// time. A Graph is owned by one reconstruction and is not safe for
// concurrent use.
type Graph struct {
	Nodes []Node
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.Nodes) }

func (g *Graph) addNode(est locate.PositionEstimate) int {
	g.Nodes = append(g.Nodes, Node{Estimate: est, Pred: -1})
	return len(g.Nodes) - 1
}

func (g *Graph) addEdge(u, v int) {
	g.Nodes[u].Out = append(g.Nodes[u].Out, v)
	g.Nodes[v].In = append(g.Nodes[v].In, u)
}

// Build sorts estimates by time (stably) and links them in batches of equal
// timestamp. Each node of a batch is tested against the frontier: nodes
// from earlier batches that have no outgoing edge yet. An edge u→v is added
// when the implied speed is below maxSpeed of the elapsed time. Nodes that
// gained an edge leave the frontier and the batch joins it.
//
// If ctx is cancelled between batches the graph built so far is returned
// together with the context error.
func Build(ctx context.Context, estimates []locate.PositionEstimate, maxSpeed MaxSpeedFunc) (*Graph, error) {
	ests := append([]locate.PositionEstimate(nil), estimates...)
	sort.SliceStable(ests, func(i, j int) bool { return ests[i].Time < ests[j].Time })

	g := &Graph{Nodes: make([]Node, 0, len(ests))}
	var frontier []int
	for i := 0; i < len(ests); {
		if err := ctx.Err(); err != nil {
			return g, err
		}

		j := i
		for j < len(ests) && ests[j].Time == ests[i].Time {
			j++
		}

		batch := make([]int, 0, j-i)
		for _, est := range ests[i:j] {
			v := g.addNode(est)
			batch = append(batch, v)
			for _, u := range frontier {
				if plausible(&g.Nodes[u].Estimate, &g.Nodes[v].Estimate, maxSpeed) {
					g.addEdge(u, v)
				}
			}
		}

		next := frontier[:0]
		for _, u := range frontier {
			if len(g.Nodes[u].Out) == 0 {
				next = append(next, u)
			}
		}
		frontier = append(next, batch...)
		i = j
	}
	return g, nil
}

func plausible(from, to *locate.PositionEstimate, maxSpeed MaxSpeedFunc) bool {
	dt := to.Time - from.Time
	if dt <= 0 {
		return false
	}
	return from.Position.DistanceTo(to.Position)/dt < maxSpeed(dt)
}

// Roots returns the indexes of nodes with no incoming edge, ascending.
func (g *Graph) Roots() []int {
	var roots []int
	for i := range g.Nodes {
		if len(g.Nodes[i].In) == 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Components returns, for each root, the sorted indexes of every node
// reachable from it. Components of different roots may overlap.
func (g *Graph) Components() [][]int {
	roots := g.Roots()
	out := make([][]int, 0, len(roots))
	seen := make([]bool, len(g.Nodes))
	for _, r := range roots {
		for i := range seen {
			seen[i] = false
		}
		queue := []int{r}
		seen[r] = true
		var comp []int
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			comp = append(comp, u)
			for _, w := range g.Nodes[u].Out {
				if !seen[w] {
					seen[w] = true
					queue = append(queue, w)
				}
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	return out
}
