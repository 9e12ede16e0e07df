package track

import (
	"fmt"
	"math"

	"github.com/banshee-data/radiotrack/internal/locate"
)

type frame struct {
	node int
	next int // index into Out of the next edge to follow
}

// TopoSort orders the graph source to sink with an iterative depth-first
// search. Roots are searched first, then any node still unvisited, so a
// cycle with no root leading into it is still found. A back edge fails
// with locate.ErrCycleDetected.
func TopoSort(g *Graph) ([]int, error) {
	for i := range g.Nodes {
		g.Nodes[i].state = unvisited
	}

	post := make([]int, 0, len(g.Nodes))
	var stack []frame
	visit := func(start int) error {
		if g.Nodes[start].state != unvisited {
			return nil
		}
		g.Nodes[start].state = visiting
		stack = append(stack[:0], frame{node: start})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			out := g.Nodes[top.node].Out
			if top.next < len(out) {
				w := out[top.next]
				top.next++
				switch g.Nodes[w].state {
				case visiting:
					return fmt.Errorf("edge %d -> %d: %w", top.node, w, locate.ErrCycleDetected)
				case unvisited:
					g.Nodes[w].state = visiting
					stack = append(stack, frame{node: w})
				}
				continue
			}
			g.Nodes[top.node].state = sorted
			post = append(post, top.node)
			stack = stack[:len(stack)-1]
		}
		return nil
	}

	for _, r := range g.Roots() {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	for i := range g.Nodes {
		if err := visit(i); err != nil {
			return nil, err
		}
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post, nil
}

// CriticalPath scores every node and returns the highest-scoring path as
// arena indexes, source first, with its score. A node's score is
//
//	best(v) = max(0, max best(u) over u→v) + hopCost + logL(v)
//
// so a path restarts wherever every predecessor is non-positive. The path
// ends at the first node in topological order holding the global maximum.
// An empty graph yields a nil path.
func CriticalPath(g *Graph, hopCost float64) ([]int, float64, error) {
	order, err := TopoSort(g)
	if err != nil {
		return nil, 0, err
	}
	if len(order) == 0 {
		return nil, 0, nil
	}

	end, endScore := -1, math.Inf(-1)
	for _, v := range order {
		n := &g.Nodes[v]
		n.Pred = -1
		carry := 0.0
		for _, u := range n.In {
			if b := g.Nodes[u].Best; b > carry {
				carry = b
				n.Pred = u
			}
		}
		n.Best = carry + hopCost + n.Estimate.LogLikelihood
		if n.Best > endScore {
			end, endScore = v, n.Best
		}
	}

	var path []int
	for v := end; v != -1; v = g.Nodes[v].Pred {
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, endScore, nil
}

// Reconstruct extracts the critical path of g as a track with its summary.
// ID and DeploymentID are left for the caller. When the graph has several
// disconnected components only the single best path is returned.
func Reconstruct(g *Graph, hopCost float64) (locate.Track, error) {
	path, score, err := CriticalPath(g, hopCost)
	if err != nil {
		return locate.Track{}, err
	}

	t := locate.Track{Score: score, Points: make([]locate.TrackPoint, 0, len(path))}
	for _, v := range path {
		est := g.Nodes[v].Estimate
		t.Points = append(t.Points, locate.TrackPoint{
			Time:          est.Time,
			Position:      est.Position,
			LogLikelihood: est.LogLikelihood,
		})
	}
	t.Summary = Summarize(t.Points)
	return t, nil
}
