package track

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/banshee-data/radiotrack/internal/locate"
)

const snapshotVersion = 1

type snapshot struct {
	Version int            `msgpack:"v"`
	Nodes   []snapshotNode `msgpack:"nodes"`
}

type snapshotNode struct {
	Time       float64  `msgpack:"t"`
	X          float64  `msgpack:"x"`
	Y          float64  `msgpack:"y"`
	Likelihood float64  `msgpack:"l"`
	LogL       float64  `msgpack:"ll"`
	Sites      []string `msgpack:"sites,omitempty"`
	RecordIDs  []int64  `msgpack:"records,omitempty"`
	Out        []int    `msgpack:"out,omitempty"`
	Best       float64  `msgpack:"best"`
	Pred       int      `msgpack:"pred"`
}

// MarshalSnapshot encodes the arena, including scores from the last
// reconstruction, for storage alongside a run.
func (g *Graph) MarshalSnapshot() ([]byte, error) {
	snap := snapshot{Version: snapshotVersion, Nodes: make([]snapshotNode, len(g.Nodes))}
	for i, n := range g.Nodes {
		sn := snapshotNode{
			Time:       n.Estimate.Time,
			X:          n.Estimate.Position.X,
			Y:          n.Estimate.Position.Y,
			Likelihood: n.Estimate.Likelihood,
			LogL:       n.Estimate.LogLikelihood,
			RecordIDs:  n.Estimate.RecordIDs,
			Out:        n.Out,
			Best:       n.Best,
			Pred:       n.Pred,
		}
		for _, s := range n.Estimate.Sites {
			sn.Sites = append(sn.Sites, string(s))
		}
		snap.Nodes[i] = sn
	}
	b, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("encode graph snapshot: %w", err)
	}
	return b, nil
}

// UnmarshalSnapshot rebuilds a graph from MarshalSnapshot output. Incoming
// edge lists are derived from the stored outgoing ones.
func UnmarshalSnapshot(b []byte) (*Graph, error) {
	var snap snapshot
	if err := msgpack.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode graph snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported graph snapshot version %d", snap.Version)
	}

	g := &Graph{Nodes: make([]Node, len(snap.Nodes))}
	for i, sn := range snap.Nodes {
		if sn.Pred < -1 || sn.Pred >= len(snap.Nodes) {
			return nil, fmt.Errorf("graph snapshot node %d predecessor %d out of range", i, sn.Pred)
		}
		est := locate.PositionEstimate{
			Time:          sn.Time,
			Position:      locate.Point{X: sn.X, Y: sn.Y},
			Likelihood:    sn.Likelihood,
			LogLikelihood: sn.LogL,
			RecordIDs:     sn.RecordIDs,
		}
		for _, s := range sn.Sites {
			est.Sites = append(est.Sites, locate.SiteID(s))
		}
		g.Nodes[i] = Node{Estimate: est, Best: sn.Best, Pred: sn.Pred}
	}
	for u, sn := range snap.Nodes {
		for _, v := range sn.Out {
			if v < 0 || v >= len(g.Nodes) {
				return nil, fmt.Errorf("graph snapshot edge %d -> %d out of range", u, v)
			}
			g.addEdge(u, v)
		}
	}
	return g, nil
}
