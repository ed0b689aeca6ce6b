package diagram

import (
	"sort"

	"github.com/archmap/archmap/internal/normalize"
)

const (
	ConfigNodeCount = "node_count"
	ConfigEdgeCount = "edge_count"
)

// ReconcileResult is the display graph plus the layout blob that should be
// persisted for it. Changed is false when the blob equals the stored one by
// value, in which case nothing needs to be written.
type ReconcileResult struct {
	Graph   Graph
	Blob    LayoutBlob
	Changed bool
	Seeded  bool
	Added   []string
	Dropped []string
}

// Reconcile merges a freshly built graph with a stored layout. Stored
// geometry, style overrides and edge handles win; derived fields (names,
// labels, colors) always come from the fresh graph. Nodes and edges absent
// from the fresh graph are dropped. The stored blob is never mutated.
func Reconcile(fresh Graph, stored *LayoutBlob) ReconcileResult {
	if stored == nil || len(stored.NodesLayout) == 0 {
		var config map[string]any
		if stored != nil {
			config = stored.Config
		}
		blob := SeedBlob(fresh, config)
		changed := stored == nil || !LayoutEqual(*stored, blob)
		added := make([]string, 0, len(fresh.Nodes))
		for _, n := range fresh.Nodes {
			added = append(added, n.ID)
		}
		return ReconcileResult{
			Graph:   cloneGraph(fresh),
			Blob:    blob,
			Changed: changed,
			Seeded:  true,
			Added:   added,
		}
	}

	out := ReconcileResult{
		Graph: Graph{
			Nodes: make([]Node, 0, len(fresh.Nodes)),
			Edges: make([]Edge, 0, len(fresh.Edges)),
		},
	}
	nodesLayout := make(map[string]NodeLayout, len(fresh.Nodes))
	for _, n := range fresh.Nodes {
		if nl, ok := stored.NodesLayout[n.ID]; ok {
			n.Position = nl.Position
			n.Style = overlayNodeStyle(n.Style, nl.Style)
		} else {
			out.Added = append(out.Added, n.ID)
		}
		nodesLayout[n.ID] = layoutOf(n)
		out.Graph.Nodes = append(out.Graph.Nodes, n)
	}

	freshIDs := fresh.NodeIDs()
	for id := range stored.NodesLayout {
		if _, ok := freshIDs[id]; !ok {
			out.Dropped = append(out.Dropped, id)
		}
	}
	sort.Strings(out.Dropped)

	storedEdges := indexEdges(stored.EdgesLayout)
	for _, e := range fresh.Edges {
		if prev, ok := storedEdges[e.ID]; ok {
			e = mergeEdge(e, prev)
		}
		out.Graph.Edges = append(out.Graph.Edges, e)
	}

	out.Blob = LayoutBlob{
		NodesLayout: nodesLayout,
		EdgesLayout: cloneEdges(out.Graph.Edges),
		Config:      withCounts(stored.Config, len(out.Graph.Nodes), len(out.Graph.Edges)),
	}
	out.Changed = !LayoutEqual(*stored, out.Blob)
	return out
}

// SeedBlob synthesizes a first layout from a fresh graph's default geometry.
func SeedBlob(g Graph, config map[string]any) LayoutBlob {
	nodes := make(map[string]NodeLayout, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = layoutOf(n)
	}
	return LayoutBlob{
		NodesLayout: nodes,
		EdgesLayout: cloneEdges(g.Edges),
		Config:      withCounts(config, len(g.Nodes), len(g.Edges)),
	}
}

func layoutOf(n Node) NodeLayout {
	style := cloneNodeStyle(n.Style)
	return NodeLayout{Position: n.Position, Style: &style}
}

// overlayNodeStyle applies stored style overrides. Border color is derived
// from the owning stream and is never taken from the stored layout.
func overlayNodeStyle(fresh NodeStyle, stored *NodeStyle) NodeStyle {
	out := cloneNodeStyle(fresh)
	if stored == nil {
		return out
	}
	if stored.Background != "" {
		out.Background = stored.Background
	}
	if stored.BorderWidth != 0 {
		out.BorderWidth = stored.BorderWidth
	}
	if stored.Width != nil {
		out.Width = ptr(*stored.Width)
	}
	if stored.Height != nil {
		out.Height = ptr(*stored.Height)
	}
	return out
}

// mergeEdge keeps the user-authored parts of a stored edge (handles, type,
// stroke width and a non-tracking stroke) on top of the fresh edge.
func mergeEdge(fresh, stored Edge) Edge {
	out := cloneEdge(fresh)
	out.SourceHandle = clonePtr(stored.SourceHandle)
	out.TargetHandle = clonePtr(stored.TargetHandle)
	if stored.Type != "" {
		out.Type = stored.Type
	}
	if stored.Style.StrokeWidth != 0 {
		out.Style.StrokeWidth = stored.Style.StrokeWidth
	}
	out.Style.Stroke = edgeStroke(stored.Style.Stroke, stored.Data.Color, fresh.Data.Color, fresh.Style.Stroke)
	return out
}

// edgeStroke resolves the stroke of a stored edge. A stroke that matched the
// stored connection-type color follows that color; a neutral or custom
// stroke is kept as is.
func edgeStroke(storedStroke, storedColor, freshColor, defaultStroke string) string {
	if normalize.Trim(storedStroke) == "" {
		return defaultStroke
	}
	if isTrackingStroke(storedStroke, storedColor) && freshColor != "" {
		return freshColor
	}
	return storedStroke
}

func isTrackingStroke(stroke, color string) bool {
	if normalize.EqualFoldTrimmed(stroke, DefaultEdgeStroke) {
		return false
	}
	return normalize.Trim(color) != "" && normalize.EqualFoldTrimmed(stroke, color)
}

func indexEdges(edges []Edge) map[string]Edge {
	out := make(map[string]Edge, len(edges))
	for _, e := range edges {
		if _, dup := out[e.ID]; dup {
			continue
		}
		out[e.ID] = e
	}
	return out
}

func withCounts(config map[string]any, nodes, edges int) map[string]any {
	out := make(map[string]any, len(config)+2)
	for k, v := range config {
		out[k] = v
	}
	out[ConfigNodeCount] = nodes
	out[ConfigEdgeCount] = edges
	return out
}

func cloneGraph(g Graph) Graph {
	nodes := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		n.Style = cloneNodeStyle(n.Style)
		nodes = append(nodes, n)
	}
	return Graph{Nodes: nodes, Edges: cloneEdges(g.Edges)}
}

func cloneNodeStyle(s NodeStyle) NodeStyle {
	s.Width = clonePtr(s.Width)
	s.Height = clonePtr(s.Height)
	return s
}

func cloneEdges(edges []Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, cloneEdge(e))
	}
	return out
}

func cloneEdge(e Edge) Edge {
	e.SourceHandle = clonePtr(e.SourceHandle)
	e.TargetHandle = clonePtr(e.TargetHandle)
	e.Data.ConnectionTypeID = clonePtr(e.Data.ConnectionTypeID)
	if e.Data.IntegrationIDs != nil {
		e.Data.IntegrationIDs = append([]int64(nil), e.Data.IntegrationIDs...)
	}
	if e.Data.Connections != nil {
		conns := make([]ConnectionSummary, 0, len(e.Data.Connections))
		for _, c := range e.Data.Connections {
			c.ConnectionTypeID = clonePtr(c.ConnectionTypeID)
			conns = append(conns, c)
		}
		e.Data.Connections = conns
	}
	return e
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
