package diagram

import (
	"context"
	"sort"
)

// memSource is an in-memory Source used by the package tests.
type memSource struct {
	streams      []Stream
	apps         []App
	integrations []Integration
	functions    []Function
	types        []ConnectionType
}

func (m *memSource) ListStreams(context.Context) ([]Stream, error) {
	return append([]Stream(nil), m.streams...), nil
}

func (m *memSource) GetApp(_ context.Context, id int64) (App, error) {
	for _, a := range m.apps {
		if a.ID == id {
			return a, nil
		}
	}
	return App{}, &NotFoundError{Kind: "app"}
}

func (m *memSource) ListAppsByStream(_ context.Context, streamID int64) ([]App, error) {
	var out []App
	for _, a := range m.apps {
		if a.StreamID != nil && *a.StreamID == streamID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memSource) ListAppsByIDs(_ context.Context, ids []int64) ([]App, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []App
	for _, a := range m.apps {
		if _, ok := want[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memSource) ListIntegrationsForApps(_ context.Context, appIDs []int64) ([]Integration, error) {
	want := make(map[int64]struct{}, len(appIDs))
	for _, id := range appIDs {
		want[id] = struct{}{}
	}
	var out []Integration
	for _, in := range m.integrations {
		_, s := want[in.SourceAppID]
		_, t := want[in.TargetAppID]
		if s || t {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSource) ListFunctionsForIntegrations(_ context.Context, ids []int64) ([]Function, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []Function
	for _, fn := range m.functions {
		if _, ok := want[fn.IntegrationID]; ok {
			out = append(out, fn)
		}
	}
	return out, nil
}

func (m *memSource) ListConnectionTypes(context.Context) ([]ConnectionType, error) {
	return append([]ConnectionType(nil), m.types...), nil
}

func id64(v int64) *int64 { return &v }

func conn(id, typeID int64) Connection {
	return Connection{ID: id, ConnectionTypeID: id64(typeID)}
}

// spScenario is stream "sp" with apps 1 and 2, integration 1->2 of type
// "direct", and app 3 of another stream integrated 2->3 with type "soa".
func spScenario() *memSource {
	return &memSource{
		streams: []Stream{
			{ID: 10, Name: "sp", Color: "#ff0000", AllowedForDiagram: true},
			{ID: 20, Name: "Stream Edge", Color: "#00ff00", AllowedForDiagram: true},
		},
		apps: []App{
			{ID: 1, Name: "Core", StreamID: id64(10)},
			{ID: 2, Name: "Billing", StreamID: id64(10)},
			{ID: 3, Name: "Gateway", StreamID: id64(20)},
		},
		integrations: []Integration{
			{ID: 100, SourceAppID: 1, TargetAppID: 2, Connections: []Connection{conn(1000, 1)}},
			{ID: 101, SourceAppID: 2, TargetAppID: 3, Connections: []Connection{conn(1001, 2)}},
		},
		types: []ConnectionType{
			{ID: 1, Name: "direct", Color: "#111111"},
			{ID: 2, Name: "soa", Color: "#222222"},
		},
	}
}

func nodeByID(g Graph, id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func edgeByID(edges []Edge, id string) (Edge, bool) {
	for _, e := range edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

func sortedNodeIDs(g Graph) []string {
	out := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n.ID)
	}
	sort.Strings(out)
	return out
}

func sortedEdgeIDs(edges []Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.ID)
	}
	sort.Strings(out)
	return out
}
