package diagram

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func spGraph(t *testing.T) Graph {
	t.Helper()
	return BuildStreamGraph(resolveSP(t))
}

func strPtr(s string) *string { return &s }

func TestReconcile_SeedsWhenNoLayout(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	res := Reconcile(fresh, nil)
	if !res.Seeded || !res.Changed {
		t.Fatalf("Seeded=%v Changed=%v, want both true", res.Seeded, res.Changed)
	}
	if len(res.Blob.NodesLayout) != len(fresh.Nodes) {
		t.Fatalf("seeded %d nodes, want %d", len(res.Blob.NodesLayout), len(fresh.Nodes))
	}
	if got := res.Blob.Config[ConfigNodeCount]; got != len(fresh.Nodes) {
		t.Fatalf("node_count = %v, want %d", got, len(fresh.Nodes))
	}
	if got := res.Blob.Config[ConfigEdgeCount]; got != len(fresh.Edges) {
		t.Fatalf("edge_count = %v, want %d", got, len(fresh.Edges))
	}
}

func TestReconcile_SeedsWhenStoredNodesEmpty(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := LayoutBlob{Config: map[string]any{"zoom": 1.5}}
	res := Reconcile(fresh, &stored)
	if !res.Seeded {
		t.Fatal("expected seeding for empty stored nodes")
	}
	if res.Blob.Config["zoom"] != 1.5 {
		t.Fatalf("config not carried over: %+v", res.Blob.Config)
	}
}

func TestReconcile_GeometryIsSticky(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := SeedBlob(fresh, nil)
	nl := stored.NodesLayout["1"]
	nl.Position = Position{X: 500, Y: 250}
	nl.Style = &NodeStyle{Background: "#fafafa", BorderColor: "#999999", BorderWidth: 4, Width: ptr(300.0)}
	stored.NodesLayout["1"] = nl

	res := Reconcile(fresh, &stored)
	n, _ := nodeByID(res.Graph, "1")
	if n.Position != (Position{X: 500, Y: 250}) {
		t.Fatalf("position = %+v, want stored", n.Position)
	}
	if n.Style.Background != "#fafafa" || n.Style.BorderWidth != 4 || n.Style.Width == nil || *n.Style.Width != 300 {
		t.Fatalf("style = %+v, want stored overrides", n.Style)
	}
	if n.Style.BorderColor != "#ff0000" {
		t.Fatalf("border color = %q, want derived stream color", n.Style.BorderColor)
	}
	if res.Blob.NodesLayout["1"].Position != (Position{X: 500, Y: 250}) {
		t.Fatalf("blob position = %+v", res.Blob.NodesLayout["1"].Position)
	}
}

func TestReconcile_DerivedFieldsFreshHandlesKept(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := SeedBlob(fresh, nil)
	for i := range stored.EdgesLayout {
		e := &stored.EdgesLayout[i]
		if e.ID != "2-3" {
			continue
		}
		e.SourceHandle = strPtr("right")
		e.TargetHandle = strPtr("left")
		e.Type = "step"
		e.Data.ConnectionType = "legacy"
		e.Data.SourceAppName = "Old Billing"
		e.Data.Color = "#333333"
		e.Style.Stroke = "#333333"
	}

	res := Reconcile(fresh, &stored)
	e, ok := edgeByID(res.Graph.Edges, "2-3")
	if !ok {
		t.Fatal("missing edge 2-3")
	}
	if e.SourceHandle == nil || *e.SourceHandle != "right" || e.TargetHandle == nil || *e.TargetHandle != "left" {
		t.Fatalf("handles = %v/%v, want stored", e.SourceHandle, e.TargetHandle)
	}
	if e.Type != "step" {
		t.Fatalf("type = %q, want stored", e.Type)
	}
	if e.Data.ConnectionType != "soa" || e.Data.SourceAppName != "Billing" || e.Data.Color != "#222222" {
		t.Fatalf("data = %+v, want fresh", e.Data)
	}
	if e.Style.Stroke != "#222222" {
		t.Fatalf("stroke = %q, want tracking stroke to follow new color", e.Style.Stroke)
	}
	if !res.Changed {
		t.Fatal("expected Changed for stale derived fields")
	}
}

func TestReconcile_CustomStrokeKept(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := SeedBlob(fresh, nil)
	for i := range stored.EdgesLayout {
		if stored.EdgesLayout[i].ID == "1-2" {
			stored.EdgesLayout[i].Style.Stroke = "#ff00ff"
			stored.EdgesLayout[i].Data.Color = "#333333"
		}
	}
	res := Reconcile(fresh, &stored)
	e, _ := edgeByID(res.Graph.Edges, "1-2")
	if e.Style.Stroke != "#ff00ff" {
		t.Fatalf("stroke = %q, want custom stroke kept", e.Style.Stroke)
	}
}

func TestReconcile_DropsPhantoms(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := SeedBlob(fresh, nil)
	stored.NodesLayout["ext-99"] = NodeLayout{Position: Position{X: 1, Y: 1}}
	stored.EdgesLayout = append(stored.EdgesLayout, Edge{ID: "2-99", Source: "2", Target: "ext-99"})

	res := Reconcile(fresh, &stored)
	if diff := cmp.Diff([]string{"ext-99"}, res.Dropped); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}
	if _, ok := res.Blob.NodesLayout["ext-99"]; ok {
		t.Fatal("phantom node kept in blob")
	}
	if _, ok := edgeByID(res.Blob.EdgesLayout, "2-99"); ok {
		t.Fatal("phantom edge kept in blob")
	}
	if _, ok := nodeByID(res.Graph, "ext-99"); ok {
		t.Fatal("phantom node rendered")
	}
	if !res.Changed {
		t.Fatal("expected Changed when phantoms are dropped")
	}
}

func TestReconcile_AddsNewNodesWithDefaults(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := SeedBlob(fresh, nil)
	delete(stored.NodesLayout, "ext-3")

	res := Reconcile(fresh, &stored)
	if diff := cmp.Diff([]string{"ext-3"}, res.Added); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}
	want, _ := nodeByID(fresh, "ext-3")
	if got := res.Blob.NodesLayout["ext-3"].Position; got != want.Position {
		t.Fatalf("position = %+v, want default %+v", got, want.Position)
	}
}

func TestReconcile_IsIdempotent(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := SeedBlob(fresh, map[string]any{"zoom": 0.75})
	nl := stored.NodesLayout["2"]
	nl.Position = Position{X: 42, Y: 24}
	stored.NodesLayout["2"] = nl
	stored.NodesLayout["ghost"] = NodeLayout{}

	first := Reconcile(fresh, &stored)
	if !first.Changed {
		t.Fatal("first reconciliation should change the blob")
	}

	// Round-trip through JSON the way a persisted blob would be read back.
	nodes, edges, config, err := EncodeLayout(first.Blob)
	if err != nil {
		t.Fatalf("EncodeLayout() error = %v", err)
	}
	reloaded, err := DecodeLayout(nodes, edges, config)
	if err != nil {
		t.Fatalf("DecodeLayout() error = %v", err)
	}

	second := Reconcile(fresh, &reloaded)
	if second.Changed {
		t.Fatal("second reconciliation should be a no-op")
	}
	if !LayoutEqual(first.Blob, second.Blob) {
		t.Fatal("blobs differ between reconciliations")
	}
	if diff := cmp.Diff(first.Graph, second.Graph); diff != "" {
		t.Fatalf("graphs differ (-first +second):\n%s", diff)
	}
}

func TestReconcile_DoesNotMutateStored(t *testing.T) {
	t.Parallel()

	fresh := spGraph(t)
	stored := SeedBlob(fresh, nil)
	stored.EdgesLayout[0].SourceHandle = strPtr("top")
	before, err := json.Marshal(stored)
	if err != nil {
		t.Fatal(err)
	}

	res := Reconcile(fresh, &stored)
	*res.Graph.Edges[0].SourceHandle = "bottom"
	res.Blob.NodesLayout["1"] = NodeLayout{}

	after, err := json.Marshal(stored)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("stored blob was mutated")
	}
}

func TestLayoutEqual_NilVersusEmpty(t *testing.T) {
	t.Parallel()

	if !LayoutEqual(LayoutBlob{}, LayoutBlob{NodesLayout: map[string]NodeLayout{}, EdgesLayout: []Edge{}, Config: map[string]any{}}) {
		t.Fatal("nil and empty collections should compare equal")
	}
	a := LayoutBlob{Config: map[string]any{"node_count": 3}}
	b := LayoutBlob{Config: map[string]any{"node_count": 3.0}}
	if !LayoutEqual(a, b) {
		t.Fatal("int and float counts should compare equal")
	}
}
