package layoutsync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/archmap/archmap/internal/auth"
	"github.com/archmap/archmap/internal/diagram"
)

func TestRefreshStreamSweepsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	ctx := context.Background()
	key := diagram.StreamLayoutKey("sp")
	if _, err := f.svc.GetDiagram(ctx, "sp", auth.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	// An entry left behind for the endpoint of an integration to a deleted app.
	f.layouts.edit(t, key, func(b *diagram.LayoutBlob) {
		b.NodesLayout[diagram.ExternalNodeID(99)] = diagram.NodeLayout{Position: diagram.Position{X: 400, Y: 80}}
	})
	f.store.integrations = append(f.store.integrations,
		diagram.Integration{ID: 102, SourceAppID: 2, TargetAppID: 1, Connections: []diagram.Connection{conn(1002, 3)}},
		diagram.Integration{ID: 103, SourceAppID: 1, TargetAppID: 99},
	)

	first, err := f.svc.RefreshStream(ctx, "sp")
	if err != nil {
		t.Fatalf("RefreshStream() error = %v", err)
	}
	want := RefreshResult{DuplicatesRemoved: 1, InvalidRemoved: 1, EdgesSynced: 2, NodesPruned: 1, Streams: 1}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("first refresh mismatch (-want +got):\n%s", diff)
	}
	remaining, _ := f.store.ListIntegrations(ctx)
	if len(remaining) != 2 || remaining[0].ID != 100 || remaining[1].ID != 101 {
		t.Fatalf("integrations after sweep = %+v", remaining)
	}
	stored, _, err := f.layouts.GetLayout(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stored.Blob.NodesLayout["ext-99"]; ok {
		t.Fatal("ext-99 survived the invalid-integration sweep")
	}

	before := f.layouts.raw(key)
	writes := f.layouts.putCount()

	second, err := f.svc.RefreshStream(ctx, "sp")
	if err != nil {
		t.Fatalf("second RefreshStream() error = %v", err)
	}
	want = RefreshResult{EdgesSynced: 2, Streams: 1}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Fatalf("second refresh mismatch (-want +got):\n%s", diff)
	}
	after := f.layouts.raw(key)
	if diff := cmp.Diff(before, after, cmp.AllowUnexported(memLayoutRow{})); diff != "" {
		t.Fatalf("stored blob changed on idempotent refresh:\n%s", diff)
	}
	if f.layouts.putCount() != writes {
		t.Fatal("idempotent refresh wrote the layout")
	}
}

func TestRefreshStreamPrunesAndRecolors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	ctx := context.Background()
	key := diagram.StreamLayoutKey("sp")
	if _, err := f.svc.GetDiagram(ctx, "sp", auth.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	f.layouts.edit(t, key, func(b *diagram.LayoutBlob) {
		b.NodesLayout["ghost"] = diagram.NodeLayout{Position: diagram.Position{X: 1, Y: 1}}
		nl := b.NodesLayout["1"]
		nl.Style.BorderColor = "#000000"
		b.NodesLayout["1"] = nl
		b.EdgesLayout = append(b.EdgesLayout, diagram.Edge{ID: "9-9", Source: "9", Target: "9"})
	})

	res, err := f.svc.RefreshStream(ctx, "sp")
	if err != nil {
		t.Fatalf("RefreshStream() error = %v", err)
	}
	want := RefreshResult{EdgesSynced: 2, ColorsSynced: 1, NodesPruned: 1, Streams: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("refresh mismatch (-want +got):\n%s", diff)
	}

	stored, ok, err := f.layouts.GetLayout(ctx, key)
	if err != nil || !ok {
		t.Fatalf("GetLayout() = %v, %v", ok, err)
	}
	if _, ok := stored.Blob.NodesLayout["ghost"]; ok {
		t.Fatal("phantom node survived the sweep")
	}
	if got := borderColor(stored.Blob.NodesLayout["1"]); got != "#ff0000" {
		t.Fatalf("node 1 border = %q, want #ff0000", got)
	}
	if diff := cmp.Diff([]string{"1-2", "2-3"}, edgeIDs(stored.Blob.EdgesLayout)); diff != "" {
		t.Fatalf("stored edges mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshStreamKeepsConnectionlessEdgeColor(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	ctx := context.Background()
	key := diagram.StreamLayoutKey("sp")
	f.store.integrations = append(f.store.integrations,
		diagram.Integration{ID: 104, SourceAppID: 1, TargetAppID: 4},
	)

	if _, err := f.svc.RefreshStream(ctx, "sp"); err != nil {
		t.Fatalf("RefreshStream() error = %v", err)
	}
	second, err := f.svc.RefreshStream(ctx, "sp")
	if err != nil {
		t.Fatalf("second RefreshStream() error = %v", err)
	}
	want := RefreshResult{EdgesSynced: 3, Streams: 1}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Fatalf("second refresh mismatch (-want +got):\n%s", diff)
	}

	stored, _, err := f.layouts.GetLayout(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := findEdge(stored.Blob.EdgesLayout, "1-4")
	if !ok {
		t.Fatalf("edge 1-4 missing from %v", edgeIDs(stored.Blob.EdgesLayout))
	}
	if e.Data.Color != diagram.DefaultEdgeStroke || e.Style.Stroke != diagram.DefaultEdgeStroke {
		t.Fatalf("edge 1-4 color=%q stroke=%q, want %q", e.Data.Color, e.Style.Stroke, diagram.DefaultEdgeStroke)
	}

	writes := f.layouts.putCount()
	for i := 0; i < 2; i++ {
		if _, err := f.svc.GetDiagram(ctx, "sp", auth.RoleAdmin); err != nil {
			t.Fatal(err)
		}
		if _, err := f.svc.RefreshStream(ctx, "sp"); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.layouts.putCount(); got != writes {
		t.Fatalf("reads and refreshes wrote %d times, want 0", got-writes)
	}
}

func TestRefreshStreamCountsStaleEdgeColors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	ctx := context.Background()
	key := diagram.StreamLayoutKey("sp")
	if _, err := f.svc.RefreshStream(ctx, "sp"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.UpdateConnectionType(ctx, diagram.ConnectionType{ID: 2, Name: "soa", Color: "#abcdef"}); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.RefreshStream(ctx, "sp")
	if err != nil {
		t.Fatalf("RefreshStream() error = %v", err)
	}
	want := RefreshResult{EdgesSynced: 2, ColorsSynced: 1, Streams: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("refresh mismatch (-want +got):\n%s", diff)
	}

	stored, _, err := f.layouts.GetLayout(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := findEdge(stored.Blob.EdgesLayout, "2-3")
	if !ok || e.Data.Color != "#abcdef" {
		t.Fatalf("edge 2-3 = %+v, want color #abcdef", e)
	}

	again, err := f.svc.RefreshStream(ctx, "sp")
	if err != nil {
		t.Fatal(err)
	}
	if again.ColorsSynced != 0 {
		t.Fatalf("ColorsSynced after resync = %d, want 0", again.ColorsSynced)
	}
}

func TestRefreshStreamRejectsUnknownAndHidden(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	if _, err := f.svc.RefreshStream(context.Background(), "nope"); !diagram.IsNotFound(err) {
		t.Fatalf("RefreshStream(nope) error = %v, want not found", err)
	}
	if _, err := f.svc.RefreshStream(context.Background(), "hidden"); !diagram.IsValidation(err) {
		t.Fatalf("RefreshStream(hidden) error = %v, want validation", err)
	}
}

func TestRefreshStreamReportsFailedLayoutPass(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.layouts.putErr = errors.New("disk full")

	res, err := f.svc.RefreshStream(context.Background(), "sp")
	if err != nil {
		t.Fatalf("RefreshStream() error = %v", err)
	}
	want := RefreshResult{Streams: 1, FailedPasses: []string{"layout:sp"}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("refresh mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshAllCoversAllowedStreams(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.store.integrations = append(f.store.integrations,
		diagram.Integration{ID: 102, SourceAppID: 3, TargetAppID: 2},
	)

	res, err := f.svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	want := RefreshResult{DuplicatesRemoved: 1, EdgesSynced: 3, Streams: 2}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("refresh mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"sp", "Stream Edge"} {
		if _, ok, _ := f.layouts.GetLayout(context.Background(), diagram.StreamLayoutKey(name)); !ok {
			t.Fatalf("no layout stored for %q", name)
		}
	}
	if _, ok, _ := f.layouts.GetLayout(context.Background(), diagram.StreamLayoutKey("hidden")); ok {
		t.Fatal("hidden stream got a layout")
	}
}
