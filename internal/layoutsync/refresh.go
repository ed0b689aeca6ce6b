package layoutsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/archmap/archmap/internal/cache"
	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/metrics"
)

const (
	passDuplicates = "duplicates"
	passInvalid    = "invalid"
	passLayout     = "layout"
)

// RefreshResult counts what a housekeeping run changed. A pass that failed
// is listed in FailedPasses and contributes zero to the counts.
type RefreshResult struct {
	DuplicatesRemoved int      `json:"duplicates_removed"`
	InvalidRemoved    int      `json:"invalid_removed"`
	EdgesSynced       int      `json:"edges_synced"`
	ColorsSynced      int      `json:"colors_synced"`
	NodesPruned       int      `json:"nodes_pruned"`
	Streams           int      `json:"streams"`
	FailedPasses      []string `json:"failed_passes,omitempty"`
}

func (r *RefreshResult) add(o RefreshResult) {
	r.DuplicatesRemoved += o.DuplicatesRemoved
	r.InvalidRemoved += o.InvalidRemoved
	r.EdgesSynced += o.EdgesSynced
	r.ColorsSynced += o.ColorsSynced
	r.NodesPruned += o.NodesPruned
	r.Streams += o.Streams
	r.FailedPasses = append(r.FailedPasses, o.FailedPasses...)
}

// RefreshStream runs the sweeper for one stream: integration dedup and
// orphan removal, then layout pruning, edge rebuild and color resync.
// Unknown or disallowed streams are rejected; failures inside a pass are
// logged and reported through FailedPasses.
func (s *Service) RefreshStream(ctx context.Context, name string) (RefreshResult, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
	}()

	stream, err := s.allowedStream(ctx, name)
	if err != nil {
		return RefreshResult{}, err
	}
	s.Cache.Invalidate(cache.StreamTopic(stream.Name))

	out := s.sweepIntegrations(ctx)
	out.add(s.syncStreamLayout(ctx, stream))
	return out, nil
}

// RefreshAll sweeps integrations once and then syncs the layout of every
// stream enabled for diagrams.
func (s *Service) RefreshAll(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("all").Observe(time.Since(start).Seconds())
	}()

	s.Cache.Flush()
	streams, err := s.Store.ListStreams(ctx)
	if err != nil {
		return RefreshResult{}, err
	}

	out := s.sweepIntegrations(ctx)
	for _, st := range streams {
		if !st.AllowedForDiagram {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.add(s.syncStreamLayout(ctx, st))
	}
	return out, nil
}

func (s *Service) allowedStream(ctx context.Context, name string) (diagram.Stream, error) {
	if diagram.StreamNodeID(name) == "" {
		return diagram.Stream{}, &diagram.ValidationError{Field: "stream", Reason: "stream name is required"}
	}
	streams, err := s.Store.ListStreams(ctx)
	if err != nil {
		return diagram.Stream{}, err
	}
	st, ok := diagram.FindStream(streams, name)
	if !ok {
		return diagram.Stream{}, &diagram.NotFoundError{Kind: "stream", Key: name}
	}
	if !st.AllowedForDiagram {
		return diagram.Stream{}, &diagram.ValidationError{Field: "stream", Reason: fmt.Sprintf("stream %q is not enabled for diagrams", st.Name)}
	}
	return st, nil
}

// sweepIntegrations deletes mirrored or repeated integrations and those
// whose endpoints no longer exist. Each pass is one DELETE statement.
func (s *Service) sweepIntegrations(ctx context.Context) RefreshResult {
	var out RefreshResult

	integrations, err := s.Store.ListIntegrations(ctx)
	if err != nil {
		s.passFailed(&out, passDuplicates, "", err)
		s.passFailed(&out, passInvalid, "", err)
		return out
	}

	dupes := diagram.FindDuplicateIntegrations(integrations)
	if n, err := s.deleteIntegrations(ctx, integrations, dupes); err != nil {
		s.passFailed(&out, passDuplicates, "", err)
	} else {
		out.DuplicatesRemoved = n
		metrics.SweepRemovedTotal.WithLabelValues(passDuplicates).Add(float64(n))
	}

	remaining := withoutIDs(integrations, dupes)
	appIDs, err := s.Store.ListAppIDs(ctx)
	if err != nil {
		s.passFailed(&out, passInvalid, "", err)
		return out
	}
	invalid := diagram.FindInvalidIntegrations(remaining, appIDs)
	if n, err := s.deleteIntegrations(ctx, remaining, invalid); err != nil {
		s.passFailed(&out, passInvalid, "", err)
	} else {
		out.InvalidRemoved = n
		metrics.SweepRemovedTotal.WithLabelValues(passInvalid).Add(float64(n))
	}
	return out
}

func (s *Service) deleteIntegrations(ctx context.Context, all []diagram.Integration, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.Store.DeleteIntegrations(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.Cache.Invalidate(integrationTopics(withIDs(all, ids))...)
	return int(n), nil
}

// syncStreamLayout prunes, rebuilds and recolors the stored layout of one
// stream, writing it back only if it changed.
func (s *Service) syncStreamLayout(ctx context.Context, stream diagram.Stream) RefreshResult {
	out := RefreshResult{Streams: 1}
	key := diagram.StreamLayoutKey(stream.Name)

	entities, err := diagram.Resolver{Source: s.Store}.ResolveStream(ctx, stream.Name)
	if err != nil {
		s.passFailed(&out, passLayout, stream.Name, err)
		return out
	}
	fresh := diagram.BuildStreamGraph(entities)

	stored, found, err := s.Layouts.GetLayout(ctx, key)
	if err != nil {
		s.passFailed(&out, passLayout, stream.Name, err)
		return out
	}
	base := stored.Blob
	if !found {
		base = diagram.SeedBlob(fresh, nil)
	}

	nodes, pruned := diagram.PruneNodesLayout(base.NodesLayout, fresh.NodeIDs())
	edges := diagram.SyncEdgesLayout(base.EdgesLayout, fresh.Edges)
	resolver, err := s.colorResolver(ctx, entities.Style.ConnectionTypes)
	if err != nil {
		s.passFailed(&out, passLayout, stream.Name, err)
		return out
	}
	edges, _ = diagram.ResyncEdgeColors(edges, resolver)
	edgeColors := diagram.CountEdgeColorChanges(base.EdgesLayout, edges)
	nodes, nodeColors := diagram.ResyncNodeColors(nodes, diagram.NodeBorderColors(fresh))

	next := diagram.LayoutBlob{NodesLayout: nodes, EdgesLayout: edges, Config: base.Config}
	next.Config = withCounts(next.Config, len(fresh.Nodes), len(fresh.Edges))

	if !found || !diagram.LayoutEqual(stored.Blob, next) {
		expected := stored.Version
		if _, err := s.Layouts.PutLayout(ctx, key, s.stamp(next), &expected); err != nil {
			if errors.Is(err, diagram.ErrLayoutVersionConflict) {
				metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "sweep", "conflict").Inc()
			} else {
				metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "sweep", "error").Inc()
			}
			s.passFailed(&out, passLayout, stream.Name, err)
			return out
		}
		metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "sweep", "ok").Inc()
	}

	out.NodesPruned = len(pruned)
	out.EdgesSynced = len(edges)
	out.ColorsSynced = edgeColors + nodeColors
	metrics.SweepRemovedTotal.WithLabelValues("nodes_pruned").Add(float64(len(pruned)))
	return out
}

// ResyncColors rewrites edge colors and node border colors in every stored
// layout after a connection type or stream color changed. Layouts that fail
// are logged and skipped. It returns how many edges and nodes changed.
func (s *Service) ResyncColors(ctx context.Context) (int, error) {
	layouts, err := s.Layouts.ListLayouts(ctx)
	if err != nil {
		return 0, err
	}
	types, err := s.Store.ListConnectionTypes(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]diagram.ConnectionType, len(types))
	for _, ct := range types {
		byID[ct.ID] = ct
	}
	resolver, err := s.colorResolver(ctx, byID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, l := range layouts {
		n, err := s.resyncLayoutColors(ctx, l, resolver)
		if err != nil {
			metrics.SweepPassFailuresTotal.WithLabelValues("colors").Inc()
			s.logger().Warn("layout color resync failed", "layout_kind", l.Key.Kind, "layout_key", l.Key.Key, "err", err)
			continue
		}
		total += n
	}
	return total, nil
}

func (s *Service) resyncLayoutColors(ctx context.Context, l diagram.StoredLayout, resolver diagram.ColorResolver) (int, error) {
	fresh, err := s.freshGraph(ctx, l.Key)
	if err != nil {
		if diagram.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	edges, edgeChanges := diagram.ResyncEdgeColors(l.Blob.EdgesLayout, resolver)
	nodes, nodeChanges := diagram.ResyncNodeColors(l.Blob.NodesLayout, diagram.NodeBorderColors(fresh))
	if edgeChanges+nodeChanges == 0 {
		return 0, nil
	}
	next := diagram.LayoutBlob{NodesLayout: nodes, EdgesLayout: edges, Config: l.Blob.Config}
	expected := l.Version
	if _, err := s.Layouts.PutLayout(ctx, l.Key, s.stamp(next), &expected); err != nil {
		return 0, err
	}
	metrics.LayoutWritesTotal.WithLabelValues(string(l.Key.Kind), "resync", "ok").Inc()
	return edgeChanges + nodeChanges, nil
}

func (s *Service) freshGraph(ctx context.Context, key diagram.LayoutKey) (diagram.Graph, error) {
	resolver := diagram.Resolver{Source: s.Store}
	switch key.Kind {
	case diagram.LayoutKindApp:
		id, ok := key.AppID()
		if !ok {
			return diagram.Graph{}, &diagram.NotFoundError{Kind: "app", Key: key.Key}
		}
		e, err := resolver.ResolveApp(ctx, id)
		if err != nil {
			return diagram.Graph{}, err
		}
		return diagram.BuildAppGraph(e), nil
	default:
		e, err := resolver.ResolveStream(ctx, key.Key)
		if err != nil {
			return diagram.Graph{}, err
		}
		return diagram.BuildStreamGraph(e), nil
	}
}

// colorResolver falls back to the current connections of an integration
// when a stored edge names neither a known type id nor a known type name.
func (s *Service) colorResolver(ctx context.Context, types map[int64]diagram.ConnectionType) (diagram.ColorResolver, error) {
	integrations, err := s.Store.ListIntegrations(ctx)
	if err != nil {
		return diagram.ColorResolver{}, err
	}
	byIntegration := make(map[int64]diagram.ConnectionType, len(integrations))
	for _, in := range integrations {
		for _, c := range in.Connections {
			if c.ConnectionTypeID == nil {
				continue
			}
			if ct, ok := types[*c.ConnectionTypeID]; ok {
				byIntegration[in.ID] = ct
				break
			}
		}
	}
	return diagram.NewColorResolver(types, func(id int64) (diagram.ConnectionType, bool) {
		ct, ok := byIntegration[id]
		return ct, ok
	}), nil
}

func (s *Service) passFailed(out *RefreshResult, pass, stream string, err error) {
	metrics.SweepPassFailuresTotal.WithLabelValues(pass).Inc()
	name := pass
	if stream != "" {
		name = pass + ":" + diagram.StreamNodeID(stream)
	}
	out.FailedPasses = append(out.FailedPasses, name)
	s.logger().Warn("housekeeping pass failed", "pass", pass, "stream", stream, "err", err)
}

func withCounts(config map[string]any, nodes, edges int) map[string]any {
	out := make(map[string]any, len(config)+2)
	for k, v := range config {
		out[k] = v
	}
	out[diagram.ConfigNodeCount] = nodes
	out[diagram.ConfigEdgeCount] = edges
	return out
}

func withIDs(integrations []diagram.Integration, ids []int64) []diagram.Integration {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []diagram.Integration
	for _, in := range integrations {
		if _, ok := want[in.ID]; ok {
			out = append(out, in)
		}
	}
	return out
}

func withoutIDs(integrations []diagram.Integration, ids []int64) []diagram.Integration {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]diagram.Integration, 0, len(integrations))
	for _, in := range integrations {
		if _, ok := drop[in.ID]; !ok {
			out = append(out, in)
		}
	}
	return out
}

func integrationTopics(integrations []diagram.Integration) []cache.Topic {
	seen := make(map[int64]struct{})
	var topics []cache.Topic
	for _, in := range integrations {
		for _, id := range []int64{in.SourceAppID, in.TargetAppID} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			topics = append(topics, cache.AppTopic(id))
		}
	}
	return topics
}
