// Package layoutsync serves diagrams and keeps persisted layouts consistent
// with the relational inventory.
package layoutsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/archmap/archmap/internal/auth"
	"github.com/archmap/archmap/internal/cache"
	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/metrics"
	"github.com/archmap/archmap/internal/store"
)

// ConfigUpdatedAt is the layout config key stamped on every write.
const ConfigUpdatedAt = "updated_at"

// Store is the relational side consumed by the service.
type Store interface {
	diagram.Source
	GetStream(ctx context.Context, id int64) (diagram.Stream, error)
	UpdateStreamColor(ctx context.Context, id int64, color string) (diagram.Stream, error)
	ListAppIDs(ctx context.Context) ([]int64, error)
	ListIntegrations(ctx context.Context) ([]diagram.Integration, error)
	GetIntegration(ctx context.Context, id int64) (diagram.Integration, error)
	CreateIntegration(ctx context.Context, in store.NewIntegration) (diagram.Integration, error)
	DeleteIntegrations(ctx context.Context, ids []int64) (int64, error)
	GetConnectionType(ctx context.Context, id int64) (diagram.ConnectionType, error)
	UpdateConnectionType(ctx context.Context, ct diagram.ConnectionType) (diagram.ConnectionType, error)
	DeleteConnectionType(ctx context.Context, id int64) error
}

// LayoutStore persists layout blobs. PutLayout follows the versioning rules
// of store.Store.PutLayout.
type LayoutStore interface {
	GetLayout(ctx context.Context, key diagram.LayoutKey) (diagram.StoredLayout, bool, error)
	ListLayouts(ctx context.Context) ([]diagram.StoredLayout, error)
	PutLayout(ctx context.Context, key diagram.LayoutKey, blob diagram.LayoutBlob, expectedVersion *int64) (int64, error)
	DeleteLayout(ctx context.Context, key diagram.LayoutKey) (bool, error)
}

type Service struct {
	Store   Store
	Layouts LayoutStore
	Cache   *cache.Registry
	Logger  *slog.Logger
	Now     func() time.Time
}

// Diagram is the read model returned to callers. Layout is only set for
// callers allowed to edit it.
type Diagram struct {
	Nodes    []diagram.Node      `json:"nodes"`
	Edges    []diagram.Edge      `json:"edges"`
	Layout   *diagram.LayoutBlob `json:"layout"`
	Metadata Metadata            `json:"metadata"`
}

type Metadata struct {
	Kind      diagram.LayoutKind `json:"kind"`
	Key       string             `json:"key"`
	Title     string             `json:"title,omitempty"`
	NodeCount int                `json:"node_count"`
	EdgeCount int                `json:"edge_count"`
	Version   int64              `json:"version,omitempty"`
	CanEdit   bool               `json:"can_edit"`
	Seeded    bool               `json:"seeded,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`
}

// GetDiagram resolves ref as an app id when it is a positive integer and as
// a stream name otherwise.
func (s *Service) GetDiagram(ctx context.Context, ref string, role string) (Diagram, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return s.GetAppDiagram(ctx, id, role)
	}
	return s.GetStreamDiagram(ctx, ref, role)
}

// GetStreamDiagram draws a stream. An unknown stream yields an empty diagram
// flagged in its metadata; a stream excluded from diagrams is rejected.
func (s *Service) GetStreamDiagram(ctx context.Context, name string, role string) (Diagram, error) {
	start := time.Now()
	key := diagram.StreamLayoutKey(name)
	if key.Key == "" {
		metrics.DiagramReadsTotal.WithLabelValues(string(diagram.LayoutKindStream), "invalid").Inc()
		return Diagram{}, &diagram.ValidationError{Field: "stream", Reason: "stream name is required"}
	}

	entities, err := s.streamEntities(ctx, name)
	if err != nil {
		if diagram.IsNotFound(err) {
			metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "not_found").Inc()
			return emptyDiagram(key, err), nil
		}
		metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "error").Inc()
		return Diagram{}, err
	}
	if !entities.Stream.AllowedForDiagram {
		metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "invalid").Inc()
		return Diagram{}, &diagram.ValidationError{
			Field:  "stream",
			Reason: fmt.Sprintf("stream %q is not enabled for diagrams", entities.Stream.Name),
		}
	}

	d, err := s.render(ctx, key, diagram.BuildStreamGraph(entities), role)
	if err != nil {
		metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "error").Inc()
		return Diagram{}, err
	}
	d.Metadata.Title = entities.Stream.Name
	metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "ok").Inc()
	metrics.DiagramBuildDuration.WithLabelValues(string(key.Kind)).Observe(time.Since(start).Seconds())
	return d, nil
}

// GetAppDiagram draws one app with its functions and integration partners.
func (s *Service) GetAppDiagram(ctx context.Context, appID int64, role string) (Diagram, error) {
	start := time.Now()
	key := diagram.AppLayoutKey(appID)
	if appID <= 0 {
		metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "invalid").Inc()
		return Diagram{}, &diagram.ValidationError{Field: "app", Reason: "app id must be a positive integer"}
	}

	entities, err := s.appEntities(ctx, appID)
	if err != nil {
		if diagram.IsNotFound(err) {
			metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "not_found").Inc()
			return emptyDiagram(key, err), nil
		}
		metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "error").Inc()
		return Diagram{}, err
	}

	d, err := s.render(ctx, key, diagram.BuildAppGraph(entities), role)
	if err != nil {
		metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "error").Inc()
		return Diagram{}, err
	}
	d.Metadata.Title = entities.App.Name
	metrics.DiagramReadsTotal.WithLabelValues(string(key.Kind), "ok").Inc()
	metrics.DiagramBuildDuration.WithLabelValues(string(key.Kind)).Observe(time.Since(start).Seconds())
	return d, nil
}

// render reconciles fresh against the stored layout and writes the patch
// back when it differs. The write is conditional on the version that was
// read; losing that race is not an error for the reader.
func (s *Service) render(ctx context.Context, key diagram.LayoutKey, fresh diagram.Graph, role string) (Diagram, error) {
	stored, found, err := s.Layouts.GetLayout(ctx, key)
	if err != nil {
		return Diagram{}, err
	}
	var prev *diagram.LayoutBlob
	if found {
		prev = &stored.Blob
	}

	res := diagram.Reconcile(fresh, prev)
	version := stored.Version
	blob := res.Blob
	if res.Changed {
		expected := stored.Version
		stamped := s.stamp(res.Blob)
		v, err := s.Layouts.PutLayout(ctx, key, stamped, &expected)
		switch {
		case errors.Is(err, diagram.ErrLayoutVersionConflict):
			metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "reconcile", "conflict").Inc()
			s.logger().Debug("layout changed concurrently, skipping write-back", "layout_kind", key.Kind, "layout_key", key.Key)
		case err != nil:
			metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "reconcile", "error").Inc()
			s.logger().Warn("layout write-back failed", "layout_kind", key.Kind, "layout_key", key.Key, "err", err)
		default:
			metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "reconcile", "ok").Inc()
			version = v
			blob = stamped
		}
	}

	d := Diagram{
		Nodes: nonNilNodes(res.Graph.Nodes),
		Edges: nonNilEdges(res.Graph.Edges),
		Metadata: Metadata{
			Kind:      key.Kind,
			Key:       key.Key,
			NodeCount: len(res.Graph.Nodes),
			EdgeCount: len(res.Graph.Edges),
			Version:   version,
			Seeded:    res.Seeded,
		},
	}
	if canEdit(role) {
		d.Layout = &blob
		d.Metadata.CanEdit = true
	}
	return d, nil
}

func (s *Service) streamEntities(ctx context.Context, name string) (diagram.StreamEntities, error) {
	resolver := diagram.Resolver{Source: s.Store}
	return cache.Load[diagram.StreamEntities](ctx, s.Cache, "stream-entities:"+diagram.StreamNodeID(name),
		func(ctx context.Context) (diagram.StreamEntities, []cache.Topic, error) {
			e, err := resolver.ResolveStream(ctx, name)
			if err != nil {
				return e, nil, err
			}
			topics := []cache.Topic{cache.StreamTopic(e.Stream.Name), cache.StreamsAll, cache.ConnectionTypesAll}
			for _, id := range e.AppIDs() {
				topics = append(topics, cache.AppTopic(id))
			}
			return e, topics, nil
		})
}

func (s *Service) appEntities(ctx context.Context, appID int64) (diagram.AppEntities, error) {
	resolver := diagram.Resolver{Source: s.Store}
	return cache.Load[diagram.AppEntities](ctx, s.Cache, "app-entities:"+strconv.FormatInt(appID, 10),
		func(ctx context.Context) (diagram.AppEntities, []cache.Topic, error) {
			e, err := resolver.ResolveApp(ctx, appID)
			if err != nil {
				return e, nil, err
			}
			topics := []cache.Topic{cache.StreamsAll, cache.ConnectionTypesAll}
			for _, id := range e.AppIDs() {
				topics = append(topics, cache.AppTopic(id))
			}
			return e, topics, nil
		})
}

// stamp records the write time in the layout config. It is applied after
// change detection so that timestamps never cause a write on their own.
func (s *Service) stamp(b diagram.LayoutBlob) diagram.LayoutBlob {
	out := b.Normalized()
	out.Config[ConfigUpdatedAt] = s.now().UTC().Format(time.RFC3339)
	return out
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func canEdit(role string) bool {
	return auth.Principal{Role: auth.NormalizeRole(role)}.CanEditLayouts()
}

func emptyDiagram(key diagram.LayoutKey, err error) Diagram {
	return Diagram{
		Nodes: []diagram.Node{},
		Edges: []diagram.Edge{},
		Metadata: Metadata{
			Kind:      key.Kind,
			Key:       key.Key,
			Error:     err.Error(),
			ErrorKind: "not_found",
		},
	}
}

func nonNilNodes(nodes []diagram.Node) []diagram.Node {
	if nodes == nil {
		return []diagram.Node{}
	}
	return nodes
}

func nonNilEdges(edges []diagram.Edge) []diagram.Edge {
	if edges == nil {
		return []diagram.Edge{}
	}
	return edges
}
