package layoutsync

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/metrics"
)

// SaveLayoutRequest is a client-authored layout. ExpectedVersion selects the
// write mode: nil overwrites unconditionally, 0 only creates, and any other
// value only replaces a layout still at that version.
type SaveLayoutRequest struct {
	Key             diagram.LayoutKey
	NodesLayout     map[string]diagram.NodeLayout
	EdgesLayout     []diagram.Edge
	Config          map[string]any
	ExpectedVersion *int64
}

type SaveLayoutResult struct {
	Key     diagram.LayoutKey `json:"-"`
	Version int64             `json:"version"`
}

// SaveLayout stores a layout as sent by the client. The target stream or
// app must exist; stale entries are left for the next reconciliation to
// drop.
func (s *Service) SaveLayout(ctx context.Context, req SaveLayoutRequest) (SaveLayoutResult, error) {
	if err := validateLayout(req); err != nil {
		metrics.LayoutWritesTotal.WithLabelValues(string(req.Key.Kind), "save", "invalid").Inc()
		return SaveLayoutResult{}, err
	}
	if err := s.ensureTarget(ctx, req.Key); err != nil {
		metrics.LayoutWritesTotal.WithLabelValues(string(req.Key.Kind), "save", "invalid").Inc()
		return SaveLayoutResult{}, err
	}

	blob := s.stamp(diagram.LayoutBlob{
		NodesLayout: req.NodesLayout,
		EdgesLayout: req.EdgesLayout,
		Config:      req.Config,
	})
	version, err := s.Layouts.PutLayout(ctx, req.Key, blob, req.ExpectedVersion)
	if err != nil {
		if errors.Is(err, diagram.ErrLayoutVersionConflict) {
			metrics.LayoutWritesTotal.WithLabelValues(string(req.Key.Kind), "save", "conflict").Inc()
			return SaveLayoutResult{}, &diagram.ConflictError{Reason: "layout was modified by someone else; reload and try again"}
		}
		metrics.LayoutWritesTotal.WithLabelValues(string(req.Key.Kind), "save", "error").Inc()
		return SaveLayoutResult{}, err
	}
	metrics.LayoutWritesTotal.WithLabelValues(string(req.Key.Kind), "save", "ok").Inc()
	return SaveLayoutResult{Key: req.Key, Version: version}, nil
}

// ResetLayout deletes a stored layout so that the next read seeds a fresh
// one. It reports whether a layout existed.
func (s *Service) ResetLayout(ctx context.Context, key diagram.LayoutKey) (bool, error) {
	if key.Key == "" {
		return false, &diagram.ValidationError{Field: "key", Reason: "layout key is required"}
	}
	deleted, err := s.Layouts.DeleteLayout(ctx, key)
	if err != nil {
		metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "reset", "error").Inc()
		return false, err
	}
	metrics.LayoutWritesTotal.WithLabelValues(string(key.Kind), "reset", "ok").Inc()
	s.logger().Info("layout reset", "layout_kind", key.Kind, "layout_key", key.Key, "deleted", deleted)
	return deleted, nil
}

func (s *Service) ensureTarget(ctx context.Context, key diagram.LayoutKey) error {
	switch key.Kind {
	case diagram.LayoutKindStream:
		e, err := s.streamEntities(ctx, key.Key)
		if err != nil {
			return err
		}
		if !e.Stream.AllowedForDiagram {
			return &diagram.ValidationError{Field: "stream", Reason: fmt.Sprintf("stream %q is not enabled for diagrams", e.Stream.Name)}
		}
		return nil
	case diagram.LayoutKindApp:
		id, ok := key.AppID()
		if !ok {
			return &diagram.ValidationError{Field: "key", Reason: "app id must be a positive integer"}
		}
		_, err := s.Store.GetApp(ctx, id)
		return err
	default:
		return &diagram.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown layout kind %q", key.Kind)}
	}
}

func validateLayout(req SaveLayoutRequest) error {
	if req.Key.Key == "" {
		return &diagram.ValidationError{Field: "key", Reason: "layout key is required"}
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion < 0 {
		return &diagram.ValidationError{Field: "expected_version", Reason: "must not be negative"}
	}
	for id, nl := range req.NodesLayout {
		if id == "" {
			return &diagram.ValidationError{Field: "nodes_layout", Reason: "node id must not be empty"}
		}
		if !finite(nl.Position.X) || !finite(nl.Position.Y) {
			return &diagram.ValidationError{Field: "nodes_layout", Reason: fmt.Sprintf("node %q has a non-finite position", id)}
		}
		if st := nl.Style; st != nil {
			if (st.Width != nil && (!finite(*st.Width) || *st.Width < 0)) || (st.Height != nil && (!finite(*st.Height) || *st.Height < 0)) {
				return &diagram.ValidationError{Field: "nodes_layout", Reason: fmt.Sprintf("node %q has an invalid size", id)}
			}
		}
	}
	seen := make(map[string]struct{}, len(req.EdgesLayout))
	for _, e := range req.EdgesLayout {
		if e.ID == "" {
			return &diagram.ValidationError{Field: "edges_layout", Reason: "edge id must not be empty"}
		}
		if _, dup := seen[e.ID]; dup {
			return &diagram.ValidationError{Field: "edges_layout", Reason: fmt.Sprintf("edge %q appears more than once", e.ID)}
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
