package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/archmap/archmap/internal/db/gen"
	"github.com/archmap/archmap/internal/diagram"
)

// GetLayout loads the layout stored under key. The boolean is false when no
// layout exists yet.
func (s *Store) GetLayout(ctx context.Context, key diagram.LayoutKey) (diagram.StoredLayout, bool, error) {
	row, err := s.q.GetDiagramLayout(ctx, gen.GetDiagramLayoutParams{
		ScopeKind: string(key.Kind),
		ScopeKey:  key.Key,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return diagram.StoredLayout{}, false, nil
		}
		return diagram.StoredLayout{}, false, fmt.Errorf("get layout %s: %w", key, err)
	}
	layout, err := layoutFromRow(row)
	if err != nil {
		return diagram.StoredLayout{}, false, err
	}
	return layout, true, nil
}

func (s *Store) ListLayouts(ctx context.Context) ([]diagram.StoredLayout, error) {
	rows, err := s.q.ListDiagramLayouts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	out := make([]diagram.StoredLayout, 0, len(rows))
	for _, r := range rows {
		layout, err := layoutFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, layout)
	}
	return out, nil
}

// PutLayout writes a layout and returns its new version.
//
// With a nil expectedVersion the write is an unconditional upsert. An
// expected version of 0 only creates a new row, and any other value only
// updates a row still at that version. A failed precondition returns
// diagram.ErrLayoutVersionConflict.
func (s *Store) PutLayout(ctx context.Context, key diagram.LayoutKey, blob diagram.LayoutBlob, expectedVersion *int64) (int64, error) {
	nodes, edges, config, err := diagram.EncodeLayout(blob)
	if err != nil {
		return 0, err
	}

	switch {
	case expectedVersion == nil:
		version, err := s.q.UpsertDiagramLayout(ctx, gen.UpsertDiagramLayoutParams{
			ScopeKind:   string(key.Kind),
			ScopeKey:    key.Key,
			NodesLayout: nodes,
			EdgesLayout: edges,
			Config:      config,
		})
		if err != nil {
			return 0, fmt.Errorf("upsert layout %s: %w", key, err)
		}
		return version, nil
	case *expectedVersion == 0:
		version, err := s.q.InsertDiagramLayout(ctx, gen.InsertDiagramLayoutParams{
			ScopeKind:   string(key.Kind),
			ScopeKey:    key.Key,
			NodesLayout: nodes,
			EdgesLayout: edges,
			Config:      config,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, diagram.ErrLayoutVersionConflict
			}
			return 0, fmt.Errorf("insert layout %s: %w", key, err)
		}
		return version, nil
	default:
		version, err := s.q.UpdateDiagramLayoutIfVersion(ctx, gen.UpdateDiagramLayoutIfVersionParams{
			ScopeKind:       string(key.Kind),
			ScopeKey:        key.Key,
			NodesLayout:     nodes,
			EdgesLayout:     edges,
			Config:          config,
			ExpectedVersion: *expectedVersion,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, diagram.ErrLayoutVersionConflict
			}
			return 0, fmt.Errorf("update layout %s: %w", key, err)
		}
		return version, nil
	}
}

// DeleteLayout removes a stored layout and reports whether one existed.
func (s *Store) DeleteLayout(ctx context.Context, key diagram.LayoutKey) (bool, error) {
	n, err := s.q.DeleteDiagramLayout(ctx, gen.DeleteDiagramLayoutParams{
		ScopeKind: string(key.Kind),
		ScopeKey:  key.Key,
	})
	if err != nil {
		return false, fmt.Errorf("delete layout %s: %w", key, err)
	}
	return n > 0, nil
}

func layoutFromRow(r gen.DiagramLayout) (diagram.StoredLayout, error) {
	blob, err := diagram.DecodeLayout(r.NodesLayout, r.EdgesLayout, r.Config)
	if err != nil {
		return diagram.StoredLayout{}, fmt.Errorf("layout %s:%s: %w", r.ScopeKind, r.ScopeKey, err)
	}
	return diagram.StoredLayout{
		Key:     diagram.LayoutKey{Kind: diagram.LayoutKind(r.ScopeKind), Key: r.ScopeKey},
		Blob:    blob,
		Version: r.Version,
	}, nil
}
