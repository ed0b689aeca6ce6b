// Package store adapts the sqlc queries in internal/db/gen to the diagram
// domain types.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/archmap/archmap/internal/db/gen"
	"github.com/archmap/archmap/internal/diagram"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	gen.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db DB
	q  *gen.Queries
}

func New(db DB) *Store {
	return &Store{db: db, q: gen.New(db)}
}

// NewIntegration describes an integration to create together with one
// connection per listed type.
type NewIntegration struct {
	SourceAppID       int64
	TargetAppID       int64
	ConnectionTypeIDs []int64
}

func (s *Store) ListStreams(ctx context.Context) ([]diagram.Stream, error) {
	rows, err := s.q.ListStreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	out := make([]diagram.Stream, 0, len(rows))
	for _, r := range rows {
		out = append(out, streamFromRow(r))
	}
	return out, nil
}

func (s *Store) GetStream(ctx context.Context, id int64) (diagram.Stream, error) {
	row, err := s.q.GetStream(ctx, id)
	if err != nil {
		return diagram.Stream{}, notFound(err, "stream", id)
	}
	return streamFromRow(row), nil
}

// UpdateStreamColor sets or, for an empty color, clears a stream's color.
func (s *Store) UpdateStreamColor(ctx context.Context, id int64, color string) (diagram.Stream, error) {
	row, err := s.q.UpdateStreamColor(ctx, gen.UpdateStreamColorParams{
		ID:    id,
		Color: pgtype.Text{String: color, Valid: color != ""},
	})
	if err != nil {
		return diagram.Stream{}, notFound(err, "stream", id)
	}
	return streamFromRow(row), nil
}

func (s *Store) GetApp(ctx context.Context, id int64) (diagram.App, error) {
	row, err := s.q.GetApp(ctx, id)
	if err != nil {
		return diagram.App{}, notFound(err, "app", id)
	}
	return appFromRow(row), nil
}

func (s *Store) ListAppIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.q.ListAppIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list app ids: %w", err)
	}
	return ids, nil
}

func (s *Store) ListAppsByStream(ctx context.Context, streamID int64) ([]diagram.App, error) {
	rows, err := s.q.ListAppsByStream(ctx, pgtype.Int8{Int64: streamID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("list apps for stream %d: %w", streamID, err)
	}
	return appsFromRows(rows), nil
}

func (s *Store) ListAppsByIDs(ctx context.Context, ids []int64) ([]diagram.App, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.q.ListAppsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list apps by id: %w", err)
	}
	return appsFromRows(rows), nil
}

// ListIntegrationsForApps returns every integration touching one of appIDs,
// with connections populated.
func (s *Store) ListIntegrationsForApps(ctx context.Context, appIDs []int64) ([]diagram.Integration, error) {
	if len(appIDs) == 0 {
		return nil, nil
	}
	rows, err := s.q.ListIntegrationsForApps(ctx, appIDs)
	if err != nil {
		return nil, fmt.Errorf("list integrations for apps: %w", err)
	}
	return s.withConnections(ctx, s.q, rows)
}

// ListIntegrations returns every integration with connections populated.
func (s *Store) ListIntegrations(ctx context.Context) ([]diagram.Integration, error) {
	rows, err := s.q.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	return s.withConnections(ctx, s.q, rows)
}

func (s *Store) GetIntegration(ctx context.Context, id int64) (diagram.Integration, error) {
	row, err := s.q.GetIntegration(ctx, id)
	if err != nil {
		return diagram.Integration{}, notFound(err, "integration", id)
	}
	out, err := s.withConnections(ctx, s.q, []gen.Integration{row})
	if err != nil {
		return diagram.Integration{}, err
	}
	return out[0], nil
}

// CreateIntegration inserts an integration and its connections atomically.
func (s *Store) CreateIntegration(ctx context.Context, in NewIntegration) (diagram.Integration, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return diagram.Integration{}, fmt.Errorf("begin create integration: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.q.WithTx(tx)
	row, err := qtx.CreateIntegration(ctx, gen.CreateIntegrationParams{
		SourceAppID: in.SourceAppID,
		TargetAppID: in.TargetAppID,
	})
	if err != nil {
		return diagram.Integration{}, fmt.Errorf("create integration: %w", err)
	}
	for _, typeID := range in.ConnectionTypeIDs {
		if err := qtx.CreateConnection(ctx, gen.CreateConnectionParams{
			IntegrationID:    row.ID,
			ConnectionTypeID: pgtype.Int8{Int64: typeID, Valid: true},
		}); err != nil {
			if isForeignKeyViolation(err) {
				return diagram.Integration{}, &diagram.NotFoundError{Kind: "connection type", Key: strconv.FormatInt(typeID, 10)}
			}
			return diagram.Integration{}, fmt.Errorf("create connection: %w", err)
		}
	}
	out, err := s.withConnections(ctx, qtx, []gen.Integration{row})
	if err != nil {
		return diagram.Integration{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return diagram.Integration{}, fmt.Errorf("commit create integration: %w", err)
	}
	return out[0], nil
}

// DeleteIntegrations removes integrations by id in one statement and reports
// how many rows went away. Connections and functions cascade.
func (s *Store) DeleteIntegrations(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.q.DeleteIntegrations(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete integrations: %w", err)
	}
	return n, nil
}

func (s *Store) ListFunctionsForIntegrations(ctx context.Context, integrationIDs []int64) ([]diagram.Function, error) {
	if len(integrationIDs) == 0 {
		return nil, nil
	}
	rows, err := s.q.ListFunctionsForIntegrations(ctx, integrationIDs)
	if err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	out := make([]diagram.Function, 0, len(rows))
	for _, r := range rows {
		out = append(out, diagram.Function{
			ID:            r.ID,
			AppID:         r.AppID,
			IntegrationID: r.IntegrationID,
			Name:          r.Name,
		})
	}
	return out, nil
}

func (s *Store) ListConnectionTypes(ctx context.Context) ([]diagram.ConnectionType, error) {
	rows, err := s.q.ListConnectionTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connection types: %w", err)
	}
	out := make([]diagram.ConnectionType, 0, len(rows))
	for _, r := range rows {
		out = append(out, connectionTypeFromRow(r))
	}
	return out, nil
}

func (s *Store) GetConnectionType(ctx context.Context, id int64) (diagram.ConnectionType, error) {
	row, err := s.q.GetConnectionType(ctx, id)
	if err != nil {
		return diagram.ConnectionType{}, notFound(err, "connection type", id)
	}
	return connectionTypeFromRow(row), nil
}

// UpdateConnectionType renames and recolors a connection type. A name that
// collides case-insensitively with another type is a conflict.
func (s *Store) UpdateConnectionType(ctx context.Context, ct diagram.ConnectionType) (diagram.ConnectionType, error) {
	row, err := s.q.UpdateConnectionType(ctx, gen.UpdateConnectionTypeParams{
		ID:    ct.ID,
		Name:  ct.Name,
		Color: ct.Color,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return diagram.ConnectionType{}, &diagram.ConflictError{Reason: fmt.Sprintf("connection type name %q is already in use", ct.Name)}
		}
		return diagram.ConnectionType{}, notFound(err, "connection type", ct.ID)
	}
	return connectionTypeFromRow(row), nil
}

// DeleteConnectionType refuses to delete a type that any connection still
// references.
func (s *Store) DeleteConnectionType(ctx context.Context, id int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete connection type: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.q.WithTx(tx)
	inUse, err := qtx.CountConnectionsByType(ctx, pgtype.Int8{Int64: id, Valid: true})
	if err != nil {
		return fmt.Errorf("count connections by type: %w", err)
	}
	if inUse > 0 {
		return &diagram.ConflictError{Reason: fmt.Sprintf("connection type is used by %d connection(s)", inUse)}
	}
	n, err := qtx.DeleteConnectionType(ctx, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &diagram.ConflictError{Reason: "connection type is still referenced"}
		}
		return fmt.Errorf("delete connection type: %w", err)
	}
	if n == 0 {
		return &diagram.NotFoundError{Kind: "connection type", Key: strconv.FormatInt(id, 10)}
	}
	return tx.Commit(ctx)
}

func (s *Store) withConnections(ctx context.Context, q *gen.Queries, rows []gen.Integration) ([]diagram.Integration, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	conns, err := q.ListConnectionsForIntegrations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	byIntegration := make(map[int64][]diagram.Connection, len(rows))
	for _, c := range conns {
		byIntegration[c.IntegrationID] = append(byIntegration[c.IntegrationID], connectionFromRow(c))
	}
	out := make([]diagram.Integration, 0, len(rows))
	for _, r := range rows {
		out = append(out, diagram.Integration{
			ID:          r.ID,
			SourceAppID: r.SourceAppID,
			TargetAppID: r.TargetAppID,
			Connections: byIntegration[r.ID],
		})
	}
	return out, nil
}

func streamFromRow(r gen.Stream) diagram.Stream {
	return diagram.Stream{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		Color:             r.Color.String,
		AllowedForDiagram: r.IsAllowedForDiagram,
		SortOrder:         int(r.SortOrder),
	}
}

func appFromRow(r gen.App) diagram.App {
	a := diagram.App{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.AppType,
		Tags:        r.Tags,
	}
	if r.StreamID.Valid {
		id := r.StreamID.Int64
		a.StreamID = &id
	}
	return a
}

func appsFromRows(rows []gen.App) []diagram.App {
	out := make([]diagram.App, 0, len(rows))
	for _, r := range rows {
		out = append(out, appFromRow(r))
	}
	return out
}

func connectionTypeFromRow(r gen.ConnectionType) diagram.ConnectionType {
	return diagram.ConnectionType{ID: r.ID, Name: r.Name, Color: r.Color}
}

func connectionFromRow(r gen.Connection) diagram.Connection {
	c := diagram.Connection{
		ID:             r.ID,
		SourceInbound:  r.SourceInbound,
		SourceOutbound: r.SourceOutbound,
		TargetInbound:  r.TargetInbound,
		TargetOutbound: r.TargetOutbound,
	}
	if r.ConnectionTypeID.Valid {
		id := r.ConnectionTypeID.Int64
		c.ConnectionTypeID = &id
	}
	return c
}

func notFound(err error, kind string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &diagram.NotFoundError{Kind: kind, Key: strconv.FormatInt(id, 10)}
	}
	return fmt.Errorf("get %s %d: %w", kind, id, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
