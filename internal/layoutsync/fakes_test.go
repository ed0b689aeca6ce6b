package layoutsync

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/archmap/archmap/internal/cache"
	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/normalize"
	"github.com/archmap/archmap/internal/store"
)

// memStore is an in-memory Store holding the relational side.
type memStore struct {
	mu           sync.Mutex
	streams      []diagram.Stream
	apps         []diagram.App
	integrations []diagram.Integration
	functions    []diagram.Function
	types        []diagram.ConnectionType
	nextID       int64
}

func (m *memStore) ListStreams(context.Context) ([]diagram.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]diagram.Stream(nil), m.streams...), nil
}

func (m *memStore) GetStream(_ context.Context, id int64) (diagram.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		if s.ID == id {
			return s, nil
		}
	}
	return diagram.Stream{}, &diagram.NotFoundError{Kind: "stream", Key: strconv.FormatInt(id, 10)}
}

func (m *memStore) UpdateStreamColor(_ context.Context, id int64, color string) (diagram.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.streams {
		if m.streams[i].ID == id {
			m.streams[i].Color = color
			return m.streams[i], nil
		}
	}
	return diagram.Stream{}, &diagram.NotFoundError{Kind: "stream", Key: strconv.FormatInt(id, 10)}
}

func (m *memStore) GetApp(_ context.Context, id int64) (diagram.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.ID == id {
			return a, nil
		}
	}
	return diagram.App{}, &diagram.NotFoundError{Kind: "app", Key: strconv.FormatInt(id, 10)}
}

func (m *memStore) ListAppIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.apps))
	for _, a := range m.apps {
		out = append(out, a.ID)
	}
	return out, nil
}

func (m *memStore) ListAppsByStream(_ context.Context, streamID int64) ([]diagram.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []diagram.App
	for _, a := range m.apps {
		if a.StreamID != nil && *a.StreamID == streamID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListAppsByIDs(_ context.Context, ids []int64) ([]diagram.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := idSet(ids)
	var out []diagram.App
	for _, a := range m.apps {
		if _, ok := want[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListIntegrationsForApps(_ context.Context, appIDs []int64) ([]diagram.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := idSet(appIDs)
	var out []diagram.Integration
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

func (m *memStore) ListIntegrations(context.Context) ([]diagram.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]diagram.Integration(nil), m.integrations...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetIntegration(_ context.Context, id int64) (diagram.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.integrations {
		if in.ID == id {
			return in, nil
		}
	}
	return diagram.Integration{}, &diagram.NotFoundError{Kind: "integration", Key: strconv.FormatInt(id, 10)}
}

func (m *memStore) CreateIntegration(_ context.Context, in store.NewIntegration) (diagram.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	out := diagram.Integration{ID: 500 + m.nextID, SourceAppID: in.SourceAppID, TargetAppID: in.TargetAppID}
	for i, typeID := range in.ConnectionTypeIDs {
		out.Connections = append(out.Connections, conn(out.ID*10+int64(i), typeID))
	}
	m.integrations = append(m.integrations, out)
	return out, nil
}

func (m *memStore) DeleteIntegrations(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := idSet(ids)
	kept := m.integrations[:0]
	var n int64
	for _, in := range m.integrations {
		if _, ok := drop[in.ID]; ok {
			n++
			continue
		}
		kept = append(kept, in)
	}
	m.integrations = kept
	return n, nil
}

func (m *memStore) ListFunctionsForIntegrations(_ context.Context, ids []int64) ([]diagram.Function, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := idSet(ids)
	var out []diagram.Function
	for _, fn := range m.functions {
		if _, ok := want[fn.IntegrationID]; ok {
			out = append(out, fn)
		}
	}
	return out, nil
}

func (m *memStore) ListConnectionTypes(context.Context) ([]diagram.ConnectionType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]diagram.ConnectionType(nil), m.types...), nil
}

func (m *memStore) GetConnectionType(_ context.Context, id int64) (diagram.ConnectionType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ct := range m.types {
		if ct.ID == id {
			return ct, nil
		}
	}
	return diagram.ConnectionType{}, &diagram.NotFoundError{Kind: "connection type", Key: strconv.FormatInt(id, 10)}
}

func (m *memStore) UpdateConnectionType(_ context.Context, ct diagram.ConnectionType) (diagram.ConnectionType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.types {
		if m.types[i].ID == ct.ID {
			m.types[i] = ct
			return ct, nil
		}
	}
	return diagram.ConnectionType{}, &diagram.NotFoundError{Kind: "connection type", Key: strconv.FormatInt(ct.ID, 10)}
}

func (m *memStore) DeleteConnectionType(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.integrations {
		for _, c := range in.Connections {
			if c.ConnectionTypeID != nil && *c.ConnectionTypeID == id {
				return &diagram.ConflictError{Reason: "connection type is in use"}
			}
		}
	}
	for i, ct := range m.types {
		if ct.ID == id {
			m.types = append(m.types[:i], m.types[i+1:]...)
			return nil
		}
	}
	return &diagram.NotFoundError{Kind: "connection type", Key: strconv.FormatInt(id, 10)}
}

// memLayouts keeps layouts as encoded JSON documents so that reads see the
// same value shapes a database round trip produces.
type memLayouts struct {
	mu     sync.Mutex
	rows   map[diagram.LayoutKey]memLayoutRow
	puts   int
	putErr error
}

type memLayoutRow struct {
	nodes, edges, config []byte
	version              int64
}

func newMemLayouts() *memLayouts {
	return &memLayouts{rows: make(map[diagram.LayoutKey]memLayoutRow)}
}

func (m *memLayouts) GetLayout(_ context.Context, key diagram.LayoutKey) (diagram.StoredLayout, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok {
		return diagram.StoredLayout{}, false, nil
	}
	blob, err := diagram.DecodeLayout(row.nodes, row.edges, row.config)
	if err != nil {
		return diagram.StoredLayout{}, false, err
	}
	return diagram.StoredLayout{Key: key, Blob: blob, Version: row.version}, true, nil
}

func (m *memLayouts) ListLayouts(ctx context.Context) ([]diagram.StoredLayout, error) {
	m.mu.Lock()
	keys := make([]diagram.LayoutKey, 0, len(m.rows))
	for k := range m.rows {
		keys = append(keys, k)
	}
	m.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := make([]diagram.StoredLayout, 0, len(keys))
	for _, k := range keys {
		l, ok, err := m.GetLayout(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLayouts) PutLayout(_ context.Context, key diagram.LayoutKey, blob diagram.LayoutBlob, expectedVersion *int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return 0, m.putErr
	}
	row, exists := m.rows[key]
	if expectedVersion != nil {
		if *expectedVersion == 0 && exists {
			return 0, diagram.ErrLayoutVersionConflict
		}
		if *expectedVersion != 0 && (!exists || row.version != *expectedVersion) {
			return 0, diagram.ErrLayoutVersionConflict
		}
	}
	nodes, edges, config, err := diagram.EncodeLayout(blob)
	if err != nil {
		return 0, err
	}
	m.puts++
	m.rows[key] = memLayoutRow{nodes: nodes, edges: edges, config: config, version: row.version + 1}
	return row.version + 1, nil
}

func (m *memLayouts) DeleteLayout(_ context.Context, key diagram.LayoutKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[key]
	delete(m.rows, key)
	return ok, nil
}

func (m *memLayouts) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *memLayouts) raw(key diagram.LayoutKey) memLayoutRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key]
}

// edit rewrites a stored layout in place without bumping its version, as a
// stand-in for drift introduced outside the service.
func (m *memLayouts) edit(t *testing.T, key diagram.LayoutKey, fn func(*diagram.LayoutBlob)) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok {
		t.Fatalf("no stored layout for %s", key)
	}
	blob, err := diagram.DecodeLayout(row.nodes, row.edges, row.config)
	if err != nil {
		t.Fatal(err)
	}
	fn(&blob)
	row.nodes, row.edges, row.config, err = diagram.EncodeLayout(blob)
	if err != nil {
		t.Fatal(err)
	}
	m.rows[key] = row
}

func idSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func id64(v int64) *int64 { return &v }

func conn(id, typeID int64) diagram.Connection {
	return diagram.Connection{ID: id, ConnectionTypeID: id64(typeID)}
}

// spStore is stream "sp" with apps 1 and 2 integrated 1->2 as "direct", and
// app 3 of stream "Stream Edge" integrated 2->3 as "soa". Stream "hidden"
// is excluded from diagrams.
func spStore() *memStore {
	return &memStore{
		streams: []diagram.Stream{
			{ID: 10, Name: "sp", Color: "#ff0000", AllowedForDiagram: true},
			{ID: 20, Name: "Stream Edge", Color: "#00ff00", AllowedForDiagram: true},
			{ID: 30, Name: "hidden", Color: "#0000ff"},
		},
		apps: []diagram.App{
			{ID: 1, Name: "Core", StreamID: id64(10)},
			{ID: 2, Name: "Billing", StreamID: id64(10)},
			{ID: 3, Name: "Gateway", StreamID: id64(20)},
			{ID: 4, Name: "Vault", StreamID: id64(30)},
		},
		integrations: []diagram.Integration{
			{ID: 100, SourceAppID: 1, TargetAppID: 2, Connections: []diagram.Connection{conn(1000, 1)}},
			{ID: 101, SourceAppID: 2, TargetAppID: 3, Connections: []diagram.Connection{conn(1001, 2)}},
		},
		functions: []diagram.Function{
			{ID: 1, AppID: 2, IntegrationID: 100, Name: "invoice"},
			{ID: 2, AppID: 2, IntegrationID: 101, Name: "invoice"},
			{ID: 3, AppID: 3, IntegrationID: 101, Name: "route"},
		},
		types: []diagram.ConnectionType{
			{ID: 1, Name: "direct", Color: "#111111"},
			{ID: 2, Name: "soa", Color: "#222222"},
			{ID: 3, Name: "batch", Color: "#333333"},
		},
	}
}

type fixture struct {
	store   *memStore
	layouts *memLayouts
	svc     *Service
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	f := &fixture{store: spStore(), layouts: newMemLayouts()}
	var reg *cache.Registry
	if withCache {
		reg = cache.New(time.Minute)
	}
	f.svc = &Service{
		Store:   f.store,
		Layouts: f.layouts,
		Cache:   reg,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) },
	}
	return f
}

func nodeIDs(nodes []diagram.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	sort.Strings(out)
	return out
}

func edgeIDs(edges []diagram.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.ID)
	}
	sort.Strings(out)
	return out
}

func findEdge(edges []diagram.Edge, id string) (diagram.Edge, bool) {
	for _, e := range edges {
		if e.ID == id {
			return e, true
		}
	}
	return diagram.Edge{}, false
}

func findNode(nodes []diagram.Node, id string) (diagram.Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return diagram.Node{}, false
}

func borderColor(nl diagram.NodeLayout) string {
	if nl.Style == nil {
		return ""
	}
	return normalize.Lower(nl.Style.BorderColor)
}
