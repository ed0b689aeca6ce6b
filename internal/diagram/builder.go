package diagram

import (
	"math"
	"sort"
	"strings"

	"github.com/archmap/archmap/internal/normalize"
)

const (
	DefaultHomeBorderColor     = "#3b82f6"
	DefaultExternalBorderColor = "#6b7280"
	DefaultEdgeStroke          = "#000000"
	DirectConnectionLabel      = "direct"

	connectionLabelSeparator = " / "
	defaultEdgeType          = "smoothstep"
	defaultEdgeStrokeWidth   = 2
	defaultBorderWidth       = 2

	nodeWidth       = 180.0
	nodeHeight      = 60.0
	functionWidth   = 160.0
	functionHeight  = 40.0
	gridGap         = 40.0
	groupPadding    = 40.0
	groupHeader     = 60.0
	externalSpacing = 220.0

	groupBackground    = "rgba(59, 130, 246, 0.05)"
	homeBackground     = "#ffffff"
	externalBackground = "#f3f4f6"
)

// BuildStreamGraph draws a stream as a group node holding its home apps,
// with external apps placed on a ring around it.
func BuildStreamGraph(e StreamEntities) Graph {
	groupID := StreamNodeID(e.Stream.Name)
	groupColor := colorOr(e.Stream.Color, DefaultHomeBorderColor)

	cols, rows := gridShape(len(e.HomeApps))
	groupW := groupPadding*2 + float64(cols)*nodeWidth + float64(max(cols-1, 0))*gridGap
	groupH := groupHeader + groupPadding + float64(rows)*nodeHeight + float64(max(rows-1, 0))*gridGap

	group := newNode(groupID, "", StreamGroupData{
		Label:      e.Stream.Name,
		StreamID:   e.Stream.ID,
		StreamName: e.Stream.Name,
	})
	group.Style = NodeStyle{
		Background:  groupBackground,
		BorderColor: groupColor,
		BorderWidth: defaultBorderWidth,
		Width:       ptr(groupW),
		Height:      ptr(groupH),
	}

	nodes := make([]Node, 0, 1+len(e.HomeApps)+len(e.ExternalApps))
	nodes = append(nodes, group)

	for i, app := range e.HomeApps {
		n := newNode(AppNodeID(app.ID), groupID, AppData{
			Label:      app.Name,
			AppID:      app.ID,
			AppName:    app.Name,
			StreamName: e.Stream.Name,
			IsHome:     true,
		})
		n.Position = gridPosition(i, cols, nodeWidth, nodeHeight)
		n.Style = NodeStyle{
			Background:  homeBackground,
			BorderColor: groupColor,
			BorderWidth: defaultBorderWidth,
		}
		nodes = append(nodes, n)
	}

	center := Position{X: groupW / 2, Y: groupH / 2}
	radius := math.Max(groupW, groupH)/2 + externalSpacing
	for i, app := range e.ExternalApps {
		n := newNode(ExternalNodeID(app.ID), "", externalAppData(app, e.Style, false))
		n.Position = ringPosition(i, len(e.ExternalApps), center, radius, nodeWidth, nodeHeight)
		n.Style = externalStyle(app, e.Style)
		nodes = append(nodes, n)
	}

	home := make(map[int64]struct{}, len(e.HomeApps))
	for _, a := range e.HomeApps {
		home[a.ID] = struct{}{}
	}
	endpoint := func(appID int64, _ []int64) string {
		if _, ok := home[appID]; ok {
			return AppNodeID(appID)
		}
		return ExternalNodeID(appID)
	}
	return Graph{Nodes: nodes, Edges: BuildEdges(e.Integrations, appsByID(e.HomeApps, e.ExternalApps), endpoint, e.Style)}
}

// BuildAppGraph draws one app as a group holding its functions, with
// connected apps as external groups holding theirs. Edges attach to the
// first function of each side when the integration has one.
func BuildAppGraph(e AppEntities) Graph {
	homeID := AppNodeID(e.App.ID)
	homeColor := DefaultHomeBorderColor
	streamName := ""
	if st, ok := e.Style.streamOf(e.App); ok {
		homeColor = colorOr(st.Color, DefaultHomeBorderColor)
		streamName = st.Name
	}

	homeFns := dedupeFunctions(e.Functions)
	cols, rows := gridShape(len(homeFns))
	groupW := math.Max(nodeWidth, groupPadding*2+float64(cols)*functionWidth+float64(max(cols-1, 0))*gridGap)
	groupH := groupHeader + groupPadding + float64(rows)*functionHeight + float64(max(rows-1, 0))*gridGap

	home := newNode(homeID, "", AppData{
		Label:      e.App.Name,
		AppID:      e.App.ID,
		AppName:    e.App.Name,
		StreamName: streamName,
		IsHome:     true,
		Group:      true,
	})
	home.Style = NodeStyle{
		Background:  homeBackground,
		BorderColor: homeColor,
		BorderWidth: defaultBorderWidth,
		Width:       ptr(groupW),
		Height:      ptr(groupH),
	}

	nodes := []Node{home}
	seenFn := make(map[string]struct{})
	for i, fn := range homeFns {
		id := FunctionNodeID(fn.Name)
		seenFn[id] = struct{}{}
		n := newNode(id, homeID, FunctionData{
			Label:          fn.Name,
			FunctionName:   fn.Name,
			AppID:          e.App.ID,
			AppName:        e.App.Name,
			IsHome:         true,
			IntegrationIDs: fn.integrationIDs,
		})
		n.Position = gridPosition(i, cols, functionWidth, functionHeight)
		n.Style = NodeStyle{Background: homeBackground, BorderColor: homeColor, BorderWidth: 1}
		nodes = append(nodes, n)
	}

	extFns := make(map[int64][]groupedFunction)
	for _, fn := range dedupeFunctions(e.ExternalFunctions) {
		extFns[fn.AppID] = append(extFns[fn.AppID], fn)
	}

	center := Position{X: groupW / 2, Y: groupH / 2}
	radius := math.Max(groupW, groupH)/2 + externalSpacing
	for i, app := range e.ExternalApps {
		extID := ExternalNodeID(app.ID)
		fns := extFns[app.ID]
		ecols, erows := gridShape(len(fns))
		w := math.Max(nodeWidth, groupPadding*2+float64(ecols)*functionWidth+float64(max(ecols-1, 0))*gridGap)
		h := groupHeader + groupPadding + float64(erows)*functionHeight + float64(max(erows-1, 0))*gridGap
		if len(fns) == 0 {
			h = nodeHeight
		}
		n := newNode(extID, "", externalAppData(app, e.Style, true))
		n.Position = ringPosition(i, len(e.ExternalApps), center, radius, w, h)
		n.Style = externalStyle(app, e.Style)
		n.Style.Width = ptr(w)
		n.Style.Height = ptr(h)
		nodes = append(nodes, n)

		placed := 0
		for _, fn := range fns {
			id := FunctionNodeID(fn.Name)
			if _, ok := seenFn[id]; ok {
				continue
			}
			seenFn[id] = struct{}{}
			fnNode := newNode(id, extID, FunctionData{
				Label:          fn.Name,
				FunctionName:   fn.Name,
				AppID:          app.ID,
				AppName:        app.Name,
				IntegrationIDs: fn.integrationIDs,
			})
			fnNode.Position = gridPosition(placed, ecols, functionWidth, functionHeight)
			fnNode.Style = NodeStyle{Background: externalBackground, BorderColor: n.Style.BorderColor, BorderWidth: 1}
			nodes = append(nodes, fnNode)
			placed++
		}
	}

	// First function name per (app, integration), in row order.
	fnFor := make(map[[2]int64]string)
	for _, fn := range append(append([]Function(nil), e.Functions...), e.ExternalFunctions...) {
		key := [2]int64{fn.AppID, fn.IntegrationID}
		if _, ok := fnFor[key]; !ok {
			fnFor[key] = fn.Name
		}
	}
	endpoint := func(appID int64, integrationIDs []int64) string {
		for _, id := range integrationIDs {
			if name, ok := fnFor[[2]int64{appID, id}]; ok {
				return FunctionNodeID(name)
			}
		}
		if appID == e.App.ID {
			return homeID
		}
		return ExternalNodeID(appID)
	}
	apps := appsByID([]App{e.App}, e.ExternalApps)
	return Graph{Nodes: nodes, Edges: BuildEdges(e.Integrations, apps, endpoint, e.Style)}
}

// EndpointFunc maps an app id to the node id an edge attaches to, given the
// integrations the edge represents.
type EndpointFunc func(appID int64, integrationIDs []int64) string

// BuildEdges produces one edge per ordered (source, target) pair. Several
// integrations with the same orientation merge into one edge carrying all
// their connections.
func BuildEdges(integrations []Integration, apps map[int64]App, endpoint EndpointFunc, style StyleContext) []Edge {
	type bucket struct {
		source, target int64
		ids            []int64
		connections    []Connection
	}
	order := make([]string, 0, len(integrations))
	buckets := make(map[string]*bucket, len(integrations))
	for _, in := range integrations {
		id := EdgeID(in.SourceAppID, in.TargetAppID)
		b, ok := buckets[id]
		if !ok {
			b = &bucket{source: in.SourceAppID, target: in.TargetAppID}
			buckets[id] = b
			order = append(order, id)
		}
		b.ids = append(b.ids, in.ID)
		b.connections = append(b.connections, in.Connections...)
	}

	edges := make([]Edge, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		sort.Slice(b.ids, func(i, j int) bool { return b.ids[i] < b.ids[j] })
		label, typeID, color := ConnectionLabel(b.connections, style.ConnectionTypes)
		edges = append(edges, Edge{
			ID:     id,
			Source: endpoint(b.source, b.ids),
			Target: endpoint(b.target, b.ids),
			Type:   defaultEdgeType,
			Style:  EdgeStyle{Stroke: DefaultEdgeStroke, StrokeWidth: defaultEdgeStrokeWidth},
			Data: EdgeData{
				IntegrationID:    b.ids[0],
				IntegrationIDs:   b.ids,
				SourceAppID:      b.source,
				TargetAppID:      b.target,
				SourceAppName:    apps[b.source].Name,
				TargetAppName:    apps[b.target].Name,
				ConnectionType:   label,
				ConnectionTypeID: typeID,
				Color:            color,
				Connections:      summarizeConnections(b.connections, style.ConnectionTypes),
			},
		})
	}
	return edges
}

// ConnectionLabel joins the distinct connection-type names in connection
// order. The type id is set only when exactly one type is involved; the
// color is that of the first resolved type.
func ConnectionLabel(connections []Connection, types map[int64]ConnectionType) (label string, typeID *int64, color string) {
	var names []string
	var ids []int64
	seen := make(map[int64]struct{})
	for _, c := range connections {
		if c.ConnectionTypeID == nil {
			continue
		}
		ct, ok := types[*c.ConnectionTypeID]
		if !ok {
			continue
		}
		if _, dup := seen[ct.ID]; dup {
			continue
		}
		seen[ct.ID] = struct{}{}
		names = append(names, ct.Name)
		ids = append(ids, ct.ID)
		if color == "" {
			color = normalize.Color(ct.Color)
		}
	}
	if len(names) == 0 {
		return DirectConnectionLabel, nil, DefaultEdgeStroke
	}
	if len(ids) == 1 {
		typeID = ptr(ids[0])
	}
	if color == "" {
		color = DefaultEdgeStroke
	}
	return strings.Join(names, connectionLabelSeparator), typeID, color
}

func summarizeConnections(connections []Connection, types map[int64]ConnectionType) []ConnectionSummary {
	if len(connections) == 0 {
		return nil
	}
	out := make([]ConnectionSummary, 0, len(connections))
	for _, c := range connections {
		s := ConnectionSummary{
			ConnectionType: DirectConnectionLabel,
			SourceInbound:  c.SourceInbound,
			SourceOutbound: c.SourceOutbound,
			TargetInbound:  c.TargetInbound,
			TargetOutbound: c.TargetOutbound,
		}
		if c.ConnectionTypeID != nil {
			if ct, ok := types[*c.ConnectionTypeID]; ok {
				s.ConnectionTypeID = ptr(ct.ID)
				s.ConnectionType = ct.Name
			}
		}
		out = append(out, s)
	}
	return out
}

// NodeBorderColors returns the derived border color of every node in g.
func NodeBorderColors(g Graph) map[string]string {
	out := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.ID] = n.Style.BorderColor
	}
	return out
}

type groupedFunction struct {
	Function
	integrationIDs []int64
}

// dedupeFunctions collapses functions sharing a name, keeping the first row
// and collecting every integration id.
func dedupeFunctions(fns []Function) []groupedFunction {
	index := make(map[string]int, len(fns))
	out := make([]groupedFunction, 0, len(fns))
	for _, fn := range fns {
		id := FunctionNodeID(fn.Name)
		if i, ok := index[id]; ok {
			out[i].integrationIDs = appendUnique(out[i].integrationIDs, fn.IntegrationID)
			continue
		}
		index[id] = len(out)
		out = append(out, groupedFunction{Function: fn, integrationIDs: []int64{fn.IntegrationID}})
	}
	return out
}

func externalAppData(app App, style StyleContext, group bool) AppData {
	d := AppData{Label: app.Name, AppID: app.ID, AppName: app.Name, Group: group}
	if st, ok := style.streamOf(app); ok {
		d.StreamName = st.Name
	}
	return d
}

func externalStyle(app App, style StyleContext) NodeStyle {
	color := DefaultExternalBorderColor
	if st, ok := style.streamOf(app); ok {
		color = colorOr(st.Color, DefaultExternalBorderColor)
	}
	return NodeStyle{Background: externalBackground, BorderColor: color, BorderWidth: defaultBorderWidth}
}

func appsByID(groups ...[]App) map[int64]App {
	out := make(map[int64]App)
	for _, g := range groups {
		for _, a := range g {
			out[a.ID] = a
		}
	}
	return out
}

func gridShape(n int) (cols, rows int) {
	if n <= 0 {
		return 1, 1
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// gridPosition places item i of a grid relative to its parent group.
func gridPosition(i, cols int, w, h float64) Position {
	col := i % cols
	row := i / cols
	return Position{
		X: groupPadding + float64(col)*(w+gridGap),
		Y: groupHeader + float64(row)*(h+gridGap),
	}
}

// ringPosition spreads n items evenly on a circle, starting at twelve o'clock.
func ringPosition(i, n int, center Position, radius, w, h float64) Position {
	if n <= 0 {
		return center
	}
	angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
	return Position{
		X: math.Round(center.X + radius*math.Cos(angle) - w/2),
		Y: math.Round(center.Y + radius*math.Sin(angle) - h/2),
	}
}

func colorOr(color, fallback string) string {
	if c := normalize.Color(color); c != "" {
		return c
	}
	return fallback
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func ptr[T any](v T) *T {
	return &v
}
