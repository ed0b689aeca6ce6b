// Package diagram derives node-and-edge graphs from inventory records and
// reconciles them with persisted, user-editable layouts.
package diagram

// Stream groups apps and supplies the default border color of its members.
type Stream struct {
	ID                int64
	Name              string
	Description       string
	Color             string
	AllowedForDiagram bool
	SortOrder         int
}

// App is an inventoried application. StreamID is nil for unassigned apps.
type App struct {
	ID          int64
	Name        string
	Description string
	StreamID    *int64
	Type        string
	Tags        []string
}

// ConnectionType labels and colors connections.
type ConnectionType struct {
	ID    int64
	Name  string
	Color string
}

// Connection is one typed link inside an integration.
type Connection struct {
	ID               int64
	ConnectionTypeID *int64
	SourceInbound    string
	SourceOutbound   string
	TargetInbound    string
	TargetOutbound   string
}

// Integration relates two apps. Orientation is stable as stored.
type Integration struct {
	ID          int64
	SourceAppID int64
	TargetAppID int64
	Connections []Connection
}

// Function is a named capability of an app bound to one integration.
type Function struct {
	ID            int64
	AppID         int64
	IntegrationID int64
	Name          string
}

type NodeKind string

const (
	NodeKindStreamGroup NodeKind = "stream-group"
	NodeKindAppGroup    NodeKind = "app-group"
	NodeKindApp         NodeKind = "app"
	NodeKindFunction    NodeKind = "function"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeStyle is the visual part of a node. Width and Height are optional
// because only group nodes carry an explicit size.
type NodeStyle struct {
	Background  string   `json:"background,omitempty"`
	BorderColor string   `json:"borderColor,omitempty"`
	BorderWidth float64  `json:"borderWidth,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
}

// NodeData is the kind-specific payload of a node.
type NodeData interface {
	Kind() NodeKind
}

type StreamGroupData struct {
	Label      string `json:"label"`
	StreamID   int64  `json:"stream_id"`
	StreamName string `json:"stream_name"`
}

func (StreamGroupData) Kind() NodeKind { return NodeKindStreamGroup }

// AppData backs both app nodes (stream view) and app-group nodes (app view).
type AppData struct {
	Label      string `json:"label"`
	AppID      int64  `json:"app_id"`
	AppName    string `json:"app_name"`
	StreamName string `json:"stream_name,omitempty"`
	IsHome     bool   `json:"is_home"`
	Group      bool   `json:"-"`
}

func (d AppData) Kind() NodeKind {
	if d.Group {
		return NodeKindAppGroup
	}
	return NodeKindApp
}

type FunctionData struct {
	Label          string  `json:"label"`
	FunctionName   string  `json:"function_name"`
	AppID          int64   `json:"app_id"`
	AppName        string  `json:"app_name"`
	IsHome         bool    `json:"is_home"`
	IntegrationIDs []int64 `json:"integration_ids"`
}

func (FunctionData) Kind() NodeKind { return NodeKindFunction }

type Node struct {
	ID       string    `json:"id"`
	Type     NodeKind  `json:"type"`
	ParentID string    `json:"parentId,omitempty"`
	Position Position  `json:"position"`
	Style    NodeStyle `json:"style"`
	Data     NodeData  `json:"data"`
}

func newNode(id, parentID string, data NodeData) Node {
	return Node{ID: id, Type: data.Kind(), ParentID: parentID, Data: data}
}

type EdgeStyle struct {
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

type ConnectionSummary struct {
	ConnectionTypeID *int64 `json:"connection_type_id,omitempty"`
	ConnectionType   string `json:"connection_type"`
	SourceInbound    string `json:"source_inbound,omitempty"`
	SourceOutbound   string `json:"source_outbound,omitempty"`
	TargetInbound    string `json:"target_inbound,omitempty"`
	TargetOutbound   string `json:"target_outbound,omitempty"`
}

// EdgeData holds fields derived from relational data. They are recomputed on
// every reconciliation and never trusted from a stored layout.
type EdgeData struct {
	IntegrationID    int64               `json:"integration_id"`
	IntegrationIDs   []int64             `json:"integration_ids,omitempty"`
	SourceAppID      int64               `json:"source_app_id"`
	TargetAppID      int64               `json:"target_app_id"`
	SourceAppName    string              `json:"source_app_name"`
	TargetAppName    string              `json:"target_app_name"`
	ConnectionType   string              `json:"connection_type"`
	ConnectionTypeID *int64              `json:"connection_type_id,omitempty"`
	Color            string              `json:"color,omitempty"`
	Connections      []ConnectionSummary `json:"connections,omitempty"`
}

// Edge is both the display edge and the stored edge record of a layout.
type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle *string   `json:"sourceHandle,omitempty"`
	TargetHandle *string   `json:"targetHandle,omitempty"`
	Type         string    `json:"type,omitempty"`
	Style        EdgeStyle `json:"style"`
	Data         EdgeData  `json:"data"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeIDs returns the set of node ids in g.
func (g Graph) NodeIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.ID] = struct{}{}
	}
	return out
}
