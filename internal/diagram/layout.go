package diagram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type LayoutKind string

const (
	LayoutKindStream LayoutKind = "stream"
	LayoutKindApp    LayoutKind = "app"
)

// LayoutKey addresses one persisted layout: a normalized stream name or an
// app id rendered as a decimal string.
type LayoutKey struct {
	Kind LayoutKind
	Key  string
}

func StreamLayoutKey(streamName string) LayoutKey {
	return LayoutKey{Kind: LayoutKindStream, Key: StreamNodeID(streamName)}
}

func AppLayoutKey(appID int64) LayoutKey {
	return LayoutKey{Kind: LayoutKindApp, Key: strconv.FormatInt(appID, 10)}
}

// ParseLayoutKey validates and normalizes a kind/key pair coming from a caller.
func ParseLayoutKey(kind, key string) (LayoutKey, error) {
	key = strings.TrimSpace(key)
	switch LayoutKind(strings.ToLower(strings.TrimSpace(kind))) {
	case LayoutKindStream:
		normalized := StreamNodeID(key)
		if normalized == "" {
			return LayoutKey{}, &ValidationError{Field: "key", Reason: "stream name is required"}
		}
		return LayoutKey{Kind: LayoutKindStream, Key: normalized}, nil
	case LayoutKindApp:
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			return LayoutKey{}, &ValidationError{Field: "key", Reason: "app id must be a positive integer"}
		}
		return AppLayoutKey(id), nil
	default:
		return LayoutKey{}, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown layout kind %q", kind)}
	}
}

// AppID returns the numeric app id of an app layout key.
func (k LayoutKey) AppID() (int64, bool) {
	if k.Kind != LayoutKindApp {
		return 0, false
	}
	id, err := strconv.ParseInt(k.Key, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (k LayoutKey) String() string {
	return string(k.Kind) + ":" + k.Key
}

// NodeLayout is the stored, user-editable overlay of one node.
type NodeLayout struct {
	Position Position   `json:"position"`
	Style    *NodeStyle `json:"style,omitempty"`
}

// LayoutBlob is the persisted, partial overlay for a graph. It only ever
// overrides geometry, style and handles; node and edge existence always
// comes from current relational data.
type LayoutBlob struct {
	NodesLayout map[string]NodeLayout `json:"nodes_layout"`
	EdgesLayout []Edge                `json:"edges_layout"`
	Config      map[string]any        `json:"config"`
}

// StoredLayout is a LayoutBlob together with its storage identity.
type StoredLayout struct {
	Key     LayoutKey
	Blob    LayoutBlob
	Version int64
}

// Normalized returns a copy with non-nil collections so that equality and
// encoding do not depend on nil versus empty.
func (b LayoutBlob) Normalized() LayoutBlob {
	out := LayoutBlob{
		NodesLayout: make(map[string]NodeLayout, len(b.NodesLayout)),
		EdgesLayout: make([]Edge, 0, len(b.EdgesLayout)),
		Config:      make(map[string]any, len(b.Config)),
	}
	for id, nl := range b.NodesLayout {
		out.NodesLayout[id] = nl
	}
	out.EdgesLayout = append(out.EdgesLayout, b.EdgesLayout...)
	for k, v := range b.Config {
		out.Config[k] = v
	}
	return out
}

// LayoutEqual compares two blobs by value through their canonical JSON
// encoding, which sorts map keys and unifies numeric representations.
func LayoutEqual(a, b LayoutBlob) bool {
	ea, errA := json.Marshal(a.Normalized())
	eb, errB := json.Marshal(b.Normalized())
	if errA != nil || errB != nil {
		return false
	}
	return string(ea) == string(eb)
}

// EncodeLayout splits a blob into the three stored JSON documents.
func EncodeLayout(b LayoutBlob) (nodes, edges, config []byte, err error) {
	b = b.Normalized()
	if nodes, err = json.Marshal(b.NodesLayout); err != nil {
		return nil, nil, nil, fmt.Errorf("encode nodes layout: %w", err)
	}
	if edges, err = json.Marshal(b.EdgesLayout); err != nil {
		return nil, nil, nil, fmt.Errorf("encode edges layout: %w", err)
	}
	if config, err = json.Marshal(b.Config); err != nil {
		return nil, nil, nil, fmt.Errorf("encode layout config: %w", err)
	}
	return nodes, edges, config, nil
}

// DecodeLayout is the inverse of EncodeLayout. Empty documents decode to
// empty collections.
func DecodeLayout(nodes, edges, config []byte) (LayoutBlob, error) {
	var b LayoutBlob
	if len(nodes) > 0 {
		if err := json.Unmarshal(nodes, &b.NodesLayout); err != nil {
			return LayoutBlob{}, fmt.Errorf("decode nodes layout: %w", err)
		}
	}
	if len(edges) > 0 {
		if err := json.Unmarshal(edges, &b.EdgesLayout); err != nil {
			return LayoutBlob{}, fmt.Errorf("decode edges layout: %w", err)
		}
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &b.Config); err != nil {
			return LayoutBlob{}, fmt.Errorf("decode layout config: %w", err)
		}
	}
	return b.Normalized(), nil
}
