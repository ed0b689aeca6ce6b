package diagram

import (
	"sort"

	"github.com/archmap/archmap/internal/normalize"
)

// FindDuplicateIntegrations returns the ids of integrations whose endpoint
// pair was already seen in either orientation. Integrations are visited in
// ascending id order, so the lowest id of each pair survives.
func FindDuplicateIntegrations(integrations []Integration) []int64 {
	sorted := append([]Integration(nil), integrations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	seen := make(map[[2]int64]struct{}, len(sorted)*2)
	var dupes []int64
	for _, in := range sorted {
		forward := [2]int64{in.SourceAppID, in.TargetAppID}
		if _, ok := seen[forward]; ok {
			dupes = append(dupes, in.ID)
			continue
		}
		seen[forward] = struct{}{}
		seen[[2]int64{in.TargetAppID, in.SourceAppID}] = struct{}{}
	}
	return dupes
}

// FindInvalidIntegrations returns the ids of integrations referencing an app
// id that no longer exists.
func FindInvalidIntegrations(integrations []Integration, appIDs []int64) []int64 {
	exists := make(map[int64]struct{}, len(appIDs))
	for _, id := range appIDs {
		exists[id] = struct{}{}
	}
	var invalid []int64
	for _, in := range integrations {
		_, okS := exists[in.SourceAppID]
		_, okT := exists[in.TargetAppID]
		if !okS || !okT {
			invalid = append(invalid, in.ID)
		}
	}
	sort.Slice(invalid, func(i, j int) bool { return invalid[i] < invalid[j] })
	return invalid
}

// PruneNodesLayout keeps only entries whose id is in valid.
func PruneNodesLayout(nodes map[string]NodeLayout, valid map[string]struct{}) (map[string]NodeLayout, []string) {
	out := make(map[string]NodeLayout, len(nodes))
	var removed []string
	for id, nl := range nodes {
		if _, ok := valid[id]; !ok {
			removed = append(removed, id)
			continue
		}
		out[id] = nl
	}
	sort.Strings(removed)
	return out, removed
}

// SyncEdgesLayout rebuilds the stored edges entirely from fresh edges. Only
// the handles of edges that already existed under the same id are kept.
func SyncEdgesLayout(stored, fresh []Edge) []Edge {
	prev := indexEdges(stored)
	out := make([]Edge, 0, len(fresh))
	for _, e := range fresh {
		e = cloneEdge(e)
		if old, ok := prev[e.ID]; ok {
			e.SourceHandle = clonePtr(old.SourceHandle)
			e.TargetHandle = clonePtr(old.TargetHandle)
		}
		out = append(out, e)
	}
	return out
}

// ColorResolver resolves the connection type of a stored edge.
type ColorResolver struct {
	byID   map[int64]ConnectionType
	byName map[string]ConnectionType
	// ByIntegration is the last resort: the current connection type of the
	// integration behind an edge.
	ByIntegration func(integrationID int64) (ConnectionType, bool)
}

func NewColorResolver(types map[int64]ConnectionType, byIntegration func(int64) (ConnectionType, bool)) ColorResolver {
	r := ColorResolver{
		byID:          make(map[int64]ConnectionType, len(types)),
		byName:        make(map[string]ConnectionType, len(types)),
		ByIntegration: byIntegration,
	}
	for id, ct := range types {
		r.byID[id] = ct
		r.byName[normalize.Lower(ct.Name)] = ct
	}
	return r
}

// Resolve tries the stored type id, then the label by case-insensitive name,
// then the integration's current connections. The placeholder label of an
// edge without connections is never looked up by name.
func (r ColorResolver) Resolve(e Edge) (ConnectionType, bool) {
	if e.Data.ConnectionTypeID != nil {
		if ct, ok := r.byID[*e.Data.ConnectionTypeID]; ok {
			return ct, true
		}
	}
	if !isPlaceholderLabel(e) {
		if ct, ok := r.byName[normalize.Lower(e.Data.ConnectionType)]; ok {
			return ct, true
		}
	}
	if r.ByIntegration != nil && e.Data.IntegrationID != 0 {
		return r.ByIntegration(e.Data.IntegrationID)
	}
	return ConnectionType{}, false
}

func isPlaceholderLabel(e Edge) bool {
	return e.Data.ConnectionTypeID == nil && len(e.Data.Connections) == 0 &&
		normalize.EqualFoldTrimmed(e.Data.ConnectionType, DirectConnectionLabel)
}

// ResyncEdgeColors rewrites the color of every stored edge whose connection
// type resolves to a different color. A stroke tracking the old color
// follows it. It returns the new edges and how many changed.
func ResyncEdgeColors(edges []Edge, r ColorResolver) ([]Edge, int) {
	out := make([]Edge, 0, len(edges))
	changed := 0
	for _, e := range edges {
		e = cloneEdge(e)
		ct, ok := r.Resolve(e)
		color := normalize.Color(ct.Color)
		if !ok || color == "" {
			out = append(out, e)
			continue
		}
		stroke := e.Style.Stroke
		if isTrackingStroke(stroke, e.Data.Color) {
			stroke = color
		}
		if !normalize.EqualFoldTrimmed(e.Data.Color, color) || stroke != e.Style.Stroke {
			e.Data.Color = color
			e.Style.Stroke = stroke
			changed++
		}
		out = append(out, e)
	}
	return out, changed
}

// CountEdgeColorChanges reports how many edges of next exist in stored under
// the same id with a different color or stroke.
func CountEdgeColorChanges(stored, next []Edge) int {
	prev := indexEdges(stored)
	changed := 0
	for _, e := range next {
		old, ok := prev[e.ID]
		if !ok {
			continue
		}
		if !normalize.EqualFoldTrimmed(old.Data.Color, e.Data.Color) || !normalize.EqualFoldTrimmed(old.Style.Stroke, e.Style.Stroke) {
			changed++
		}
	}
	return changed
}

// ResyncNodeColors sets the stored border color of every node listed in
// colors. Nodes without a stored entry are left alone.
func ResyncNodeColors(nodes map[string]NodeLayout, colors map[string]string) (map[string]NodeLayout, int) {
	out := make(map[string]NodeLayout, len(nodes))
	changed := 0
	for id, nl := range nodes {
		want, ok := colors[id]
		if !ok || want == "" {
			out[id] = nl
			continue
		}
		style := NodeStyle{}
		if nl.Style != nil {
			style = cloneNodeStyle(*nl.Style)
		}
		if style.BorderColor != want {
			style.BorderColor = want
			changed++
		}
		nl.Style = &style
		out[id] = nl
	}
	return out, changed
}
