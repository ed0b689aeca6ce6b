package layoutsync

import (
	"context"
	"fmt"

	"github.com/archmap/archmap/internal/cache"
	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/normalize"
	"github.com/archmap/archmap/internal/store"
)

// UpdateConnectionType renames and recolors a connection type. Name and
// color must both be unique among types. Stored layouts are recolored
// afterwards on a best-effort basis.
func (s *Service) UpdateConnectionType(ctx context.Context, id int64, name, color string) (diagram.ConnectionType, error) {
	name = normalize.Trim(name)
	if name == "" {
		return diagram.ConnectionType{}, &diagram.ValidationError{Field: "name", Reason: "name is required"}
	}
	hex := normalize.Color(color)
	if hex == "" {
		return diagram.ConnectionType{}, &diagram.ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not a hex color", color)}
	}

	current, err := s.Store.GetConnectionType(ctx, id)
	if err != nil {
		return diagram.ConnectionType{}, err
	}
	types, err := s.Store.ListConnectionTypes(ctx)
	if err != nil {
		return diagram.ConnectionType{}, err
	}
	for _, other := range types {
		if other.ID == id {
			continue
		}
		if normalize.EqualFoldTrimmed(other.Name, name) {
			return diagram.ConnectionType{}, &diagram.ValidationError{Field: "name", Reason: fmt.Sprintf("connection type %q already exists", other.Name)}
		}
		if normalize.Color(other.Color) == hex {
			return diagram.ConnectionType{}, &diagram.ValidationError{Field: "color", Reason: fmt.Sprintf("color %s is already used by %q", hex, other.Name)}
		}
	}

	updated, err := s.Store.UpdateConnectionType(ctx, diagram.ConnectionType{ID: id, Name: name, Color: hex})
	if err != nil {
		return diagram.ConnectionType{}, err
	}
	s.Cache.Invalidate(cache.ConnectionTypesAll)

	if current.Name != updated.Name || normalize.Color(current.Color) != normalize.Color(updated.Color) {
		s.resyncBestEffort(ctx, "connection_type_updated")
	}
	return updated, nil
}

// DeleteConnectionType removes an unused connection type.
func (s *Service) DeleteConnectionType(ctx context.Context, id int64) error {
	if err := s.Store.DeleteConnectionType(ctx, id); err != nil {
		return err
	}
	s.Cache.Invalidate(cache.ConnectionTypesAll)
	return nil
}

// UpdateStreamColor sets or, with an empty color, clears the color of a
// stream. Node borders in stored layouts follow on a best-effort basis.
func (s *Service) UpdateStreamColor(ctx context.Context, id int64, color string) (diagram.Stream, error) {
	hex := ""
	if normalize.Trim(color) != "" {
		hex = normalize.Color(color)
		if hex == "" {
			return diagram.Stream{}, &diagram.ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not a hex color", color)}
		}
	}
	current, err := s.Store.GetStream(ctx, id)
	if err != nil {
		return diagram.Stream{}, err
	}
	updated, err := s.Store.UpdateStreamColor(ctx, id, hex)
	if err != nil {
		return diagram.Stream{}, err
	}
	s.Cache.Invalidate(cache.StreamsAll, cache.StreamTopic(current.Name), cache.StreamTopic(updated.Name))

	if normalize.Color(current.Color) != hex {
		s.resyncBestEffort(ctx, "stream_color_updated")
	}
	return updated, nil
}

// CreateIntegration links two distinct, existing apps that are not already
// integrated in either direction.
func (s *Service) CreateIntegration(ctx context.Context, sourceAppID, targetAppID int64, connectionTypeIDs []int64) (diagram.Integration, error) {
	if sourceAppID == targetAppID {
		return diagram.Integration{}, &diagram.ValidationError{Field: "target_app_id", Reason: "an app cannot integrate with itself"}
	}
	for _, id := range []int64{sourceAppID, targetAppID} {
		if _, err := s.Store.GetApp(ctx, id); err != nil {
			if diagram.IsNotFound(err) {
				return diagram.Integration{}, &diagram.ValidationError{Field: "app_id", Reason: fmt.Sprintf("app %d does not exist", id)}
			}
			return diagram.Integration{}, err
		}
	}
	existing, err := s.Store.ListIntegrationsForApps(ctx, []int64{sourceAppID})
	if err != nil {
		return diagram.Integration{}, err
	}
	for _, in := range existing {
		if (in.SourceAppID == sourceAppID && in.TargetAppID == targetAppID) ||
			(in.SourceAppID == targetAppID && in.TargetAppID == sourceAppID) {
			return diagram.Integration{}, &diagram.ValidationError{
				Field:  "target_app_id",
				Reason: fmt.Sprintf("apps %d and %d are already integrated", sourceAppID, targetAppID),
			}
		}
	}

	created, err := s.Store.CreateIntegration(ctx, store.NewIntegration{
		SourceAppID:       sourceAppID,
		TargetAppID:       targetAppID,
		ConnectionTypeIDs: connectionTypeIDs,
	})
	if err != nil {
		if diagram.IsNotFound(err) {
			return diagram.Integration{}, &diagram.ValidationError{Field: "connection_type_ids", Reason: err.Error()}
		}
		return diagram.Integration{}, err
	}
	s.Cache.Invalidate(cache.AppTopic(sourceAppID), cache.AppTopic(targetAppID))
	return created, nil
}

// DeleteIntegration removes one integration with its connections and
// functions.
func (s *Service) DeleteIntegration(ctx context.Context, id int64) error {
	in, err := s.Store.GetIntegration(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.Store.DeleteIntegrations(ctx, []int64{id}); err != nil {
		return err
	}
	s.Cache.Invalidate(integrationTopics([]diagram.Integration{in})...)
	return nil
}

func (s *Service) resyncBestEffort(ctx context.Context, reason string) {
	n, err := s.ResyncColors(ctx)
	if err != nil {
		s.logger().Warn("layout color resync failed", "reason", reason, "err", err)
		return
	}
	s.logger().Info("layout colors resynced", "reason", reason, "changed", n)
}
