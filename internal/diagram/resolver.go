package diagram

import (
	"context"
	"errors"
	"strconv"
)

// Source is the read side of the relational store consumed by the resolver.
// GetApp returns a *NotFoundError for unknown ids. ListIntegrationsForApps
// returns integrations with their connections populated.
type Source interface {
	ListStreams(ctx context.Context) ([]Stream, error)
	GetApp(ctx context.Context, id int64) (App, error)
	ListAppsByStream(ctx context.Context, streamID int64) ([]App, error)
	ListAppsByIDs(ctx context.Context, ids []int64) ([]App, error)
	ListIntegrationsForApps(ctx context.Context, appIDs []int64) ([]Integration, error)
	ListFunctionsForIntegrations(ctx context.Context, integrationIDs []int64) ([]Function, error)
	ListConnectionTypes(ctx context.Context) ([]ConnectionType, error)
}

// StyleContext carries the lookup tables builders need for labels and colors.
type StyleContext struct {
	Streams         map[int64]Stream
	ConnectionTypes map[int64]ConnectionType
}

func (s StyleContext) streamOf(app App) (Stream, bool) {
	if app.StreamID == nil {
		return Stream{}, false
	}
	st, ok := s.Streams[*app.StreamID]
	return st, ok
}

// StreamEntities is everything needed to draw one stream.
type StreamEntities struct {
	Stream       Stream
	HomeApps     []App
	ExternalApps []App
	Integrations []Integration
	Style        StyleContext
}

// AppIDs returns the ids of every home and external app.
func (e StreamEntities) AppIDs() []int64 {
	out := make([]int64, 0, len(e.HomeApps)+len(e.ExternalApps))
	for _, a := range e.HomeApps {
		out = append(out, a.ID)
	}
	for _, a := range e.ExternalApps {
		out = append(out, a.ID)
	}
	return out
}

// AppEntities is everything needed to draw one app with its functions.
type AppEntities struct {
	App               App
	Functions         []Function
	ExternalApps      []App
	ExternalFunctions []Function
	Integrations      []Integration
	Style             StyleContext
}

func (e AppEntities) AppIDs() []int64 {
	out := make([]int64, 0, 1+len(e.ExternalApps))
	out = append(out, e.App.ID)
	for _, a := range e.ExternalApps {
		out = append(out, a.ID)
	}
	return out
}

type Resolver struct {
	Source Source
}

// FindStream looks a stream up by normalized name.
func FindStream(streams []Stream, name string) (Stream, bool) {
	want := StreamNodeID(name)
	if want == "" {
		return Stream{}, false
	}
	for _, s := range streams {
		if StreamNodeID(s.Name) == want {
			return s, true
		}
	}
	return Stream{}, false
}

// ResolveStream collects the home apps of a stream, the external apps they
// integrate with, and every integration with at least one home endpoint.
func (r Resolver) ResolveStream(ctx context.Context, streamName string) (StreamEntities, error) {
	if r.Source == nil {
		return StreamEntities{}, errors.New("diagram resolver source is nil")
	}
	streams, err := r.Source.ListStreams(ctx)
	if err != nil {
		return StreamEntities{}, err
	}
	stream, ok := FindStream(streams, streamName)
	if !ok {
		return StreamEntities{}, &NotFoundError{Kind: "stream", Key: streamName}
	}
	style, err := r.styleContext(ctx, streams)
	if err != nil {
		return StreamEntities{}, err
	}

	home, err := r.Source.ListAppsByStream(ctx, stream.ID)
	if err != nil {
		return StreamEntities{}, err
	}
	out := StreamEntities{Stream: stream, HomeApps: home, Style: style}
	if len(home) == 0 {
		return out, nil
	}

	homeIDs := make(map[int64]struct{}, len(home))
	ids := make([]int64, 0, len(home))
	for _, a := range home {
		homeIDs[a.ID] = struct{}{}
		ids = append(ids, a.ID)
	}

	integrations, err := r.Source.ListIntegrationsForApps(ctx, ids)
	if err != nil {
		return StreamEntities{}, err
	}
	included := filterIntegrations(integrations, homeIDs)

	external, err := r.externalApps(ctx, included, homeIDs)
	if err != nil {
		return StreamEntities{}, err
	}
	out.ExternalApps = external
	out.Integrations = dropDangling(included, homeIDs, external)
	return out, nil
}

// ResolveApp collects an app, its functions, and the apps it integrates with.
func (r Resolver) ResolveApp(ctx context.Context, appID int64) (AppEntities, error) {
	if r.Source == nil {
		return AppEntities{}, errors.New("diagram resolver source is nil")
	}
	app, err := r.Source.GetApp(ctx, appID)
	if err != nil {
		if IsNotFound(err) {
			return AppEntities{}, &NotFoundError{Kind: "app", Key: strconv.FormatInt(appID, 10)}
		}
		return AppEntities{}, err
	}
	streams, err := r.Source.ListStreams(ctx)
	if err != nil {
		return AppEntities{}, err
	}
	style, err := r.styleContext(ctx, streams)
	if err != nil {
		return AppEntities{}, err
	}

	homeIDs := map[int64]struct{}{app.ID: {}}
	integrations, err := r.Source.ListIntegrationsForApps(ctx, []int64{app.ID})
	if err != nil {
		return AppEntities{}, err
	}
	included := filterIntegrations(integrations, homeIDs)

	external, err := r.externalApps(ctx, included, homeIDs)
	if err != nil {
		return AppEntities{}, err
	}
	included = dropDangling(included, homeIDs, external)

	out := AppEntities{App: app, ExternalApps: external, Integrations: included, Style: style}
	if len(included) == 0 {
		return out, nil
	}

	integrationIDs := make([]int64, 0, len(included))
	for _, in := range included {
		integrationIDs = append(integrationIDs, in.ID)
	}
	functions, err := r.Source.ListFunctionsForIntegrations(ctx, integrationIDs)
	if err != nil {
		return AppEntities{}, err
	}
	externalIDs := make(map[int64]struct{}, len(external))
	for _, a := range external {
		externalIDs[a.ID] = struct{}{}
	}
	for _, fn := range functions {
		switch {
		case fn.AppID == app.ID:
			out.Functions = append(out.Functions, fn)
		default:
			if _, ok := externalIDs[fn.AppID]; ok {
				out.ExternalFunctions = append(out.ExternalFunctions, fn)
			}
		}
	}
	return out, nil
}

func (r Resolver) styleContext(ctx context.Context, streams []Stream) (StyleContext, error) {
	types, err := r.Source.ListConnectionTypes(ctx)
	if err != nil {
		return StyleContext{}, err
	}
	style := StyleContext{
		Streams:         make(map[int64]Stream, len(streams)),
		ConnectionTypes: make(map[int64]ConnectionType, len(types)),
	}
	for _, s := range streams {
		style.Streams[s.ID] = s
	}
	for _, ct := range types {
		style.ConnectionTypes[ct.ID] = ct
	}
	return style, nil
}

// externalApps loads the non-home endpoints of integrations, each once, in
// order of first appearance.
func (r Resolver) externalApps(ctx context.Context, integrations []Integration, home map[int64]struct{}) ([]App, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, in := range integrations {
		for _, id := range []int64{in.SourceAppID, in.TargetAppID} {
			if _, ok := home[id]; ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	apps, err := r.Source.ListAppsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]App, len(apps))
	for _, a := range apps {
		byID[a.ID] = a
	}
	out := make([]App, 0, len(apps))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// IncludesIntegration is the inclusion rule: at least one endpoint is home.
func IncludesIntegration(in Integration, home map[int64]struct{}) bool {
	if _, ok := home[in.SourceAppID]; ok {
		return true
	}
	_, ok := home[in.TargetAppID]
	return ok
}

func filterIntegrations(integrations []Integration, home map[int64]struct{}) []Integration {
	out := make([]Integration, 0, len(integrations))
	for _, in := range integrations {
		if IncludesIntegration(in, home) {
			out = append(out, in)
		}
	}
	return out
}

// dropDangling removes integrations whose non-home endpoint no longer exists.
// Those are left for the sweeper; they cannot be drawn.
func dropDangling(integrations []Integration, home map[int64]struct{}, external []App) []Integration {
	known := make(map[int64]struct{}, len(home)+len(external))
	for id := range home {
		known[id] = struct{}{}
	}
	for _, a := range external {
		known[a.ID] = struct{}{}
	}
	out := make([]Integration, 0, len(integrations))
	for _, in := range integrations {
		_, okS := known[in.SourceAppID]
		_, okT := known[in.TargetAppID]
		if okS && okT {
			out = append(out, in)
		}
	}
	return out
}
