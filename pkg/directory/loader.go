// Package directory assembles what the app screens show from the documents in
// a [store.Store]: a place with its linked social networks and events, places
// near a point, and the map markers.
//
// Places keep their social network links denormalized as an array of
// references whose shape depends on the backend and on the document's age.
// The loader normalizes the whole array with [ref.Resolver.Many] before it
// fetches anything, then loads the linked documents concurrently. A link that
// cannot be resolved or points at a missing document is hidden, never an error.
package directory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dondetu/dondetu/pkg/geo"
	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/ref"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/dondetu/dondetu/pkg/directory"

// DefaultConcurrency bounds the concurrent fetches of one place's links.
const DefaultConcurrency = 8

// ErrInvalidQuery is returned for out-of-range nearby searches.
var ErrInvalidQuery = errors.New("invalid query")

// PlaceDetail is a place with its links loaded.
type PlaceDetail struct {
	Place          *models.Place           `json:"place"`
	SocialNetworks []*models.SocialNetwork `json:"social_networks"`
	Events         []*models.Event         `json:"events"`
	// HiddenLinks counts the references that were left out: unresolvable
	// ones and ones whose document is gone or failed to load.
	HiddenLinks int `json:"hidden_links"`
}

// NearbyPlace is a search hit with its distance from the search center.
type NearbyPlace struct {
	Place      *models.Place `json:"place"`
	DistanceKm float64       `json:"distance_km"`
}

// Loader reads from a store. It is safe for concurrent use.
type Loader struct {
	store       store.Store
	resolver    *ref.Resolver
	logger      zerolog.Logger
	tracer      trace.Tracer
	hidden      metric.Int64Counter
	concurrency int
	now         func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Loader.
type Option func(*Loader)

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Loader) { l.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(l *Loader) { l.meterProvider = mp }
}

// WithConcurrency sets how many linked documents are fetched at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader creates a Loader. Tracing and metrics default to the global
// OpenTelemetry providers.
func NewLoader(s store.Store, opts ...Option) (*Loader, error) {
	l := &Loader{
		store:          s,
		logger:         zerolog.Nop(),
		concurrency:    DefaultConcurrency,
		now:            time.Now,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.logger = l.logger.With().Str("component", "directory").Logger()
	l.resolver = ref.NewResolver(ref.WithLogger(l.logger))
	l.tracer = l.tracerProvider.Tracer(instrumentationName)

	var err error
	l.hidden, err = l.meterProvider.Meter(instrumentationName).Int64Counter(
		"directory.hidden_links",
		metric.WithDescription("Social network links left out of a place detail"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create hidden links counter: %w", err)
	}
	return l, nil
}

// PlaceDetail loads a place, its social networks in reference order and its
// events. Only failing to load the place itself is an error; a missing place
// is store.ErrNotFound.
func (l *Loader) PlaceDetail(ctx context.Context, id models.PlaceID) (*PlaceDetail, error) {
	ctx, span := l.tracer.Start(ctx, "directory.PlaceDetail", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()

	place, err := l.store.GetPlace(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load place")
		return nil, fmt.Errorf("failed to load place %s: %w", id, err)
	}
	if place == nil {
		span.SetStatus(codes.Error, "place not found")
		return nil, fmt.Errorf("place %s: %w", id, store.ErrNotFound)
	}

	batch := l.resolver.Many(place.SocialNetworks)
	logger := l.logger.With().Str("place_id", id.String()).Logger()

	networks := make([]*models.SocialNetwork, len(batch.IDs))
	var events []*models.Event

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	g.Go(func() error {
		var err error
		events, err = l.store.ListEventsByPlace(ctx, id)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to load events")
			events = nil
		}
		return nil
	})
	for i, rawID := range batch.IDs {
		g.Go(func() error {
			networks[i] = l.fetchSocialNetwork(ctx, logger, rawID)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	networks = slices.DeleteFunc(networks, func(sn *models.SocialNetwork) bool { return sn == nil })
	missing := len(batch.IDs) - len(networks)

	detail := &PlaceDetail{
		Place:          place,
		SocialNetworks: networks,
		Events:         events,
		HiddenLinks:    len(batch.Dropped) + missing,
	}
	if detail.Events == nil {
		detail.Events = []*models.Event{}
	}

	span.SetAttributes(
		attribute.Int("links.total", len(batch.IDs)+len(batch.Dropped)),
		attribute.Int("links.loaded", len(networks)),
		attribute.Int("links.hidden", detail.HiddenLinks),
	)
	if n := len(batch.Dropped); n > 0 {
		l.hidden.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", "unresolvable")))
	}
	if missing > 0 {
		l.hidden.Add(ctx, int64(missing), metric.WithAttributes(attribute.String("reason", "missing")))
	}
	if detail.HiddenLinks > 0 {
		logger.Info().
			Int("dropped", len(batch.Dropped)).
			Int("malformed", batch.Malformed()).
			Int("missing", missing).
			Msg("Hiding social network links")
	}
	return detail, nil
}

// fetchSocialNetwork returns nil for anything that should be hidden.
func (l *Loader) fetchSocialNetwork(ctx context.Context, logger zerolog.Logger, rawID string) *models.SocialNetwork {
	id, err := models.ParseSocialNetworkID(rawID)
	if err != nil {
		logger.Warn().Err(err).Str("id", rawID).Msg("Skipping social network link")
		return nil
	}
	sn, err := l.store.GetSocialNetwork(ctx, id)
	if err != nil {
		logger.Warn().Err(err).Str("id", rawID).Msg("Failed to load social network")
		return nil
	}
	if sn == nil {
		logger.Debug().Str("id", rawID).Msg("Linked social network does not exist")
	}
	return sn
}

// Nearby returns the places within radiusKm of center, closest first. The
// filter's category and featured flags narrow the candidates; its limit caps
// the result after sorting by distance.
func (l *Loader) Nearby(ctx context.Context, center models.GeometryPoint, radiusKm float64, filter store.PlaceFilter) ([]NearbyPlace, error) {
	ctx, span := l.tracer.Start(ctx, "directory.Nearby", trace.WithAttributes(
		attribute.Float64("center.lat", center.Latitude),
		attribute.Float64("center.lng", center.Longitude),
		attribute.Float64("radius_km", radiusKm),
	))
	defer span.End()

	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if !(radiusKm > 0) {
		return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidQuery)
	}

	limit := filter.Limit
	filter.Limit = 0
	places, err := l.store.ListPlaces(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list places")
		return nil, fmt.Errorf("failed to list places: %w", err)
	}

	hits := make([]NearbyPlace, 0, len(places))
	for _, p := range places {
		if p.Location.IsZero() {
			continue
		}
		if d := geo.Haversine(center, p.Location); d <= radiusKm {
			hits = append(hits, NearbyPlace{Place: p, DistanceKm: d})
		}
	}
	slices.SortStableFunc(hits, func(a, b NearbyPlace) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	span.SetAttributes(attribute.Int("results", len(hits)))
	return hits, nil
}

// Markers returns the places as GeoJSON point features for the map SDK.
// Places without a location are left out.
func (l *Loader) Markers(ctx context.Context, filter store.PlaceFilter) (*geo.FeatureCollection, error) {
	ctx, span := l.tracer.Start(ctx, "directory.Markers")
	defer span.End()

	places, err := l.store.ListPlaces(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list places")
		return nil, fmt.Errorf("failed to list places: %w", err)
	}

	features := make([]*geo.Feature, 0, len(places))
	for _, p := range places {
		if p.Location.IsZero() {
			continue
		}
		features = append(features, geo.NewFeature(p.ID.String(), p.Location, map[string]any{
			"name":        p.Name,
			"category":    string(p.Category),
			"featured":    p.Featured,
			"price_level": p.PriceLevel,
		}))
	}

	span.SetAttributes(attribute.Int("features", len(features)))
	return geo.NewFeatureCollection(features), nil
}

// UpcomingEvents lists events starting from now.
func (l *Loader) UpcomingEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	ctx, span := l.tracer.Start(ctx, "directory.UpcomingEvents")
	defer span.End()

	events, err := l.store.ListUpcomingEvents(ctx, l.now(), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list events")
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
