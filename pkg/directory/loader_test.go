package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

// memStore serves the reads the loader makes from maps.
type memStore struct {
	store.Store

	mu       sync.Mutex
	places   map[string]*models.Place
	networks map[string]*models.SocialNetwork
	events   []*models.Event
	failing  map[string]error
	fetched  []string
}

func newMemStore() *memStore {
	return &memStore{
		places:   map[string]*models.Place{},
		networks: map[string]*models.SocialNetwork{},
		failing:  map[string]error{},
	}
}

func (m *memStore) addPlace(name string, lat, lng float64, refs ...any) *models.Place {
	p := &models.Place{
		ID:             models.NewPlaceID(),
		Name:           name,
		Category:       models.CategoryBar,
		Location:       models.NewGeometryPoint(lat, lng),
		SocialNetworks: models.RawRefs(refs),
	}
	m.places[p.ID.String()] = p
	return p
}

func (m *memStore) addNetwork(id string, platform models.Platform) {
	snID, err := models.ParseSocialNetworkID(id)
	if err != nil {
		panic(err)
	}
	m.networks[id] = &models.SocialNetwork{ID: snID, Platform: platform, URL: "https://example.com/" + id}
}

func (m *memStore) GetPlace(ctx context.Context, id models.PlaceID) (*models.Place, error) {
	if err := m.failing[id.String()]; err != nil {
		return nil, err
	}
	return m.places[id.String()], nil
}

func (m *memStore) GetSocialNetwork(ctx context.Context, id models.SocialNetworkID) (*models.SocialNetwork, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, id.String())
	m.mu.Unlock()

	if err := m.failing[id.String()]; err != nil {
		return nil, err
	}
	return m.networks[id.String()], nil
}

func (m *memStore) ListEventsByPlace(ctx context.Context, placeID models.PlaceID) ([]*models.Event, error) {
	var out []*models.Event
	for _, e := range m.events {
		if e.PlaceID == placeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]*models.Event, error) {
	var out []*models.Event
	for _, e := range m.events {
		if !e.StartsAt.Before(from) {
			out = append(out, e)
		}
	}
	store.SortEvents(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListPlaces(ctx context.Context, filter store.PlaceFilter) ([]*models.Place, error) {
	var out []*models.Place
	for _, p := range m.places {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	store.SortPlaces(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func newTestLoader(t *testing.T, s store.Store, opts ...Option) *Loader {
	t.Helper()
	l, err := NewLoader(s, append([]Option{WithMeterProvider(noop.NewMeterProvider())}, opts...)...)
	require.NoError(t, err)
	return l
}

func networkIDs(networks []*models.SocialNetwork) []string {
	ids := make([]string, 0, len(networks))
	for _, sn := range networks {
		ids = append(ids, sn.ID.String())
	}
	return ids
}

func TestPlaceDetail_mixedReferenceShapes(t *testing.T) {
	s := newMemStore()
	for _, id := range []string{"abc123", "xyz789", "mno345", "single"} {
		s.addNetwork(id, models.PlatformInstagram)
	}
	place := s.addPlace("Licorería Limantour", 19.41, -99.16,
		"abc123",
		map[string]any{"id": "xyz789"},
		map[string]any{"path": "socialNetworks/mno345"},
		[]any{"single"},
		map[string]any{"invalid": "x"},
		nil,
	)

	detail, err := newTestLoader(t, s).PlaceDetail(context.Background(), place.ID)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"abc123", "xyz789", "mno345", "single"}, networkIDs(detail.SocialNetworks)); diff != "" {
		t.Errorf("social networks mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, detail.HiddenLinks)
	assert.Same(t, place, detail.Place)
	assert.NotNil(t, detail.Events)
}

func TestPlaceDetail_onlyResolvedIDsAreFetched(t *testing.T) {
	s := newMemStore()
	s.addNetwork("ok", models.PlatformFacebook)
	place := s.addPlace("Bósforo", 19.43, -99.14,
		map[string]any{"bad": true},
		[]any{"a", "b"},
		"ok",
	)

	_, err := newTestLoader(t, s).PlaceDetail(context.Background(), place.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, s.fetched)
}

func TestPlaceDetail_missingAndFailingLinksAreHidden(t *testing.T) {
	s := newMemStore()
	s.addNetwork("first", models.PlatformInstagram)
	s.addNetwork("broken", models.PlatformTikTok)
	s.addNetwork("last", models.PlatformX)
	s.failing["broken"] = errors.New("deadline exceeded")
	place := s.addPlace("Zinco", 19.43, -99.14, "first", "deleted", "broken", "last")

	detail, err := newTestLoader(t, s, WithConcurrency(2)).PlaceDetail(context.Background(), place.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "last"}, networkIDs(detail.SocialNetworks))
	assert.Equal(t, 2, detail.HiddenLinks)
}

func TestPlaceDetail_noLinks(t *testing.T) {
	s := newMemStore()
	place := s.addPlace("Sin redes", 19.43, -99.14)
	place.SocialNetworks = nil

	detail, err := newTestLoader(t, s).PlaceDetail(context.Background(), place.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.SocialNetworks)
	assert.Zero(t, detail.HiddenLinks)
	assert.Empty(t, s.fetched)
}

func TestPlaceDetail_events(t *testing.T) {
	s := newMemStore()
	place := s.addPlace("Foro Indie Rocks", 19.41, -99.16)
	other := s.addPlace("Multiforo Alicia", 19.41, -99.15)
	start := time.Date(2026, 11, 20, 21, 0, 0, 0, time.UTC)
	s.events = []*models.Event{
		{ID: models.NewEventID(), PlaceID: place.ID, Title: "Noche de cumbia", StartsAt: start},
		{ID: models.NewEventID(), PlaceID: other.ID, Title: "Punk", StartsAt: start},
	}

	detail, err := newTestLoader(t, s).PlaceDetail(context.Background(), place.ID)
	require.NoError(t, err)
	require.Len(t, detail.Events, 1)
	assert.Equal(t, "Noche de cumbia", detail.Events[0].Title)
}

func TestPlaceDetail_placeErrors(t *testing.T) {
	s := newMemStore()
	l := newTestLoader(t, s)

	_, err := l.PlaceDetail(context.Background(), models.NewPlaceID())
	assert.ErrorIs(t, err, store.ErrNotFound)

	id := models.NewPlaceID()
	boom := errors.New("unavailable")
	s.failing[id.String()] = boom
	_, err = l.PlaceDetail(context.Background(), id)
	assert.ErrorIs(t, err, boom)
}

func TestPlaceDetail_cancelled(t *testing.T) {
	s := newMemStore()
	place := s.addPlace("Cancelado", 19.43, -99.14, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader(t, s).PlaceDetail(ctx, place.ID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlaceDetail_noGoroutineLeaks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newMemStore()
	refs := make([]any, 0, 50)
	for i := 0; i < 50; i++ {
		id := models.NewSocialNetworkID().String()
		s.addNetwork(id, models.PlatformWebsite)
		refs = append(refs, map[string]any{"path": "socialNetworks/" + id})
	}
	place := s.addPlace("Mercado Roma", 19.41, -99.16, refs...)

	detail, err := newTestLoader(t, s, WithConcurrency(4)).PlaceDetail(context.Background(), place.ID)
	require.NoError(t, err)
	assert.Len(t, detail.SocialNetworks, 50)
}

func TestPlaceDetail_span(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	s := newMemStore()
	s.addNetwork("ig", models.PlatformInstagram)
	place := s.addPlace("Pujol", 19.43, -99.19, "ig", map[string]any{"x": 1})

	_, err := newTestLoader(t, s, WithTracerProvider(tp)).PlaceDetail(context.Background(), place.ID)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "directory.PlaceDetail", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, place.ID.String(), attrs["place.id"].AsString())
	assert.Equal(t, int64(2), attrs["links.total"].AsInt64())
	assert.Equal(t, int64(1), attrs["links.loaded"].AsInt64())
	assert.Equal(t, int64(1), attrs["links.hidden"].AsInt64())
}

func TestNearby(t *testing.T) {
	s := newMemStore()
	zocalo := models.NewGeometryPoint(19.4326, -99.1332)
	s.addPlace("Bar La Ópera", 19.4352, -99.1392)
	s.addPlace("Licorería Limantour", 19.4199, -99.1634)
	s.addPlace("Cantina en Guadalajara", 20.6597, -103.3496)
	s.addPlace("Sin ubicación", 0, 0)

	hits, err := newTestLoader(t, s).Nearby(context.Background(), zocalo, 5, store.PlaceFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Bar La Ópera", hits[0].Place.Name)
	assert.Equal(t, "Licorería Limantour", hits[1].Place.Name)
	assert.Less(t, hits[0].DistanceKm, hits[1].DistanceKm)

	limited, err := newTestLoader(t, s).Nearby(context.Background(), zocalo, 1000, store.PlaceFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Bar La Ópera", limited[0].Place.Name)
}

func TestNearby_invalid(t *testing.T) {
	l := newTestLoader(t, newMemStore())

	_, err := l.Nearby(context.Background(), models.NewGeometryPoint(91, 0), 1, store.PlaceFilter{})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = l.Nearby(context.Background(), models.NewGeometryPoint(19, -99), 0, store.PlaceFilter{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestMarkers(t *testing.T) {
	s := newMemStore()
	p := s.addPlace("Salón Corona", 19.4337, -99.1406)
	s.addPlace("Sin ubicación", 0, 0)

	fc, err := newTestLoader(t, s).Markers(context.Background(), store.PlaceFilter{})
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, p.ID.String(), fc.Features[0].ID)
	assert.Equal(t, orb.Point{-99.1406, 19.4337}, fc.Features[0].Geometry)
	assert.Equal(t, "Salón Corona", fc.Features[0].Properties["name"])
}

func TestUpcomingEvents(t *testing.T) {
	s := newMemStore()
	place := s.addPlace("Foro", 19.41, -99.16)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s.events = []*models.Event{
		{PlaceID: place.ID, Title: "Ayer", StartsAt: now.Add(-24 * time.Hour)},
		{PlaceID: place.ID, Title: "Mañana", StartsAt: now.Add(24 * time.Hour)},
		{PlaceID: place.ID, Title: "Hoy", StartsAt: now.Add(time.Hour)},
	}

	l := newTestLoader(t, s)
	l.now = func() time.Time { return now }

	events, err := l.UpcomingEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Hoy", events[0].Title)
	assert.Equal(t, "Mañana", events[1].Title)
}
