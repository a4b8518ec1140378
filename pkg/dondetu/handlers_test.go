package dondetu

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dondetu/dondetu/pkg/directory"
	"github.com/dondetu/dondetu/pkg/geo"
	"github.com/dondetu/dondetu/pkg/models"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/health", "/api/health"} {
		rec := do(t, app, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, BackendSQLite, body["backend"])
		assert.Equal(t, false, body["read_only"])
	}
}

func TestHandleListPlaces(t *testing.T) {
	app := newTestApp(t)
	createPlace(t, app, "Contramar", models.CategoryRestaurant, 19.4186, -99.1672)
	bar := createPlace(t, app, "Baltra", models.CategoryBar, 19.4121, -99.1760)

	rec := do(t, app, http.MethodGet, "/api/places", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Place](t, rec), 2)

	rec = do(t, app, http.MethodGet, "/api/places?category=bar", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	places := decode[[]models.Place](t, rec)
	require.Len(t, places, 1)
	assert.Equal(t, bar.ID, places[0].ID)

	rec = do(t, app, http.MethodGet, "/api/places?category=karaoke", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/places?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListPlaces_emptyIsArray(t *testing.T) {
	app := newTestApp(t)

	rec := do(t, app, http.MethodGet, "/api/places", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleGetPlace_mixedReferenceShapes(t *testing.T) {
	app := newTestApp(t)
	ig := createSocialNetwork(t, app, models.PlatformInstagram, "lagaleramx")
	fb := createSocialNetwork(t, app, models.PlatformFacebook, "lagaleramx")
	tt := createSocialNetwork(t, app, models.PlatformTikTok, "lagaleramx")

	place := createPlace(t, app, "La Galera", models.CategoryClub, 19.4270, -99.1676,
		ig.ID.String(),
		map[string]any{"path": "socialNetworks/" + fb.ID.String()},
		map[string]any{"unexpected": true},
		[]any{map[string]any{"id": tt.ID.String()}},
		"deleted-network",
		nil,
	)

	rec := do(t, app, http.MethodGet, "/api/places/"+place.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	detail := decode[directory.PlaceDetail](t, rec)
	require.NotNil(t, detail.Place)
	assert.Equal(t, place.ID, detail.Place.ID)
	require.Len(t, detail.SocialNetworks, 3)
	assert.Equal(t, ig.ID, detail.SocialNetworks[0].ID)
	assert.Equal(t, fb.ID, detail.SocialNetworks[1].ID)
	assert.Equal(t, tt.ID, detail.SocialNetworks[2].ID)
	// the malformed, missing and empty references
	assert.Equal(t, 3, detail.HiddenLinks)
	assert.Empty(t, detail.Events)
}

func TestHandleGetPlace_notFound(t *testing.T) {
	app := newTestApp(t)

	rec := do(t, app, http.MethodGet, "/api/places/"+models.NewPlaceID().String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Place not found"}`, rec.Body.String())
}

func TestHandleNearby(t *testing.T) {
	app := newTestApp(t)
	near := createPlace(t, app, "Licorería Limantour", models.CategoryBar, 19.4199, -99.1634)
	nearer := createPlace(t, app, "Café Nin", models.CategoryCafe, 19.4220, -99.1620)
	createPlace(t, app, "El Cardenal", models.CategoryRestaurant, 19.4343, -99.1363)

	rec := do(t, app, http.MethodGet, "/api/places/nearby?lat=19.4225&lng=-99.1618&radius=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	hits := decode[[]directory.NearbyPlace](t, rec)
	require.Len(t, hits, 2)
	assert.Equal(t, nearer.ID, hits[0].Place.ID)
	assert.Equal(t, near.ID, hits[1].Place.ID)
	assert.Less(t, hits[0].DistanceKm, hits[1].DistanceKm)

	rec = do(t, app, http.MethodGet, "/api/places/nearby?lat=19.4225&lng=-99.1618&radius=1&category=bar", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	hits = decode[[]directory.NearbyPlace](t, rec)
	require.Len(t, hits, 1)
	assert.Equal(t, near.ID, hits[0].Place.ID)

	// El Cardenal is about 3 km away
	rec = do(t, app, http.MethodGet, "/api/places/nearby?lat=19.4225&lng=-99.1618", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]directory.NearbyPlace](t, rec), 2)

	rec = do(t, app, http.MethodGet, "/api/places/nearby?lat=19.4225&lng=-99.1618&radius=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]directory.NearbyPlace](t, rec), 3)
}

func TestHandleNearby_badQuery(t *testing.T) {
	app := newTestApp(t)

	for name, query := range map[string]string{
		"missing lng":    "lat=19.42",
		"invalid lat":    "lat=north&lng=-99.16",
		"lat range":      "lat=123&lng=-99.16",
		"radius too big": "lat=19.42&lng=-99.16&radius=500",
		"zero radius":    "lat=19.42&lng=-99.16&radius=0",
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, app, http.MethodGet, "/api/places/nearby?"+query, nil, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleMarkers(t *testing.T) {
	app := newTestApp(t)
	place := createPlace(t, app, "Máximo", models.CategoryRestaurant, 19.4167, -99.1620)
	require.NoError(t, app.Store().CreatePlace(context.Background(), &models.Place{
		Name:     "Pop-up sin ubicación",
		Category: models.CategoryEventVenue,
	}))

	rec := do(t, app, http.MethodGet, "/api/map/markers", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	fc := decode[geo.FeatureCollection](t, rec)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, place.ID.String(), fc.Features[0].ID)
	assert.Equal(t, orb.Point{-99.1620, 19.4167}, fc.Features[0].Geometry)
	assert.Equal(t, "Máximo", fc.Features[0].Properties["name"])
}

func TestHandleEvents(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	place := createPlace(t, app, "Foro Indie Rocks", models.CategoryEventVenue, 19.4143, -99.1566)

	now := time.Now().UTC()
	past := &models.Event{PlaceID: place.ID, Title: "Ayer", StartsAt: now.Add(-24 * time.Hour)}
	later := &models.Event{PlaceID: place.ID, Title: "Pasado mañana", StartsAt: now.Add(48 * time.Hour)}
	soon := &models.Event{PlaceID: place.ID, Title: "Mañana", StartsAt: now.Add(24 * time.Hour)}
	for _, e := range []*models.Event{past, later, soon} {
		require.NoError(t, app.Store().CreateEvent(ctx, e))
	}

	rec := do(t, app, http.MethodGet, "/api/places/"+place.ID.String()+"/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]models.Event](t, rec)
	require.Len(t, events, 3)
	assert.Equal(t, past.ID, events[0].ID)

	rec = do(t, app, http.MethodGet, "/api/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	events = decode[[]models.Event](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, soon.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)

	rec = do(t, app, http.MethodGet, "/api/events?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Event](t, rec), 1)
}

func TestHandleGetSocialNetwork(t *testing.T) {
	app := newTestApp(t)
	sn := createSocialNetwork(t, app, models.PlatformInstagram, "rosetta_mx")

	rec := do(t, app, http.MethodGet, "/api/social-networks/"+sn.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.SocialNetwork](t, rec)
	assert.Equal(t, sn.URL, got.URL)

	rec = do(t, app, http.MethodGet, "/api/social-networks/"+models.NewSocialNetworkID().String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
