package dondetu

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// newTestApp creates an application on a fresh SQLite file with the admin API
// enabled.
func newTestApp(t *testing.T, mutate ...func(*Config)) *App {
	t.Helper()

	config := DefaultConfig()
	config.Backend = BackendSQLite
	config.SQLite.Path = filepath.Join(t.TempDir(), "dondetu.db")
	config.Auth.Secret = testSecret
	for _, m := range mutate {
		m(config)
	}
	require.NoError(t, config.Validate())

	app, err := New(context.Background(), config, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, app.Migrate(context.Background()))
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func adminToken(t *testing.T, app *App, roles ...string) string {
	t.Helper()

	if roles == nil {
		roles = []string{"admin"}
	}
	token, err := app.auth.Sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "editor-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "editor@dondetu.mx",
		Roles: roles,
	})
	require.NoError(t, err)
	return token
}

// do sends a request through the full handler chain. A non-nil body is encoded as JSON.
func do(t *testing.T, app *App, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createPlace(t *testing.T, app *App, name string, category models.Category, lat, lng float64, refs ...any) *models.Place {
	t.Helper()

	place := &models.Place{
		Name:           name,
		Category:       category,
		Location:       models.NewGeometryPoint(lat, lng),
		SocialNetworks: models.RawRefs(refs),
	}
	require.NoError(t, app.Store().CreatePlace(context.Background(), place))
	return place
}

func createSocialNetwork(t *testing.T, app *App, platform models.Platform, handle string) *models.SocialNetwork {
	t.Helper()

	sn := &models.SocialNetwork{
		Platform: platform,
		Handle:   handle,
		URL:      "https://" + string(platform) + ".com/" + handle,
	}
	require.NoError(t, app.Store().CreateSocialNetwork(context.Background(), sn))
	return sn
}

func TestApp_readOnly(t *testing.T) {
	app := newTestApp(t, func(c *Config) { c.ReadOnly = true })
	ctx := context.Background()

	assert.True(t, app.IsReadOnly())
	require.NoError(t, app.Migrate(ctx), "schema changes are allowed while frozen")
	err := app.Store().CreatePlace(ctx, &models.Place{Name: "Azul Histórico", Category: models.CategoryRestaurant})
	require.ErrorIs(t, err, store.ErrReadOnly)

	app.SetReadOnly(false)
	assert.False(t, app.IsReadOnly())
	require.NoError(t, app.Store().CreatePlace(ctx, &models.Place{Name: "Azul Histórico", Category: models.CategoryRestaurant}))

	places, err := app.Store().ListPlaces(ctx, store.PlaceFilter{})
	require.NoError(t, err)
	assert.Len(t, places, 1)
}

func TestNew_unknownBackend(t *testing.T) {
	config := DefaultConfig()
	config.Backend = "mongodb"

	_, err := New(context.Background(), config, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestNew_redisUnavailable(t *testing.T) {
	config := DefaultConfig()
	config.Backend = BackendSQLite
	config.SQLite.Path = filepath.Join(t.TempDir(), "dondetu.db")
	config.Redis.URL = "redis://127.0.0.1:1/0"

	_, err := New(context.Background(), config, zerolog.Nop())
	require.Error(t, err)
}

func TestNew_withRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newTestApp(t, func(c *Config) { c.Redis.URL = "redis://" + mr.Addr() + "/0" })

	sn := createSocialNetwork(t, app, models.PlatformInstagram, "pujolrestaurant")
	place := createPlace(t, app, "Pujol", models.CategoryRestaurant, 19.4326, -99.1947, sn.ID.String())

	rec := do(t, app, http.MethodGet, "/api/places/"+place.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, mr.Exists("dondetu:place:"+place.ID.String()))
	assert.True(t, mr.Exists("dondetu:social_network:"+sn.ID.String()))
}
