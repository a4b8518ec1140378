package surrealdb

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/ref"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/dondetu/dondetu/pkg/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go"
)

// EnvWSURL enables the integration tests, e.g. SURREALDB_URL=ws://localhost:8000/rpc
const EnvWSURL = "SURREALDB_URL"

func newTestStore(t *testing.T) *SurrealStoreCBOR {
	t.Helper()

	wsURL := os.Getenv(EnvWSURL)
	if wsURL == "" {
		t.Skipf("%s not set", EnvWSURL)
	}

	// a database per test keeps the suite's tests independent
	database := fmt.Sprintf("test_%s", uuid.NewString()[:8])
	s, err := NewSurrealStoreCBOR(wsURL, "dondetu_test", database, "root", "root")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	t.Cleanup(func() {
		_, _ = surrealdb.Query[any](context.Background(), s.db, fmt.Sprintf("REMOVE DATABASE %s", database), nil)
		_ = s.Close()
	})
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestSurrealStore_writesRecordLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sn := storetest.NewSocialNetwork(models.PlatformInstagram, "mercadoroma")
	require.NoError(t, s.CreateSocialNetwork(ctx, sn))

	place := storetest.NewPlace("Mercado Roma", models.CategoryRestaurant)
	place.SocialNetworks = models.RawRefs{
		map[string]any{"path": "social_networks/" + sn.ID.String()},
		map[string]any{"broken": true},
	}
	require.NoError(t, s.CreatePlace(ctx, place))

	got, err := s.GetPlace(ctx, place.ID)
	require.NoError(t, err)
	require.Len(t, got.SocialNetworks, 1)

	id, ok := ref.ResolveOne(got.SocialNetworks[0])
	require.True(t, ok, "unresolvable link %#v", got.SocialNetworks[0])
	assert.Equal(t, sn.ID.String(), id)
}

func TestRecordLinks_withoutConnection(t *testing.T) {
	s := &SurrealStoreCBOR{resolver: ref.NewResolver()}

	links := s.recordLinks(models.RawRefs{"a", map[string]any{"id": "b"}, nil, "c/d"})

	require.Len(t, links, 2)
	assert.Equal(t, "a", links[0].(models.SocialNetworkID).String())
	assert.Equal(t, "b", links[1].(models.SocialNetworkID).String())
	assert.Nil(t, s.recordLinks(nil))
}
