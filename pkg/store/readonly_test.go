package store_test

import (
	"context"
	"testing"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records the calls that reach the wrapped backend.
type countingStore struct {
	store.Store
	migrations int
	creates    int
	deletes    int
}

func (c *countingStore) Migrate(context.Context) error {
	c.migrations++
	return nil
}

func (c *countingStore) CreatePlace(context.Context, *models.Place) error {
	c.creates++
	return nil
}

func (c *countingStore) DeletePlace(context.Context, models.PlaceID) error {
	c.deletes++
	return nil
}

func TestReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{}
	frozen := true
	s := store.NewReadOnlyStore(backend, func() bool { return frozen })

	assert.ErrorIs(t, s.CreatePlace(ctx, &models.Place{}), store.ErrReadOnly)
	assert.ErrorIs(t, s.DeletePlace(ctx, models.NewPlaceID()), store.ErrReadOnly)
	assert.Zero(t, backend.creates)
	assert.Zero(t, backend.deletes)

	require.NoError(t, s.Migrate(ctx))
	assert.Equal(t, 1, backend.migrations)

	frozen = false
	require.NoError(t, s.CreatePlace(ctx, &models.Place{}))
	require.NoError(t, s.DeletePlace(ctx, models.NewPlaceID()))
	assert.Equal(t, 1, backend.creates)
	assert.Equal(t, 1, backend.deletes)
}

func TestReadOnlyStore_unwrap(t *testing.T) {
	backend := &countingStore{}
	s := store.NewReadOnlyStore(backend, func() bool { return false })

	ro, ok := s.(*store.ReadOnlyStore)
	require.True(t, ok)
	assert.Same(t, backend, ro.Unwrap())
}
