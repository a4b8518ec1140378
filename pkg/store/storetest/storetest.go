// Package storetest holds the behavioural tests every [store.Store] backend must pass.
//
// Backend packages run the suite from their own tests:
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T) store.Store {
//			return newTestStore(t)
//		})
//	}
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/ref"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/stretchr/testify/suite"
)

// Factory returns an empty, migrated store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	suite.Run(t, &Suite{newStore: newStore})
}

// Suite is the conformance suite. Each test gets a fresh store.
type Suite struct {
	suite.Suite
	newStore Factory
	store    store.Store
	ctx      context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
}

// NewPlace returns a valid place for tests.
func NewPlace(name string, category models.Category) *models.Place {
	return &models.Place{
		Name:         name,
		Category:     category,
		Description:  "Tacos al pastor y mezcal",
		Address:      "Av. Álvaro Obregón 100, Roma Nte., CDMX",
		Location:     models.NewGeometryPoint(19.4194, -99.1617),
		PriceLevel:   2,
		Tags:         models.StringList{"terraza", "pet friendly"},
		OpeningHours: models.JSONMap{"mon": "13:00-23:00"},
	}
}

// NewSocialNetwork returns a valid social network for tests.
func NewSocialNetwork(platform models.Platform, handle string) *models.SocialNetwork {
	return &models.SocialNetwork{
		Platform: platform,
		Handle:   handle,
		URL:      "https://" + string(platform) + ".com/" + handle,
	}
}

func (s *Suite) TestPlaceCRUD() {
	place := NewPlace("El Califa", models.CategoryRestaurant)
	s.Require().NoError(s.store.CreatePlace(s.ctx, place))
	s.Require().False(place.ID.IsZero())
	s.Require().False(place.CreatedAt.IsZero())

	got, err := s.store.GetPlace(s.ctx, place.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(place.Name, got.Name)
	s.Equal(place.Category, got.Category)
	s.InDelta(place.Location.Latitude, got.Location.Latitude, 1e-9)
	s.InDelta(place.Location.Longitude, got.Location.Longitude, 1e-9)
	s.Equal([]string(place.Tags), []string(got.Tags))

	got.Name = "El Califa de León"
	got.Featured = true
	s.Require().NoError(s.store.UpdatePlace(s.ctx, got))

	updated, err := s.store.GetPlace(s.ctx, place.ID)
	s.Require().NoError(err)
	s.Equal("El Califa de León", updated.Name)
	s.True(updated.Featured)

	s.Require().NoError(s.store.DeletePlace(s.ctx, place.ID))
	deleted, err := s.store.GetPlace(s.ctx, place.ID)
	s.Require().NoError(err)
	s.Nil(deleted)
}

func (s *Suite) TestGetMissing() {
	place, err := s.store.GetPlace(s.ctx, models.NewPlaceID())
	s.NoError(err)
	s.Nil(place)

	sn, err := s.store.GetSocialNetwork(s.ctx, models.NewSocialNetworkID())
	s.NoError(err)
	s.Nil(sn)

	event, err := s.store.GetEvent(s.ctx, models.NewEventID())
	s.NoError(err)
	s.Nil(event)
}

func (s *Suite) TestListPlaces() {
	for _, p := range []*models.Place{
		NewPlace("Zinco Jazz Club", models.CategoryClub),
		NewPlace("Bósforo", models.CategoryBar),
		NewPlace("Licorería Limantour", models.CategoryBar),
		NewPlace("Café de Tacuba", models.CategoryRestaurant),
	} {
		if p.Name == "Licorería Limantour" {
			p.Featured = true
		}
		s.Require().NoError(s.store.CreatePlace(s.ctx, p))
	}

	all, err := s.store.ListPlaces(s.ctx, store.PlaceFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal("Licorería Limantour", all[0].Name, "featured places come first")
	s.Equal("Bósforo", all[1].Name)

	bars, err := s.store.ListPlaces(s.ctx, store.PlaceFilter{Category: models.CategoryBar})
	s.Require().NoError(err)
	s.Len(bars, 2)

	featured, err := s.store.ListPlaces(s.ctx, store.PlaceFilter{FeaturedOnly: true})
	s.Require().NoError(err)
	s.Require().Len(featured, 1)

	limited, err := s.store.ListPlaces(s.ctx, store.PlaceFilter{Limit: 2})
	s.Require().NoError(err)
	s.Len(limited, 2)
}

// TestSocialNetworkRefsRoundtrip checks that whatever a backend writes into the
// reference array resolves back to the linked IDs.
func (s *Suite) TestSocialNetworkRefsRoundtrip() {
	ig := NewSocialNetwork(models.PlatformInstagram, "lacantina")
	fb := NewSocialNetwork(models.PlatformFacebook, "lacantina")
	s.Require().NoError(s.store.CreateSocialNetwork(s.ctx, ig))
	s.Require().NoError(s.store.CreateSocialNetwork(s.ctx, fb))

	place := NewPlace("La Cantina", models.CategoryBar)
	place.SocialNetworks = models.RawRefsFromIDs(ig.ID, fb.ID)
	s.Require().NoError(s.store.CreatePlace(s.ctx, place))

	got, err := s.store.GetPlace(s.ctx, place.ID)
	s.Require().NoError(err)
	s.Equal([]string{ig.ID.String(), fb.ID.String()}, ref.ResolveMany(got.SocialNetworks))

	sn, err := s.store.GetSocialNetwork(s.ctx, ig.ID)
	s.Require().NoError(err)
	s.Require().NotNil(sn)
	s.Equal(models.PlatformInstagram, sn.Platform)
	s.Equal("https://instagram.com/lacantina", sn.URL)
}

func (s *Suite) TestSocialNetworkCRUD() {
	sn := NewSocialNetwork(models.PlatformTikTok, "taqueria")
	s.Require().NoError(s.store.CreateSocialNetwork(s.ctx, sn))

	sn.Handle = "taqueria.oficial"
	s.Require().NoError(s.store.UpdateSocialNetwork(s.ctx, sn))

	got, err := s.store.GetSocialNetwork(s.ctx, sn.ID)
	s.Require().NoError(err)
	s.Equal("taqueria.oficial", got.Handle)

	all, err := s.store.ListSocialNetworks(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)

	s.Require().NoError(s.store.DeleteSocialNetwork(s.ctx, sn.ID))
	got, err = s.store.GetSocialNetwork(s.ctx, sn.ID)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *Suite) TestEvents() {
	place := NewPlace("Foro Indie Rocks", models.CategoryEventVenue)
	other := NewPlace("Multiforo Alicia", models.CategoryEventVenue)
	s.Require().NoError(s.store.CreatePlace(s.ctx, place))
	s.Require().NoError(s.store.CreatePlace(s.ctx, other))

	base := time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC)
	events := []*models.Event{
		{PlaceID: place.ID, Title: "Late show", StartsAt: base.Add(48 * time.Hour)},
		{PlaceID: place.ID, Title: "Opening", StartsAt: base},
		{PlaceID: other.ID, Title: "Past gig", StartsAt: base.Add(-72 * time.Hour)},
	}
	for _, e := range events {
		s.Require().NoError(s.store.CreateEvent(s.ctx, e))
	}

	byPlace, err := s.store.ListEventsByPlace(s.ctx, place.ID)
	s.Require().NoError(err)
	s.Require().Len(byPlace, 2)
	s.Equal("Opening", byPlace[0].Title)
	s.Equal("Late show", byPlace[1].Title)

	upcoming, err := s.store.ListUpcomingEvents(s.ctx, base.Add(-time.Hour), 1)
	s.Require().NoError(err)
	s.Require().Len(upcoming, 1)
	s.Equal("Opening", upcoming[0].Title)

	got, err := s.store.GetEvent(s.ctx, events[0].ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.True(base.Add(48 * time.Hour).Equal(got.StartsAt))

	got.Title = "Late late show"
	s.Require().NoError(s.store.UpdateEvent(s.ctx, got))
	s.Require().NoError(s.store.DeleteEvent(s.ctx, events[1].ID))

	byPlace, err = s.store.ListEventsByPlace(s.ctx, place.ID)
	s.Require().NoError(err)
	s.Require().Len(byPlace, 1)
	s.Equal("Late late show", byPlace[0].Title)
}

func (s *Suite) TestUpdateMissing() {
	place := NewPlace("Fantasma", models.CategoryBar)
	place.ID = models.NewPlaceID()
	err := s.store.UpdatePlace(s.ctx, place)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *Suite) TestDeleteMissing() {
	s.NoError(s.store.DeletePlace(s.ctx, models.NewPlaceID()))
	s.NoError(s.store.DeleteSocialNetwork(s.ctx, models.NewSocialNetworkID()))
	s.NoError(s.store.DeleteEvent(s.ctx, models.NewEventID()))
}
