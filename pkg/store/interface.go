// Package store provides the data persistence layer abstraction for the DóndeTú directory.
//
// This package defines the [Store] interface which lets the application run on
// different document and relational backends through one API:
//
//   - [github.com/dondetu/dondetu/pkg/store/firestore.FirestoreStore]: the hosted document
//     store the directory was first built on; social network links are document handles
//   - [github.com/dondetu/dondetu/pkg/store/surrealdb.SurrealStoreCBOR]: SurrealDB through
//     native SurrealQL; social network links are record IDs
//   - [github.com/dondetu/dondetu/pkg/store/postgres.PostgresStore]: GORM over PostgreSQL
//     (or SQLite in tests); social network links are stored as a JSON array
//
// Two wrappers compose with any backend: [ReadOnlyStore] rejects writes while the
// dashboard is frozen, and [github.com/dondetu/dondetu/pkg/store/cache.CachedStore]
// serves hot reads from Redis.
//
// # Not found
//
// Get methods return (nil, nil) when the document does not exist. Callers decide
// whether absence is an error; the place loader, for instance, treats a missing
// social network as a link that contributes nothing.
//
// # Denormalized references
//
// [github.com/dondetu/dondetu/pkg/models.Place.SocialNetworks] is returned exactly as
// stored. Stores never resolve it; see [github.com/dondetu/dondetu/pkg/ref].
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dondetu/dondetu/pkg/models"
)

var (
	// ErrReadOnly is returned by write operations while the store is frozen.
	ErrReadOnly = errors.New("operation denied: directory is in read-only mode")
	// ErrNotFound is returned by updates of documents that do not exist. Deleting a
	// missing document is not an error.
	ErrNotFound = errors.New("document not found")
)

// PlaceFilter narrows ListPlaces. The zero value lists every place.
type PlaceFilter struct {
	Category     models.Category
	FeaturedOnly bool
	// Limit caps the number of results; 0 means no limit.
	Limit int
}

// Match reports whether p passes the filter. Backends that cannot express the
// filter natively apply it after fetching.
func (f PlaceFilter) Match(p *models.Place) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.FeaturedOnly && !p.Featured {
		return false
	}
	return true
}

// Store defines the complete data access interface.
// Places are ordered featured first, then by name; events by start time.
type Store interface {
	// Place operations

	// CreatePlace persists a new place, assigning an ID and timestamps when unset.
	CreatePlace(ctx context.Context, place *models.Place) error

	// GetPlace returns the place or (nil, nil) when it does not exist.
	GetPlace(ctx context.Context, id models.PlaceID) (*models.Place, error)

	// UpdatePlace replaces every field of an existing place.
	UpdatePlace(ctx context.Context, place *models.Place) error

	DeletePlace(ctx context.Context, id models.PlaceID) error

	ListPlaces(ctx context.Context, filter PlaceFilter) ([]*models.Place, error)

	// Social network operations

	CreateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error

	// GetSocialNetwork returns the social network or (nil, nil) when it does not exist.
	GetSocialNetwork(ctx context.Context, id models.SocialNetworkID) (*models.SocialNetwork, error)

	UpdateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error

	DeleteSocialNetwork(ctx context.Context, id models.SocialNetworkID) error

	ListSocialNetworks(ctx context.Context) ([]*models.SocialNetwork, error)

	// Event operations

	CreateEvent(ctx context.Context, event *models.Event) error

	// GetEvent returns the event or (nil, nil) when it does not exist.
	GetEvent(ctx context.Context, id models.EventID) (*models.Event, error)

	UpdateEvent(ctx context.Context, event *models.Event) error

	DeleteEvent(ctx context.Context, id models.EventID) error

	ListEventsByPlace(ctx context.Context, placeID models.PlaceID) ([]*models.Event, error)

	// ListUpcomingEvents returns events starting at or after from, soonest first.
	// A limit of 0 means no limit.
	ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]*models.Event, error)

	// Schema and lifecycle

	// Migrate prepares the backend schema. It is safe to run repeatedly.
	Migrate(ctx context.Context) error

	Close() error
}

// PrepareCreate assigns an ID and timestamps to a new document when unset.
// It accepts *models.Place, *models.SocialNetwork and *models.Event.
func PrepareCreate(doc any, now time.Time) {
	switch d := doc.(type) {
	case *models.Place:
		if d.ID.IsZero() {
			d.ID = models.NewPlaceID()
		}
		stamp(&d.CreatedAt, &d.UpdatedAt, now)
	case *models.SocialNetwork:
		if d.ID.IsZero() {
			d.ID = models.NewSocialNetworkID()
		}
		stamp(&d.CreatedAt, &d.UpdatedAt, now)
	case *models.Event:
		if d.ID.IsZero() {
			d.ID = models.NewEventID()
		}
		stamp(&d.CreatedAt, &d.UpdatedAt, now)
	}
}

func stamp(createdAt, updatedAt *time.Time, now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = now
	}
}

// SortPlaces orders places featured first, then by name.
func SortPlaces(places []*models.Place) {
	slices.SortStableFunc(places, func(a, b *models.Place) int {
		if a.Featured != b.Featured {
			if a.Featured {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// SortEvents orders events by start time.
func SortEvents(events []*models.Event) {
	slices.SortStableFunc(events, func(a, b *models.Event) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
}
