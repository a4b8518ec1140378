// Package firestore implements [store.Store] on Cloud Firestore, the hosted
// document database the mobile apps read from.
//
// Places keep their social network links as an array of document references.
// Writes always store *firestore.DocumentRef values; documents created by
// older dashboard builds may still hold plain IDs or {id}/{path} maps, and
// reads hand the array back unchanged for the ref package to normalize.
//
// Not-found errors (codes.NotFound) are translated to nil, nil like every
// other backend.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/ref"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements store.Store using the Firestore client.
type FirestoreStore struct {
	client   *firestore.Client
	resolver *ref.Resolver
	logger   zerolog.Logger
}

// NewFirestoreStore connects to the given project. When FIRESTORE_EMULATOR_HOST
// is set the client talks to the emulator instead.
func NewFirestoreStore(ctx context.Context, projectID string, logger zerolog.Logger) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return New(client, logger), nil
}

// New wraps an existing client.
func New(client *firestore.Client, logger zerolog.Logger) *FirestoreStore {
	logger = logger.With().Str("component", "firestore").Logger()
	return &FirestoreStore{
		client:   client,
		resolver: ref.NewResolver(ref.WithLogger(logger)),
		logger:   logger,
	}
}

// Migrate is a no-op: Firestore collections are created on first write.
func (s *FirestoreStore) Migrate(ctx context.Context) error {
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// documentRefs turns a reference array into document references in the
// socialNetworks collection.
func (s *FirestoreStore) documentRefs(refs models.RawRefs) []any {
	if refs == nil {
		return []any{}
	}
	batch := s.resolver.Many([]any(refs))
	links := make([]any, 0, len(batch.IDs))
	col := s.client.Collection(CollectionSocialNetworks)
	for _, id := range batch.IDs {
		doc := col.Doc(id)
		if doc == nil {
			s.logger.Warn().Str("id", id).Msg("Dropping social network link with an invalid document ID")
			continue
		}
		links = append(links, doc)
	}
	return links
}

// get fetches a document and reports whether it exists.
func get(ctx context.Context, doc *firestore.DocumentRef, dst any) (bool, error) {
	if doc == nil {
		return false, nil
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if !snap.Exists() {
		return false, nil
	}
	if err := snap.DataTo(dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", doc.Path, err)
	}
	return true, nil
}

// Place operations
func (s *FirestoreStore) CreatePlace(ctx context.Context, place *models.Place) error {
	store.PrepareCreate(place, time.Now())

	doc := s.client.Collection(CollectionPlaces).Doc(place.ID.String())
	if _, err := doc.Create(ctx, toPlaceDoc(place, s.documentRefs(place.SocialNetworks))); err != nil {
		return fmt.Errorf("failed to create place: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetPlace(ctx context.Context, id models.PlaceID) (*models.Place, error) {
	var doc placeDoc
	found, err := get(ctx, s.client.Collection(CollectionPlaces).Doc(id.String()), &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.model(id.String())
}

func (s *FirestoreStore) UpdatePlace(ctx context.Context, place *models.Place) error {
	existing, err := s.GetPlace(ctx, place.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}
	place.CreatedAt = existing.CreatedAt
	place.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	doc := s.client.Collection(CollectionPlaces).Doc(place.ID.String())
	if _, err := doc.Set(ctx, toPlaceDoc(place, s.documentRefs(place.SocialNetworks))); err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeletePlace(ctx context.Context, id models.PlaceID) error {
	_, err := s.client.Collection(CollectionPlaces).Doc(id.String()).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListPlaces(ctx context.Context, filter store.PlaceFilter) ([]*models.Place, error) {
	q := s.client.Collection(CollectionPlaces).Query
	if filter.Category != "" {
		q = q.Where("category", "==", string(filter.Category))
	}
	if filter.FeaturedOnly {
		q = q.Where("featured", "==", true)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}

	places := make([]*models.Place, 0, len(snaps))
	for _, snap := range snaps {
		var doc placeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", snap.Ref.Path, err)
		}
		place, err := doc.model(snap.Ref.ID)
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}

	// ordering across two fields needs a composite index, so sort client side
	store.SortPlaces(places)
	if filter.Limit > 0 && len(places) > filter.Limit {
		places = places[:filter.Limit]
	}
	return places, nil
}

// Social network operations
func (s *FirestoreStore) CreateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error {
	store.PrepareCreate(sn, time.Now())

	doc := s.client.Collection(CollectionSocialNetworks).Doc(sn.ID.String())
	if _, err := doc.Create(ctx, toSocialNetworkDoc(sn)); err != nil {
		return fmt.Errorf("failed to create social network: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetSocialNetwork(ctx context.Context, id models.SocialNetworkID) (*models.SocialNetwork, error) {
	var doc socialNetworkDoc
	found, err := get(ctx, s.client.Collection(CollectionSocialNetworks).Doc(id.String()), &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get social network: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.model(id.String())
}

func (s *FirestoreStore) UpdateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error {
	existing, err := s.GetSocialNetwork(ctx, sn.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}
	sn.CreatedAt = existing.CreatedAt
	sn.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	doc := s.client.Collection(CollectionSocialNetworks).Doc(sn.ID.String())
	if _, err := doc.Set(ctx, toSocialNetworkDoc(sn)); err != nil {
		return fmt.Errorf("failed to update social network: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeleteSocialNetwork(ctx context.Context, id models.SocialNetworkID) error {
	_, err := s.client.Collection(CollectionSocialNetworks).Doc(id.String()).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListSocialNetworks(ctx context.Context) ([]*models.SocialNetwork, error) {
	snaps, err := s.client.Collection(CollectionSocialNetworks).OrderBy("platform", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list social networks: %w", err)
	}
	networks := make([]*models.SocialNetwork, 0, len(snaps))
	for _, snap := range snaps {
		var doc socialNetworkDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", snap.Ref.Path, err)
		}
		sn, err := doc.model(snap.Ref.ID)
		if err != nil {
			return nil, err
		}
		networks = append(networks, sn)
	}
	return networks, nil
}

// Event operations
func (s *FirestoreStore) CreateEvent(ctx context.Context, event *models.Event) error {
	store.PrepareCreate(event, time.Now())

	doc := s.client.Collection(CollectionEvents).Doc(event.ID.String())
	if _, err := doc.Create(ctx, toEventDoc(event)); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetEvent(ctx context.Context, id models.EventID) (*models.Event, error) {
	var doc eventDoc
	found, err := get(ctx, s.client.Collection(CollectionEvents).Doc(id.String()), &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.model(id.String())
}

func (s *FirestoreStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	existing, err := s.GetEvent(ctx, event.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	doc := s.client.Collection(CollectionEvents).Doc(event.ID.String())
	if _, err := doc.Set(ctx, toEventDoc(event)); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeleteEvent(ctx context.Context, id models.EventID) error {
	_, err := s.client.Collection(CollectionEvents).Doc(id.String()).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListEventsByPlace(ctx context.Context, placeID models.PlaceID) ([]*models.Event, error) {
	q := s.client.Collection(CollectionEvents).Where("placeId", "==", placeID.String())
	events, err := s.queryEvents(ctx, q)
	if err != nil {
		return nil, err
	}
	store.SortEvents(events)
	return events, nil
}

func (s *FirestoreStore) ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]*models.Event, error) {
	q := s.client.Collection(CollectionEvents).Where("startsAt", ">=", from.UTC()).OrderBy("startsAt", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.queryEvents(ctx, q)
}

func (s *FirestoreStore) queryEvents(ctx context.Context, q firestore.Query) ([]*models.Event, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]*models.Event, 0, len(snaps))
	for _, snap := range snaps {
		var doc eventDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", snap.Ref.Path, err)
		}
		event, err := doc.model(snap.Ref.ID)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

var _ store.Store = (*FirestoreStore)(nil)
