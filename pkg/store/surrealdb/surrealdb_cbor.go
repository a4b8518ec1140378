// Package surrealdb provides the SurrealDB implementation of the [github.com/dondetu/dondetu/pkg/store.Store] interface using native SurrealQL.
//
// # CBOR Marshaling Strategy
//
// The store talks to SurrealDB through the surrealcbor codec so that Go types map
// onto SurrealDB's native types:
//
//   - typed IDs ([github.com/dondetu/dondetu/pkg/models.PlaceID] and friends) become RecordIDs
//   - [github.com/dondetu/dondetu/pkg/models.GeometryPoint] becomes a geometry point (CBOR tag 88)
//   - time.Time values use SurrealDB's native datetime format
//
// # Social network links
//
// When a place is written, its reference array is normalized to record links
// (social_networks:<id>). Documents written by other tools may still hold plain
// strings or objects; reads return the array untouched and leave resolution to
// [github.com/dondetu/dondetu/pkg/ref].
//
// # Security and Query Safety
//
// Every query is parameterized ($param syntax). User-provided values are never
// interpolated into SurrealQL.
//
// # Usage Example
//
//	s, err := surrealdb.NewSurrealStoreCBOR(
//		"ws://localhost:8000/rpc",
//		"dondetu", "dondetu", "root", "root",
//	)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/ref"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

// SurrealStoreCBOR implements the Store interface using SurrealDB with proper CBOR handling.
type SurrealStoreCBOR struct {
	db       *surrealdb.DB
	ns       string
	database string
	resolver *ref.Resolver
	logger   zerolog.Logger
}

// Options configures the SurrealDB connection.
type Options struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	Logger    zerolog.Logger
}

// NewSurrealStoreCBOR creates a new SurrealDB store with surrealcbor for proper time.Time handling.
func NewSurrealStoreCBOR(wsURL, namespace, database, username, password string) (*SurrealStoreCBOR, error) {
	return New(context.Background(), Options{
		URL:       wsURL,
		Namespace: namespace,
		Database:  database,
		Username:  username,
		Password:  password,
		Logger:    zerolog.Nop(),
	})
}

// New connects, signs in when credentials are given, and selects the namespace and database.
func New(ctx context.Context, opts Options) (*SurrealStoreCBOR, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)

	// Without surrealcbor, time.Time and RecordID values are not marshaled in SurrealDB's format
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if opts.Username != "" && opts.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": opts.Username,
			"pass": opts.Password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, opts.Namespace, opts.Database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	logger := opts.Logger.With().Str("component", "surrealdb").Str("ns", opts.Namespace).Str("db", opts.Database).Logger()
	return &SurrealStoreCBOR{
		db:       db,
		ns:       opts.Namespace,
		database: opts.Database,
		resolver: ref.NewResolver(ref.WithLogger(logger)),
		logger:   logger,
	}, nil
}

// Migrate defines the indexes the list queries use. Tables themselves are
// created implicitly on first insert.
func (s *SurrealStoreCBOR) Migrate(ctx context.Context) error {
	query := `
		DEFINE INDEX IF NOT EXISTS places_category ON TABLE places FIELDS category;
		DEFINE INDEX IF NOT EXISTS places_featured ON TABLE places FIELDS featured;
		DEFINE INDEX IF NOT EXISTS events_place ON TABLE events FIELDS place_id;
		DEFINE INDEX IF NOT EXISTS events_starts_at ON TABLE events FIELDS starts_at;
	`
	if _, err := surrealdb.Query[any](ctx, s.db, query, nil); err != nil {
		return fmt.Errorf("failed to define indexes: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SurrealStoreCBOR) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFoundCBOR reports whether err only means the record is absent.
func handleNotFoundCBOR(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// recordLinks rewrites a reference array as record links. References that do
// not resolve are dropped with a warning.
func (s *SurrealStoreCBOR) recordLinks(refs models.RawRefs) models.RawRefs {
	if refs == nil {
		return nil
	}
	batch := s.resolver.Many([]any(refs))
	links := make(models.RawRefs, 0, len(batch.IDs))
	for _, id := range batch.IDs {
		snID, err := models.ParseSocialNetworkID(id)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Dropping social network link")
			continue
		}
		links = append(links, snID)
	}
	return links
}

func (s *SurrealStoreCBOR) forWrite(place *models.Place) *models.Place {
	doc := *place
	doc.SocialNetworks = s.recordLinks(place.SocialNetworks)
	return &doc
}

// Place operations
func (s *SurrealStoreCBOR) CreatePlace(ctx context.Context, place *models.Place) error {
	store.PrepareCreate(place, time.Now())

	if _, err := surrealdb.Create[models.Place](ctx, s.db, place.ID.RecordID(), s.forWrite(place)); err != nil {
		return fmt.Errorf("failed to create place: %w", err)
	}
	return nil
}

func (s *SurrealStoreCBOR) GetPlace(ctx context.Context, id models.PlaceID) (*models.Place, error) {
	place, err := surrealdb.Select[models.Place](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFoundCBOR(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	if place != nil && place.ID.IsZero() {
		return nil, nil
	}
	return place, nil
}

func (s *SurrealStoreCBOR) UpdatePlace(ctx context.Context, place *models.Place) error {
	existing, err := s.GetPlace(ctx, place.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}
	place.CreatedAt = existing.CreatedAt
	place.UpdatedAt = time.Now().UTC()

	if _, err := surrealdb.Update[models.Place](ctx, s.db, place.ID.RecordID(), s.forWrite(place)); err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}
	return nil
}

func (s *SurrealStoreCBOR) DeletePlace(ctx context.Context, id models.PlaceID) error {
	_, err := surrealdb.Delete[models.Place](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStoreCBOR) ListPlaces(ctx context.Context, filter store.PlaceFilter) ([]*models.Place, error) {
	var conditions []string
	params := map[string]any{}
	if filter.Category != "" {
		conditions = append(conditions, "category = $category")
		params["category"] = string(filter.Category)
	}
	if filter.FeaturedOnly {
		conditions = append(conditions, "featured = true")
	}

	query := "SELECT * FROM places"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY featured DESC, name ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return queryAll[models.Place](ctx, s.db, query, params, "places")
}

// Social network operations
func (s *SurrealStoreCBOR) CreateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error {
	store.PrepareCreate(sn, time.Now())

	if _, err := surrealdb.Create[models.SocialNetwork](ctx, s.db, sn.ID.RecordID(), sn); err != nil {
		return fmt.Errorf("failed to create social network: %w", err)
	}
	return nil
}

func (s *SurrealStoreCBOR) GetSocialNetwork(ctx context.Context, id models.SocialNetworkID) (*models.SocialNetwork, error) {
	sn, err := surrealdb.Select[models.SocialNetwork](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFoundCBOR(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get social network: %w", err)
	}
	if sn != nil && sn.ID.IsZero() {
		return nil, nil
	}
	return sn, nil
}

func (s *SurrealStoreCBOR) UpdateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error {
	existing, err := s.GetSocialNetwork(ctx, sn.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}
	sn.CreatedAt = existing.CreatedAt
	sn.UpdatedAt = time.Now().UTC()

	if _, err := surrealdb.Update[models.SocialNetwork](ctx, s.db, sn.ID.RecordID(), sn); err != nil {
		return fmt.Errorf("failed to update social network: %w", err)
	}
	return nil
}

func (s *SurrealStoreCBOR) DeleteSocialNetwork(ctx context.Context, id models.SocialNetworkID) error {
	_, err := surrealdb.Delete[models.SocialNetwork](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStoreCBOR) ListSocialNetworks(ctx context.Context) ([]*models.SocialNetwork, error) {
	return queryAll[models.SocialNetwork](ctx, s.db, "SELECT * FROM social_networks ORDER BY platform ASC, id ASC", nil, "social networks")
}

// Event operations
func (s *SurrealStoreCBOR) CreateEvent(ctx context.Context, event *models.Event) error {
	store.PrepareCreate(event, time.Now())

	if _, err := surrealdb.Create[models.Event](ctx, s.db, event.ID.RecordID(), event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *SurrealStoreCBOR) GetEvent(ctx context.Context, id models.EventID) (*models.Event, error) {
	event, err := surrealdb.Select[models.Event](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFoundCBOR(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event != nil && event.ID.IsZero() {
		return nil, nil
	}
	return event, nil
}

func (s *SurrealStoreCBOR) UpdateEvent(ctx context.Context, event *models.Event) error {
	existing, err := s.GetEvent(ctx, event.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now().UTC()

	if _, err := surrealdb.Update[models.Event](ctx, s.db, event.ID.RecordID(), event); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (s *SurrealStoreCBOR) DeleteEvent(ctx context.Context, id models.EventID) error {
	_, err := surrealdb.Delete[models.Event](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStoreCBOR) ListEventsByPlace(ctx context.Context, placeID models.PlaceID) ([]*models.Event, error) {
	query := "SELECT * FROM events WHERE place_id = $place ORDER BY starts_at ASC"
	params := map[string]any{
		"place": placeID.RecordID(),
	}
	return queryAll[models.Event](ctx, s.db, query, params, "events")
}

func (s *SurrealStoreCBOR) ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]*models.Event, error) {
	query := "SELECT * FROM events WHERE starts_at >= $from ORDER BY starts_at ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	params := map[string]any{
		"from": from.UTC(),
	}
	return queryAll[models.Event](ctx, s.db, query, params, "events")
}

// queryAll runs a single SELECT statement and returns its rows.
func queryAll[T any](ctx context.Context, db *surrealdb.DB, query string, params map[string]any, what string) ([]*T, error) {
	result, err := surrealdb.Query[[]*T](ctx, db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	if result == nil || len(*result) == 0 {
		return nil, nil
	}
	return (*result)[0].Result, nil
}

var _ store.Store = (*SurrealStoreCBOR)(nil)
