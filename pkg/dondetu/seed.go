package dondetu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dondetu/dondetu/pkg/models"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML format accepted by `dondetu seed`. Places link social
// networks and events by the keys declared in the same file:
//
//	social_networks:
//	  - key: limantour-ig
//	    platform: instagram
//	    handle: licorerialimantour
//	    url: https://instagram.com/licorerialimantour
//	places:
//	  - name: Licorería Limantour
//	    category: bar
//	    location: {lat: 19.4199, lng: -99.1634}
//	    featured: true
//	    social_networks: [limantour-ig]
//	    events:
//	      - title: Noche de coctelería
//	        starts_at: 2026-11-06T21:00:00-06:00
type SeedFile struct {
	SocialNetworks []SeedSocialNetwork `yaml:"social_networks"`
	Places         []SeedPlace         `yaml:"places"`
}

type SeedSocialNetwork struct {
	Key      string `yaml:"key"`
	Platform string `yaml:"platform"`
	Handle   string `yaml:"handle"`
	URL      string `yaml:"url"`
}

type SeedPlace struct {
	Name           string            `yaml:"name"`
	Category       string            `yaml:"category"`
	Description    string            `yaml:"description"`
	Address        string            `yaml:"address"`
	Location       SeedLocation      `yaml:"location"`
	PriceLevel     int               `yaml:"price_level"`
	Phone          string            `yaml:"phone"`
	Website        string            `yaml:"website"`
	ImageURLs      []string          `yaml:"image_urls"`
	OpeningHours   map[string]string `yaml:"opening_hours"`
	Tags           []string          `yaml:"tags"`
	Featured       bool              `yaml:"featured"`
	SocialNetworks []string          `yaml:"social_networks"`
	Events         []SeedEvent       `yaml:"events"`
}

type SeedLocation struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type SeedEvent struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	StartsAt    time.Time `yaml:"starts_at"`
	EndsAt      time.Time `yaml:"ends_at"`
	ImageURL    string    `yaml:"image_url"`
	Price       string    `yaml:"price"`
}

// SeedResult counts what a seed run created.
type SeedResult struct {
	SocialNetworks int `json:"social_networks"`
	Places         int `json:"places"`
	Events         int `json:"events"`
}

// ParseSeedFile decodes and checks a seed file without touching the store.
func ParseSeedFile(r io.Reader) (*SeedFile, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	keys := make(map[string]bool, len(file.SocialNetworks))
	for i, sn := range file.SocialNetworks {
		if sn.Key == "" {
			return nil, fmt.Errorf("social_networks[%d]: key is required", i)
		}
		if keys[sn.Key] {
			return nil, fmt.Errorf("social_networks[%d]: duplicate key %q", i, sn.Key)
		}
		keys[sn.Key] = true
	}
	for i, p := range file.Places {
		for _, key := range p.SocialNetworks {
			if !keys[key] {
				return nil, fmt.Errorf("places[%d] (%s): unknown social network %q", i, p.Name, key)
			}
		}
	}
	return &file, nil
}

// Seed creates every document in the file. Documents are validated before
// anything is written.
func (a *App) Seed(ctx context.Context, file *SeedFile) (*SeedResult, error) {
	networks := make([]*models.SocialNetwork, len(file.SocialNetworks))
	for i, s := range file.SocialNetworks {
		networks[i] = &models.SocialNetwork{
			Platform: models.Platform(s.Platform),
			Handle:   s.Handle,
			URL:      s.URL,
		}
		if err := networks[i].Validate(); err != nil {
			return nil, fmt.Errorf("social network %q: %w", s.Key, err)
		}
	}

	places := make([]*models.Place, len(file.Places))
	for i, p := range file.Places {
		place := &models.Place{
			Name:        p.Name,
			Category:    models.Category(p.Category),
			Description: p.Description,
			Address:     p.Address,
			Location:    models.NewGeometryPoint(p.Location.Lat, p.Location.Lng),
			PriceLevel:  p.PriceLevel,
			Phone:       p.Phone,
			Website:     p.Website,
			ImageURLs:   p.ImageURLs,
			Tags:        p.Tags,
			Featured:    p.Featured,
		}
		if len(p.OpeningHours) > 0 {
			place.OpeningHours = models.JSONMap{}
			for day, hours := range p.OpeningHours {
				place.OpeningHours[day] = hours
			}
		}
		if err := place.Validate(); err != nil {
			return nil, fmt.Errorf("place %q: %w", p.Name, err)
		}
		for _, e := range p.Events {
			if err := seedEvent(models.NewPlaceID(), e).Validate(); err != nil {
				return nil, fmt.Errorf("event %q at %q: %w", e.Title, p.Name, err)
			}
		}
		places[i] = place
	}

	result := &SeedResult{}
	ids := make(map[string]models.SocialNetworkID, len(networks))
	for i, sn := range networks {
		if err := a.store.CreateSocialNetwork(ctx, sn); err != nil {
			return result, fmt.Errorf("failed to create social network %q: %w", file.SocialNetworks[i].Key, err)
		}
		ids[file.SocialNetworks[i].Key] = sn.ID
		result.SocialNetworks++
	}

	for i, place := range places {
		seed := file.Places[i]
		linked := make([]models.SocialNetworkID, 0, len(seed.SocialNetworks))
		for _, key := range seed.SocialNetworks {
			linked = append(linked, ids[key])
		}
		place.SocialNetworks = models.RawRefsFromIDs(linked...)

		if err := a.store.CreatePlace(ctx, place); err != nil {
			return result, fmt.Errorf("failed to create place %q: %w", place.Name, err)
		}
		result.Places++

		for _, e := range seed.Events {
			event := seedEvent(place.ID, e)
			if err := a.store.CreateEvent(ctx, event); err != nil {
				return result, fmt.Errorf("failed to create event %q: %w", e.Title, err)
			}
			result.Events++
		}
	}

	a.logger.Info().
		Int("social_networks", result.SocialNetworks).
		Int("places", result.Places).
		Int("events", result.Events).
		Msg("Seed complete")
	return result, nil
}

func seedEvent(placeID models.PlaceID, e SeedEvent) *models.Event {
	return &models.Event{
		PlaceID:     placeID,
		Title:       e.Title,
		Description: e.Description,
		StartsAt:    e.StartsAt.UTC(),
		EndsAt:      e.EndsAt.UTC(),
		ImageURL:    e.ImageURL,
		Price:       e.Price,
	}
}
