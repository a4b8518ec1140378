package firestore

import (
	"time"

	"github.com/dondetu/dondetu/pkg/models"
)

// Collection names as they exist in the hosted project.
const (
	CollectionPlaces         = "places"
	CollectionSocialNetworks = "socialNetworks"
	CollectionEvents         = "events"
)

type geoPoint struct {
	Lat float64 `firestore:"lat"`
	Lng float64 `firestore:"lng"`
}

// placeDoc is the Firestore document shape of a place.
type placeDoc struct {
	Name           string         `firestore:"name"`
	Category       string         `firestore:"category"`
	Description    string         `firestore:"description,omitempty"`
	Address        string         `firestore:"address,omitempty"`
	Location       geoPoint       `firestore:"location"`
	PriceLevel     int            `firestore:"priceLevel"`
	Phone          string         `firestore:"phone,omitempty"`
	Website        string         `firestore:"website,omitempty"`
	ImageURLs      []string       `firestore:"imageUrls,omitempty"`
	OpeningHours   map[string]any `firestore:"openingHours,omitempty"`
	Tags           []string       `firestore:"tags,omitempty"`
	Featured       bool           `firestore:"featured"`
	SocialNetworks []any          `firestore:"socialNetworks"`
	CreatedAt      time.Time      `firestore:"createdAt"`
	UpdatedAt      time.Time      `firestore:"updatedAt"`
}

type socialNetworkDoc struct {
	Platform  string    `firestore:"platform"`
	Handle    string    `firestore:"handle,omitempty"`
	URL       string    `firestore:"url"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type eventDoc struct {
	PlaceID     string    `firestore:"placeId"`
	Title       string    `firestore:"title"`
	Description string    `firestore:"description,omitempty"`
	StartsAt    time.Time `firestore:"startsAt"`
	EndsAt      time.Time `firestore:"endsAt"`
	ImageURL    string    `firestore:"imageUrl,omitempty"`
	Price       string    `firestore:"price,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func toPlaceDoc(p *models.Place, links []any) placeDoc {
	return placeDoc{
		Name:           p.Name,
		Category:       string(p.Category),
		Description:    p.Description,
		Address:        p.Address,
		Location:       geoPoint{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
		PriceLevel:     p.PriceLevel,
		Phone:          p.Phone,
		Website:        p.Website,
		ImageURLs:      p.ImageURLs,
		OpeningHours:   p.OpeningHours,
		Tags:           p.Tags,
		Featured:       p.Featured,
		SocialNetworks: links,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (d placeDoc) model(id string) (*models.Place, error) {
	placeID, err := models.ParsePlaceID(id)
	if err != nil {
		return nil, err
	}
	return &models.Place{
		ID:             placeID,
		Name:           d.Name,
		Category:       models.Category(d.Category),
		Description:    d.Description,
		Address:        d.Address,
		Location:       models.NewGeometryPoint(d.Location.Lat, d.Location.Lng),
		PriceLevel:     d.PriceLevel,
		Phone:          d.Phone,
		Website:        d.Website,
		ImageURLs:      d.ImageURLs,
		OpeningHours:   d.OpeningHours,
		Tags:           d.Tags,
		Featured:       d.Featured,
		SocialNetworks: models.RawRefs(d.SocialNetworks),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}, nil
}

func toSocialNetworkDoc(sn *models.SocialNetwork) socialNetworkDoc {
	return socialNetworkDoc{
		Platform:  string(sn.Platform),
		Handle:    sn.Handle,
		URL:       sn.URL,
		CreatedAt: sn.CreatedAt,
		UpdatedAt: sn.UpdatedAt,
	}
}

func (d socialNetworkDoc) model(id string) (*models.SocialNetwork, error) {
	snID, err := models.ParseSocialNetworkID(id)
	if err != nil {
		return nil, err
	}
	return &models.SocialNetwork{
		ID:        snID,
		Platform:  models.Platform(d.Platform),
		Handle:    d.Handle,
		URL:       d.URL,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func toEventDoc(e *models.Event) eventDoc {
	return eventDoc{
		PlaceID:     e.PlaceID.String(),
		Title:       e.Title,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		ImageURL:    e.ImageURL,
		Price:       e.Price,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (d eventDoc) model(id string) (*models.Event, error) {
	eventID, err := models.ParseEventID(id)
	if err != nil {
		return nil, err
	}
	placeID, err := models.ParsePlaceID(d.PlaceID)
	if err != nil {
		return nil, err
	}
	return &models.Event{
		ID:          eventID,
		PlaceID:     placeID,
		Title:       d.Title,
		Description: d.Description,
		StartsAt:    d.StartsAt.UTC(),
		EndsAt:      d.EndsAt.UTC(),
		ImageURL:    d.ImageURL,
		Price:       d.Price,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}
