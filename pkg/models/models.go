package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dondetu/dondetu/pkg/ref"
)

// ErrValidation is wrapped by every Validate error.
var ErrValidation = errors.New("validation failed")

// Category classifies a place
type Category string

const (
	CategoryRestaurant Category = "restaurant"
	CategoryBar        Category = "bar"
	CategoryCafe       Category = "cafe"
	CategoryClub       Category = "club"
	CategoryEventVenue Category = "event_venue"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryRestaurant, CategoryBar, CategoryCafe, CategoryClub, CategoryEventVenue}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Platform is the social network a link points to
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
	PlatformX         Platform = "x"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformWebsite   Platform = "website"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformFacebook, PlatformTikTok, PlatformX, PlatformWhatsApp, PlatformWebsite:
		return true
	}
	return false
}

// JSONMap is a flexible key-value map stored as JSON in SQL backends and as a
// nested object in document backends. Places use it for opening hours keyed by weekday.
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil || b == nil {
		*j = nil
		return err
	}
	return json.Unmarshal(b, j)
}

func (JSONMap) GormDataType() string { return "json" }

// StringList is a list of strings stored as a JSON array in SQL backends.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil || b == nil {
		*l = nil
		return err
	}
	return json.Unmarshal(b, (*[]string)(l))
}

func (StringList) GormDataType() string { return "json" }

// RawRefs holds a place's social network references exactly as the backend
// returned them: plain IDs, id/path objects, Firestore document handles or
// SurrealDB record IDs. Resolve them with the ref package before fetching.
type RawRefs []any

// RawRefsFromIDs builds references in the plain-ID shape.
func RawRefsFromIDs(ids ...SocialNetworkID) RawRefs {
	refs := make(RawRefs, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, id.String())
	}
	return refs
}

// MarshalJSON writes every element in a backend-neutral shape: strings stay
// strings and handles become {"id": ...} or {"path": ...} objects.
func (r RawRefs) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = neutralRef(v)
	}
	return json.Marshal(out)
}

func neutralRef(v any) any {
	switch p := ref.Parse(v).(type) {
	case ref.StringRef:
		return string(p)
	case ref.IDRef:
		return map[string]string{"id": p.ID}
	case ref.PathRef:
		return map[string]string{"path": p.Path}
	case ref.SingletonRef:
		return []any{neutralRef(p.Elem)}
	case ref.EmptyRef:
		return nil
	default:
		if _, err := json.Marshal(v); err != nil {
			return nil
		}
		return v
	}
}

func (r RawRefs) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *RawRefs) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil || b == nil {
		*r = nil
		return err
	}
	return json.Unmarshal(b, (*[]any)(r))
}

func (RawRefs) GormDataType() string { return "json" }

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan type %T", value)
	}
}

// Place is a listed establishment: a restaurant, bar, café, club or event venue.
type Place struct {
	ID           PlaceID       `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"not null" json:"name"`
	Category     Category      `gorm:"not null;index" json:"category"`
	Description  string        `json:"description,omitempty"`
	Address      string        `json:"address,omitempty"`
	Location     GeometryPoint `json:"location"`
	PriceLevel   int           `json:"price_level,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Website      string        `json:"website,omitempty"`
	ImageURLs    StringList    `json:"image_urls,omitempty"`
	OpeningHours JSONMap       `json:"opening_hours,omitempty"`
	Tags         StringList    `json:"tags,omitempty"`
	Featured     bool          `gorm:"index" json:"featured"`
	// SocialNetworks is the denormalized link array. Its element shapes vary by
	// backend and by the age of the document.
	SocialNetworks RawRefs   `json:"social_networks,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the fields the dashboard requires before a place is saved.
func (p *Place) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !p.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", p.Category))
	}
	if err := p.Location.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if p.PriceLevel < 0 || p.PriceLevel > 4 {
		problems = append(problems, "price_level must be between 0 and 4")
	}
	if p.Website != "" {
		if err := validateURL(p.Website); err != nil {
			problems = append(problems, "website: "+err.Error())
		}
	}
	return validationError(problems)
}

// SocialNetwork is a link from a place to one of its social media profiles.
type SocialNetwork struct {
	ID        SocialNetworkID `gorm:"primaryKey" json:"id"`
	Platform  Platform        `gorm:"not null" json:"platform"`
	Handle    string          `json:"handle,omitempty"`
	URL       string          `gorm:"not null" json:"url"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *SocialNetwork) Validate() error {
	var problems []string
	if !s.Platform.Valid() {
		problems = append(problems, fmt.Sprintf("unknown platform %q", s.Platform))
	}
	if err := validateURL(s.URL); err != nil {
		problems = append(problems, "url: "+err.Error())
	}
	return validationError(problems)
}

// Event is something happening at a place.
type Event struct {
	ID          EventID   `gorm:"primaryKey" json:"id"`
	PlaceID     PlaceID   `gorm:"not null;index" json:"place_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `gorm:"index" json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       string    `json:"price,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e *Event) Validate() error {
	var problems []string
	if strings.TrimSpace(e.Title) == "" {
		problems = append(problems, "title is required")
	}
	if e.PlaceID.IsZero() {
		problems = append(problems, "place_id is required")
	}
	if e.StartsAt.IsZero() {
		problems = append(problems, "starts_at is required")
	}
	if !e.EndsAt.IsZero() && e.EndsAt.Before(e.StartsAt) {
		problems = append(problems, "ends_at is before starts_at")
	}
	return validationError(problems)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
}
