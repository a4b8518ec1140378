package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Table names shared by the SQL and SurrealDB backends.
const (
	TablePlaces         = "places"
	TableSocialNetworks = "social_networks"
	TableEvents         = "events"
)

// tagRecordID is the CBOR tag SurrealDB uses for record identifiers.
const tagRecordID = 8

// PlaceID is a typed ID for places
type PlaceID struct {
	id string
}

func NewPlaceID() PlaceID {
	return PlaceID{id: uuid.NewString()}
}

func ParsePlaceID(s string) (PlaceID, error) {
	id, err := parseDocumentID(s)
	if err != nil {
		return PlaceID{}, fmt.Errorf("invalid place ID: %w", err)
	}
	return PlaceID{id: id}, nil
}

func (p PlaceID) String() string { return p.id }
func (p PlaceID) IsZero() bool   { return p.id == "" }

func (p PlaceID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.NewRecordID(TablePlaces, p.id)
}

func (p PlaceID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.id)
}

func (p *PlaceID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &p.id)
}

func (p PlaceID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TablePlaces, p.id)
}

func (p *PlaceID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TablePlaces, &p.id)
}

func (p PlaceID) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.id, nil
}

func (p *PlaceID) Scan(value any) error {
	return scanID(value, &p.id)
}

func (PlaceID) GormDataType() string { return "varchar(64)" }

// SocialNetworkID is a typed ID for social network links
type SocialNetworkID struct {
	id string
}

func NewSocialNetworkID() SocialNetworkID {
	return SocialNetworkID{id: uuid.NewString()}
}

func ParseSocialNetworkID(s string) (SocialNetworkID, error) {
	id, err := parseDocumentID(s)
	if err != nil {
		return SocialNetworkID{}, fmt.Errorf("invalid social network ID: %w", err)
	}
	return SocialNetworkID{id: id}, nil
}

func (s SocialNetworkID) String() string { return s.id }
func (s SocialNetworkID) IsZero() bool   { return s.id == "" }

// RefID lets the reference resolver read the identifier directly.
func (s SocialNetworkID) RefID() string { return s.id }

func (s SocialNetworkID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.NewRecordID(TableSocialNetworks, s.id)
}

func (s SocialNetworkID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.id)
}

func (s *SocialNetworkID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &s.id)
}

func (s SocialNetworkID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableSocialNetworks, s.id)
}

func (s *SocialNetworkID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableSocialNetworks, &s.id)
}

func (s SocialNetworkID) Value() (driver.Value, error) {
	if s.IsZero() {
		return nil, nil
	}
	return s.id, nil
}

func (s *SocialNetworkID) Scan(value any) error {
	return scanID(value, &s.id)
}

func (SocialNetworkID) GormDataType() string { return "varchar(64)" }

// EventID is a typed ID for events
type EventID struct {
	id string
}

func NewEventID() EventID {
	return EventID{id: uuid.NewString()}
}

func ParseEventID(s string) (EventID, error) {
	id, err := parseDocumentID(s)
	if err != nil {
		return EventID{}, fmt.Errorf("invalid event ID: %w", err)
	}
	return EventID{id: id}, nil
}

func (e EventID) String() string { return e.id }
func (e EventID) IsZero() bool   { return e.id == "" }

func (e EventID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.NewRecordID(TableEvents, e.id)
}

func (e EventID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.id)
}

func (e *EventID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &e.id)
}

func (e EventID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableEvents, e.id)
}

func (e *EventID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableEvents, &e.id)
}

func (e EventID) Value() (driver.Value, error) {
	if e.IsZero() {
		return nil, nil
	}
	return e.id, nil
}

func (e *EventID) Scan(value any) error {
	return scanID(value, &e.id)
}

func (EventID) GormDataType() string { return "varchar(64)" }

// parseDocumentID accepts any identifier a document store could have produced.
// Firestore forbids "/" in document IDs, and the same rule keeps paths unambiguous elsewhere.
func parseDocumentID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty identifier")
	}
	if strings.Contains(s, "/") {
		return "", fmt.Errorf("identifier %q contains '/'", s)
	}
	return s, nil
}

func unmarshalJSONID(data []byte, target *string) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*target = ""
		return nil
	}
	id, err := parseDocumentID(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

func scanID(value any, target *string) error {
	switch v := value.(type) {
	case nil:
		*target = ""
	case string:
		*target = v
	case []byte:
		*target = string(v)
	default:
		return fmt.Errorf("cannot scan type %T into document ID", value)
	}
	return nil
}

func marshalCBORID(table, id string) ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  tagRecordID,
		Content: []any{table, id},
	})
}

// unmarshalCBORID is a helper for unmarshaling SurrealDB RecordID from CBOR.
// The RecordID is encoded as [table_name, id] within tag 8.
func unmarshalCBORID(data []byte, expectedTable string, target *string) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}

	if tag.Number != tagRecordID {
		return fmt.Errorf("expected RecordID tag (%d), got %d", tagRecordID, tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}
	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	switch id := arr[1].(type) {
	case string:
		*target = id
	case uint64:
		*target = fmt.Sprintf("%d", id)
	case int64:
		*target = fmt.Sprintf("%d", id)
	default:
		return fmt.Errorf("invalid RecordID format: unsupported ID type %T", arr[1])
	}
	return nil
}
