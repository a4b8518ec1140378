// Package client is a Go client for the DóndeTú HTTP API.
//
// It is used by the dashboard's import tooling and by end-to-end tests. All
// operations use the same [github.com/dondetu/dondetu/pkg/models] and
// [github.com/dondetu/dondetu/pkg/directory] types as the server.
//
//	c := client.NewClient("http://localhost:8080")
//	detail, err := c.GetPlace(ctx, id)
//	if err != nil {
//		return err
//	}
//	for _, sn := range detail.SocialNetworks {
//		fmt.Println(sn.Platform, sn.URL)
//	}
//
// Dashboard operations need a token carrying the admin role:
//
//	c.SetAuthToken(token)
//	created, err := c.CreatePlace(ctx, &models.Place{...})
//
// Failed requests return an [*APIError] with the status code and the server's
// error message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dondetu/dondetu/pkg/directory"
	"github.com/dondetu/dondetu/pkg/geo"
	"github.com/dondetu/dondetu/pkg/models"
)

// APIError is returned for responses with a 4xx or 5xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client provides typed access to the DóndeTú API. It is safe for concurrent
// use once SetAuthToken is no longer called.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080", without a trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken sets the bearer token sent with every request.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// doRequest performs an HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into target, which may be nil.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var result T
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return result, err
	}
	err = decodeResponse(resp, &result)
	return result, err
}

// Health checks the health status of the server
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	return call[map[string]any](ctx, c, http.MethodGet, "/api/health", nil)
}

// PlacesQuery narrows place listings. Zero values apply no filter.
type PlacesQuery struct {
	Category models.Category
	Featured bool
	Limit    int
}

func (q PlacesQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	if q.Featured {
		v.Set("featured", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

// Places

// ListPlaces lists places, featured first.
func (c *Client) ListPlaces(ctx context.Context, q PlacesQuery) ([]*models.Place, error) {
	return call[[]*models.Place](ctx, c, http.MethodGet, withQuery("/api/places", q.values()), nil)
}

// GetPlace retrieves a place with its social networks and events.
func (c *Client) GetPlace(ctx context.Context, id models.PlaceID) (*directory.PlaceDetail, error) {
	return call[*directory.PlaceDetail](ctx, c, http.MethodGet, "/api/places/"+url.PathEscape(id.String()), nil)
}

// Nearby lists places within radiusKm of a point, closest first. A zero
// radius uses the server default.
func (c *Client) Nearby(ctx context.Context, center models.GeometryPoint, radiusKm float64, q PlacesQuery) ([]directory.NearbyPlace, error) {
	v := q.values()
	v.Set("lat", strconv.FormatFloat(center.Latitude, 'f', -1, 64))
	v.Set("lng", strconv.FormatFloat(center.Longitude, 'f', -1, 64))
	if radiusKm > 0 {
		v.Set("radius", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	}
	return call[[]directory.NearbyPlace](ctx, c, http.MethodGet, withQuery("/api/places/nearby", v), nil)
}

// Markers retrieves the map markers as GeoJSON.
func (c *Client) Markers(ctx context.Context, q PlacesQuery) (*geo.FeatureCollection, error) {
	return call[*geo.FeatureCollection](ctx, c, http.MethodGet, withQuery("/api/map/markers", q.values()), nil)
}

// Events

// ListPlaceEvents lists every event at a place by start time.
func (c *Client) ListPlaceEvents(ctx context.Context, id models.PlaceID) ([]*models.Event, error) {
	return call[[]*models.Event](ctx, c, http.MethodGet, "/api/places/"+url.PathEscape(id.String())+"/events", nil)
}

// UpcomingEvents lists events that have not started yet. A zero limit returns all.
func (c *Client) UpcomingEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return call[[]*models.Event](ctx, c, http.MethodGet, withQuery("/api/events", v), nil)
}

// GetSocialNetwork retrieves a social network link.
func (c *Client) GetSocialNetwork(ctx context.Context, id models.SocialNetworkID) (*models.SocialNetwork, error) {
	return call[*models.SocialNetwork](ctx, c, http.MethodGet, "/api/social-networks/"+url.PathEscape(id.String()), nil)
}

// Dashboard: places

// CreatePlace creates a place. The server assigns the ID.
func (c *Client) CreatePlace(ctx context.Context, place *models.Place) (*models.Place, error) {
	return call[*models.Place](ctx, c, http.MethodPost, "/api/admin/places", place)
}

// UpdatePlace replaces every field of an existing place.
func (c *Client) UpdatePlace(ctx context.Context, place *models.Place) (*models.Place, error) {
	return call[*models.Place](ctx, c, http.MethodPut, "/api/admin/places/"+url.PathEscape(place.ID.String()), place)
}

// DeletePlace deletes a place
func (c *Client) DeletePlace(ctx context.Context, id models.PlaceID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/api/admin/places/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Dashboard: social networks

func (c *Client) ListSocialNetworks(ctx context.Context) ([]*models.SocialNetwork, error) {
	return call[[]*models.SocialNetwork](ctx, c, http.MethodGet, "/api/admin/social-networks", nil)
}

func (c *Client) CreateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) (*models.SocialNetwork, error) {
	return call[*models.SocialNetwork](ctx, c, http.MethodPost, "/api/admin/social-networks", sn)
}

func (c *Client) UpdateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) (*models.SocialNetwork, error) {
	return call[*models.SocialNetwork](ctx, c, http.MethodPut, "/api/admin/social-networks/"+url.PathEscape(sn.ID.String()), sn)
}

func (c *Client) DeleteSocialNetwork(ctx context.Context, id models.SocialNetworkID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/api/admin/social-networks/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Dashboard: events

// CreateEvent creates an event at an existing place.
func (c *Client) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	return call[*models.Event](ctx, c, http.MethodPost, "/api/admin/events", event)
}

func (c *Client) UpdateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	return call[*models.Event](ctx, c, http.MethodPut, "/api/admin/events/"+url.PathEscape(event.ID.String()), event)
}

func (c *Client) DeleteEvent(ctx context.Context, id models.EventID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/api/admin/events/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Dashboard: read-only mode

type readOnlyState struct {
	ReadOnly bool `json:"read_only"`
}

// GetReadOnly reports whether the directory is frozen.
func (c *Client) GetReadOnly(ctx context.Context) (bool, error) {
	state, err := call[readOnlyState](ctx, c, http.MethodGet, "/api/admin/read-only", nil)
	return state.ReadOnly, err
}

// SetReadOnly freezes or unfreezes the directory.
func (c *Client) SetReadOnly(ctx context.Context, readOnly bool) error {
	_, err := call[readOnlyState](ctx, c, http.MethodPost, "/api/admin/read-only", readOnlyState{ReadOnly: readOnly})
	return err
}
