package dondetu

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dondetu/dondetu/pkg/directory"
	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
)

const (
	// DefaultNearbyRadiusKm is used when a nearby search has no radius.
	DefaultNearbyRadiusKm = 2.0
	maxNearbyRadiusKm     = 50.0
	maxLimit              = 200
)

// respondJSON sends a JSON response with the specified HTTP status code and payload.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

// respondError sends {"error": message} with the given status.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps store and validation errors to status codes. Anything
// unexpected is logged and reported as a 500 without details.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrReadOnly):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrValidation), errors.Is(err, directory.ErrInvalidQuery):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "healthy",
		"backend":   a.config.Backend,
		"read_only": a.IsReadOnly(),
		"time":      time.Now().Unix(),
	}
	respondJSON(w, http.StatusOK, response)
}

// placeFilter reads ?category, ?featured and ?limit.
func placeFilter(r *http.Request) (store.PlaceFilter, error) {
	q := r.URL.Query()
	var filter store.PlaceFilter

	if c := q.Get("category"); c != "" {
		filter.Category = models.Category(c)
		if !filter.Category.Valid() {
			return filter, fmt.Errorf("unknown category %q", c)
		}
	}
	if f := q.Get("featured"); f != "" {
		featured, err := strconv.ParseBool(f)
		if err != nil {
			return filter, fmt.Errorf("invalid featured %q", f)
		}
		filter.FeaturedOnly = featured
	}
	limit, err := parseLimit(r)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}

func parseLimit(r *http.Request) (int, error) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(l)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", l)
	}
	return min(limit, maxLimit), nil
}

func parseFloat(r *http.Request, name string) (float64, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, true, nil
}

func (a *App) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	filter, err := placeFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	places, err := a.store.ListPlaces(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if places == nil {
		places = []*models.Place{}
	}
	respondJSON(w, http.StatusOK, places)
}

// handleNearby serves GET /api/places/nearby?lat=19.43&lng=-99.13&radius=2
// with hits sorted by distance.
func (a *App) handleNearby(w http.ResponseWriter, r *http.Request) {
	lat, hasLat, err := parseFloat(r, "lat")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	lng, hasLng, err := parseFloat(r, "lng")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !hasLat || !hasLng {
		respondError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius, hasRadius, err := parseFloat(r, "radius")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !hasRadius {
		radius = DefaultNearbyRadiusKm
	}
	if radius > maxNearbyRadiusKm {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("radius must be at most %v km", maxNearbyRadiusKm))
		return
	}

	filter, err := placeFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hits, err := a.loader.Nearby(r.Context(), models.NewGeometryPoint(lat, lng), radius, filter)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hits)
}

// handleGetPlace returns the place detail: the place, its social networks in
// the order the place lists them and its events. Links that cannot be shown
// are counted in hidden_links.
func (a *App) handleGetPlace(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePlaceID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid place ID")
		return
	}

	detail, err := a.loader.PlaceDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Place not found")
			return
		}
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (a *App) handleListPlaceEvents(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePlaceID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid place ID")
		return
	}

	events, err := a.store.ListEventsByPlace(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

func (a *App) handleMarkers(w http.ResponseWriter, r *http.Request) {
	filter, err := placeFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	fc, err := a.loader.Markers(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	respondJSON(w, http.StatusOK, fc)
}

func (a *App) handleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := a.loader.UpcomingEvents(r.Context(), limit)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

func (a *App) handleGetSocialNetwork(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseSocialNetworkID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid social network ID")
		return
	}

	sn, err := a.store.GetSocialNetwork(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if sn == nil {
		respondError(w, http.StatusNotFound, "Social network not found")
		return
	}
	respondJSON(w, http.StatusOK, sn)
}
