package dondetu

import (
	"encoding/json"
	"net/http"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
)

// maxBodyBytes caps dashboard request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// Place handlers

func (a *App) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	var place models.Place
	if !decodeBody(w, r, &place) {
		return
	}
	place.ID = models.PlaceID{}
	if err := place.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.CreatePlace(r.Context(), &place); err != nil {
		respondStoreError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("place_id", place.ID.String()).Msg("Place created")
	respondJSON(w, http.StatusCreated, place)
}

func (a *App) handleUpdatePlace(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePlaceID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid place ID")
		return
	}

	var place models.Place
	if !decodeBody(w, r, &place) {
		return
	}
	place.ID = id
	if err := place.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.UpdatePlace(r.Context(), &place); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, place)
}

func (a *App) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePlaceID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid place ID")
		return
	}

	if err := a.store.DeletePlace(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("place_id", id.String()).Msg("Place deleted")
	respondJSON(w, http.StatusNoContent, nil)
}

// Social network handlers

func (a *App) handleListSocialNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := a.store.ListSocialNetworks(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if networks == nil {
		networks = []*models.SocialNetwork{}
	}
	respondJSON(w, http.StatusOK, networks)
}

func (a *App) handleCreateSocialNetwork(w http.ResponseWriter, r *http.Request) {
	var sn models.SocialNetwork
	if !decodeBody(w, r, &sn) {
		return
	}
	sn.ID = models.SocialNetworkID{}
	if err := sn.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.CreateSocialNetwork(r.Context(), &sn); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sn)
}

func (a *App) handleUpdateSocialNetwork(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseSocialNetworkID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid social network ID")
		return
	}

	var sn models.SocialNetwork
	if !decodeBody(w, r, &sn) {
		return
	}
	sn.ID = id
	if err := sn.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.UpdateSocialNetwork(r.Context(), &sn); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sn)
}

func (a *App) handleDeleteSocialNetwork(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseSocialNetworkID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid social network ID")
		return
	}

	if err := a.store.DeleteSocialNetwork(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Event handlers

// checkEventPlace rejects events pointing at a place that does not exist and
// stores times in UTC.
func (a *App) checkEventPlace(w http.ResponseWriter, r *http.Request, event *models.Event) bool {
	if err := event.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	place, err := a.store.GetPlace(r.Context(), event.PlaceID)
	if err != nil {
		respondStoreError(w, r, err)
		return false
	}
	if place == nil {
		respondError(w, http.StatusBadRequest, "Unknown place_id")
		return false
	}
	event.StartsAt = event.StartsAt.UTC()
	event.EndsAt = event.EndsAt.UTC()
	return true
}

func (a *App) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if !decodeBody(w, r, &event) {
		return
	}
	event.ID = models.EventID{}
	if !a.checkEventPlace(w, r, &event) {
		return
	}

	if err := a.store.CreateEvent(r.Context(), &event); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

func (a *App) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseEventID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	var event models.Event
	if !decodeBody(w, r, &event) {
		return
	}
	event.ID = id
	if !a.checkEventPlace(w, r, &event) {
		return
	}

	if err := a.store.UpdateEvent(r.Context(), &event); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (a *App) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseEventID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	if err := a.store.DeleteEvent(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Read-only toggle

// ReadOnlyState is the body of GET and POST /api/admin/read-only.
type ReadOnlyState struct {
	ReadOnly bool `json:"read_only"`
}

func (a *App) handleGetReadOnly(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ReadOnlyState{ReadOnly: a.IsReadOnly()})
}

func (a *App) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	var state ReadOnlyState
	if !decodeBody(w, r, &state) {
		return
	}
	a.SetReadOnly(state.ReadOnly)
	respondJSON(w, http.StatusOK, ReadOnlyState{ReadOnly: a.IsReadOnly()})
}
