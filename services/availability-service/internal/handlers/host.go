package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
)

func (h *Handler) authenticatedHost(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := hostID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing host identity")
	}
	return id, ok
}

// HostProfile handles GET and PUT /api/v1/host.
func (h *Handler) HostProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authenticatedHost(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		sched, err := h.engine.Schedule(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"id":       sched.Host.ID,
			"name":     sched.Host.Name,
			"timezone": sched.Host.Timezone,
		})
	case http.MethodPut:
		var req engine.HostProfile
		if err := httpx.DecodeJSON(r, &req); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		host, err := h.engine.UpsertHost(r.Context(), id, req)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"id":       host.ID,
			"name":     host.Name,
			"timezone": host.Timezone,
		})
	default:
		httpx.MethodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

// EventTypes handles GET and POST /api/v1/event-types.
func (h *Handler) EventTypes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authenticatedHost(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		types, err := h.engine.ListEventTypes(r.Context(), id, false)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"event_types": toEventTypes(types)})
	case http.MethodPost:
		var req engine.EventTypeInput
		if err := httpx.DecodeJSON(r, &req); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		et, err := h.engine.CreateEventType(r.Context(), id, req)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]any{"event_type": toEventType(et)})
	default:
		httpx.MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}
	id, ok := h.authenticatedHost(w, r)
	if !ok {
		return
	}
	sched, err := h.engine.Schedule(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"timezone":  sched.Host.Timezone,
		"weekly":    toRules(sched.Weekly),
		"overrides": toOverrides(sched.Overrides),
	})
}

func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		httpx.MethodNotAllowed(w, http.MethodPut)
		return
	}
	id, ok := h.authenticatedHost(w, r)
	if !ok {
		return
	}
	var req struct {
		Rules []engine.RuleInput `json:"rules"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rules, err := h.engine.ReplaceWeeklyRules(r.Context(), id, req.Rules)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"weekly": toRules(rules)})
}

func (h *Handler) Overrides(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}
	id, ok := h.authenticatedHost(w, r)
	if !ok {
		return
	}
	var req engine.OverrideInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	o, err := h.engine.AddDateOverride(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"override": toOverride(o)})
}

func (h *Handler) Bookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}
	id, ok := h.authenticatedHost(w, r)
	if !ok {
		return
	}
	bookings, err := h.engine.ListBookings(r.Context(), id, r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBooking(b))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bookings": out})
}
