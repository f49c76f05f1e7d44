package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
)

type slotsResponse struct {
	Date     string              `json:"date"`
	Timezone string              `json:"timezone"`
	Slots    []availability.Slot `json:"slots"`
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()
	query := engine.AvailabilityQuery{
		HostID:         q.Get("host_id"),
		EventTypeID:    q.Get("event_type_id"),
		Date:           q.Get("date"),
		BookerTimezone: q.Get("timezone"),
	}
	res, err := h.engine.QueryAvailability(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		Date:     res.Date.String(),
		Timezone: strings.TrimSpace(query.BookerTimezone),
		Slots:    res.Slots,
	})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}
	var req engine.CreateBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	scope := strings.TrimSpace(req.HostID)
	if key != "" && h.idempotency != nil {
		if resp, ok, err := h.idempotency.Replay(r.Context(), scope, key); err != nil {
			h.logger.Warn("idempotency lookup failed", "err", err)
		} else if ok {
			w.Header().Set("Idempotent-Replayed", "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.Status)
			_, _ = w.Write(resp.Body)
			return
		}
	}

	rec := &recorder{ResponseWriter: w}
	b, err := h.engine.CreateBooking(r.Context(), req)
	if err != nil {
		h.writeError(rec, r, err)
	} else {
		httpx.WriteJSON(rec, http.StatusCreated, map[string]any{"booking": toBooking(b)})
	}

	// Dependency failures are not remembered so the client can retry with the same key.
	if key != "" && h.idempotency != nil && rec.status < http.StatusInternalServerError {
		resp := cache.Response{Status: rec.status, Body: rec.body.Bytes()}
		if err := h.idempotency.Remember(context.WithoutCancel(r.Context()), scope, key, resp); err != nil {
			h.logger.Warn("idempotency store failed", "err", err)
		}
	}
}

func (h *Handler) PublicEventTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}
	types, err := h.engine.ListEventTypes(r.Context(), r.URL.Query().Get("host_id"), true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"event_types": toEventTypes(types)})
}
