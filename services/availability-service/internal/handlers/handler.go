package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotengine/libs/auth"
	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
)

const idempotencyHeader = "Idempotency-Key"

type Handler struct {
	engine      *engine.Engine
	idempotency cache.Idempotency
	logger      *slog.Logger
}

// New wires the HTTP surface. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func New(eng *engine.Engine, idempotency cache.Idempotency, logger *slog.Logger) *Handler {
	return &Handler{engine: eng, idempotency: idempotency, logger: logger}
}

// Routes groups the middleware applied to each route family.
type Routes struct {
	Public []httpx.Middleware
	Host   []httpx.Middleware
}

func (h *Handler) Register(mux *http.ServeMux, routes Routes) {
	public := func(fn http.HandlerFunc) http.Handler { return httpx.Chain(fn, routes.Public...) }
	host := func(fn http.HandlerFunc) http.Handler { return httpx.Chain(fn, routes.Host...) }

	mux.Handle("/api/v1/public/slots", public(h.Slots))
	mux.Handle("/api/v1/public/bookings", public(h.CreateBooking))
	mux.Handle("/api/v1/public/event-types", public(h.PublicEventTypes))

	mux.Handle("/api/v1/host", host(h.HostProfile))
	mux.Handle("/api/v1/event-types", host(h.EventTypes))
	mux.Handle("/api/v1/availability/schedule", host(h.Schedule))
	mux.Handle("/api/v1/availability/rules", host(h.Rules))
	mux.Handle("/api/v1/availability/overrides", host(h.Overrides))
	mux.Handle("/api/v1/bookings", host(h.Bookings))
}

// hostID is the authenticated host. Host routes always run behind auth.Require.
func hostID(r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || strings.TrimSpace(claims.Sub) == "" {
		return "", false
	}
	return claims.Sub, true
}

// recorder captures a response so it can be stored for idempotent replay.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
