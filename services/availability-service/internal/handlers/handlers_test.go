package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotengine/libs/auth"
	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/storage"
)

const (
	testSecret = "test-secret"
	testHostID = "6f1c2d3e-4a5b-4c6d-8e7f-0a1b2c3d4e5f"
)

type server struct {
	t       *testing.T
	handler http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.NewMemory(time.Minute, time.Hour)
	now := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	eng := engine.New(storage.NewMemory(), engine.Options{
		Now:                  func() time.Time { return now },
		Cache:                c,
		EnforceAvailableSlot: true,
		Logger:               logger,
	})
	mux := http.NewServeMux()
	New(eng, c, logger).Register(mux, Routes{
		Host: []httpx.Middleware{auth.Require(testSecret, auth.RoleHost)},
	})
	return &server{t: t, handler: httpx.Chain(mux, httpx.WithRequestID)}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := auth.SignHS256(auth.Claims{
		Sub:  sub,
		Role: role,
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (s *server) do(method, path, tok, body string, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

// setupHost creates the test host (UTC, Monday 09:00-17:00) and returns the event type id.
func setupHost(t *testing.T, s *server) string {
	t.Helper()
	tok := token(t, testHostID, auth.RoleHost)
	if rr := s.do(http.MethodPut, "/api/v1/host", tok, `{"name":"Host","timezone":"UTC"}`); rr.Code != http.StatusOK {
		t.Fatalf("put host: %d %s", rr.Code, rr.Body)
	}
	rr := s.do(http.MethodPost, "/api/v1/event-types", tok, `{"title":"Intro","duration_minutes":30}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create event type: %d %s", rr.Code, rr.Body)
	}
	var created struct {
		EventType struct {
			ID string `json:"id"`
		} `json:"event_type"`
	}
	decode(t, rr, &created)

	rr = s.do(http.MethodPut, "/api/v1/availability/rules", tok,
		`{"rules":[{"day_of_week":1,"start_time":"09:00","end_time":"17:00"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put rules: %d %s", rr.Code, rr.Body)
	}
	return created.EventType.ID
}

func bookingBody(eventTypeID, start string) string {
	return `{"host_id":"` + testHostID + `","event_type_id":"` + eventTypeID + `","guest_name":"Ada","guest_email":"ada@example.com","start_instant":"` + start + `","booker_timezone":"UTC"}`
}

func TestPublicSlots(t *testing.T) {
	s := newServer(t)
	etID := setupHost(t, s)

	rr := s.do(http.MethodGet, "/api/v1/public/slots?host_id="+testHostID+"&event_type_id="+etID+"&date=2026-01-05&timezone=UTC", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("slots: %d %s", rr.Code, rr.Body)
	}
	var res struct {
		Date  string `json:"date"`
		Slots []struct {
			Start        string    `json:"start"`
			End          string    `json:"end"`
			StartInstant time.Time `json:"start_instant"`
		} `json:"slots"`
	}
	decode(t, rr, &res)
	if res.Date != "2026-01-05" || len(res.Slots) != 16 {
		t.Fatalf("expected 16 slots on 2026-01-05, got %d on %s", len(res.Slots), res.Date)
	}
	if res.Slots[0].Start != "09:00" || !res.Slots[0].StartInstant.Equal(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first slot %+v", res.Slots[0])
	}

	rr = s.do(http.MethodGet, "/api/v1/public/slots?host_id="+testHostID+"&event_type_id="+etID+"&date=2026-01-05&timezone=Moon/Base", "", "")
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), `"invalid_timezone"`) {
		t.Fatalf("expected invalid_timezone 400, got %d %s", rr.Code, rr.Body)
	}
	rr = s.do(http.MethodGet, "/api/v1/public/event-types?host_id="+testHostID, "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), etID) {
		t.Fatalf("public event types: %d %s", rr.Code, rr.Body)
	}
}

func TestCreateBookingResponses(t *testing.T) {
	s := newServer(t)
	etID := setupHost(t, s)

	rr := s.do(http.MethodPost, "/api/v1/public/bookings", "", bookingBody(etID, "2026-01-05T10:00:00Z"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body)
	}
	var created struct {
		Booking struct {
			ID         string    `json:"id"`
			Status     string    `json:"status"`
			EndInstant time.Time `json:"end_instant"`
		} `json:"booking"`
	}
	decode(t, rr, &created)
	if created.Booking.ID == "" || created.Booking.Status != "confirmed" ||
		!created.Booking.EndInstant.Equal(time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected booking %+v", created.Booking)
	}

	rr = s.do(http.MethodPost, "/api/v1/public/bookings", "", bookingBody(etID, "2026-01-05T10:00:00Z"))
	var body httpx.ErrorBody
	decode(t, rr, &body)
	if rr.Code != http.StatusConflict || body.Error != "slot_conflict" {
		t.Fatalf("expected 409 slot_conflict, got %d %+v", rr.Code, body)
	}

	rr = s.do(http.MethodPost, "/api/v1/public/bookings", "", strings.Replace(bookingBody(etID, "2026-01-05T11:00:00Z"), "ada@example.com", "ada", 1))
	body = httpx.ErrorBody{}
	decode(t, rr, &body)
	if rr.Code != http.StatusBadRequest || body.Extra["field"] != "guest_email" {
		t.Fatalf("expected 400 on guest_email, got %d %+v", rr.Code, body)
	}

	rr = s.do(http.MethodPost, "/api/v1/public/bookings", "", bookingBody("9e8d7c6b-5a49-4382-9716-05f4e3d2c1b0", "2026-01-05T11:00:00Z"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", rr.Code, rr.Body)
	}
	rr = s.do(http.MethodPost, "/api/v1/public/bookings", "", bookingBody("missing", "2026-01-05T11:00:00Z"))
	body = httpx.ErrorBody{}
	decode(t, rr, &body)
	if rr.Code != http.StatusBadRequest || body.Extra["field"] != "event_type_id" {
		t.Fatalf("expected 400 on event_type_id, got %d %+v", rr.Code, body)
	}
	rr = s.do(http.MethodPost, "/api/v1/public/bookings", "", `{"host_id":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rr.Code)
	}
	rr = s.do(http.MethodGet, "/api/v1/public/bookings", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	tok := token(t, testHostID, auth.RoleHost)
	rr = s.do(http.MethodGet, "/api/v1/bookings?date=2026-01-05", tok, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), created.Booking.ID) {
		t.Fatalf("list bookings: %d %s", rr.Code, rr.Body)
	}
}

func TestIdempotentBookingReplay(t *testing.T) {
	s := newServer(t)
	etID := setupHost(t, s)
	body := bookingBody(etID, "2026-01-05T14:00:00Z")

	first := s.do(http.MethodPost, "/api/v1/public/bookings", "", body, "Idempotency-Key", "abc")
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", first.Code, first.Body)
	}
	second := s.do(http.MethodPost, "/api/v1/public/bookings", "", body, "Idempotency-Key", "abc")
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d %s", second.Code, second.Body)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs:\n%s\n%s", first.Body, second.Body)
	}
	third := s.do(http.MethodPost, "/api/v1/public/bookings", "", body, "Idempotency-Key", "other")
	if third.Code != http.StatusConflict {
		t.Fatalf("expected new key to hit the conflict, got %d", third.Code)
	}
}

func TestHostRoutesRequireHostToken(t *testing.T) {
	s := newServer(t)
	if rr := s.do(http.MethodGet, "/api/v1/availability/schedule", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr := s.do(http.MethodGet, "/api/v1/availability/schedule", token(t, testHostID, "guest"), ""); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong role, got %d", rr.Code)
	}
	if rr := s.do(http.MethodGet, "/api/v1/availability/schedule", token(t, testHostID, auth.RoleHost), ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown host, got %d", rr.Code)
	}
}

func TestScheduleAndOverrides(t *testing.T) {
	s := newServer(t)
	etID := setupHost(t, s)
	tok := token(t, testHostID, auth.RoleHost)

	rr := s.do(http.MethodPost, "/api/v1/availability/overrides", tok, `{"date":"2026-01-05","is_available":false}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("override: %d %s", rr.Code, rr.Body)
	}
	rr = s.do(http.MethodGet, "/api/v1/availability/schedule", tok, "")
	var sched struct {
		Weekly    []map[string]any `json:"weekly"`
		Overrides []map[string]any `json:"overrides"`
	}
	decode(t, rr, &sched)
	if len(sched.Weekly) != 1 || len(sched.Overrides) != 1 {
		t.Fatalf("unexpected schedule %s", rr.Body)
	}

	rr = s.do(http.MethodGet, "/api/v1/public/slots?host_id="+testHostID+"&event_type_id="+etID+"&date=2026-01-05&timezone=UTC", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"slots":[]`) {
		t.Fatalf("expected empty slots after override, got %d %s", rr.Code, rr.Body)
	}

	rr = s.do(http.MethodPut, "/api/v1/availability/rules", tok, `{"rules":[{"day_of_week":1,"start_time":"9:00","end_time":"17:00"}]}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "invalid_time_format") {
		t.Fatalf("expected invalid_time_format, got %d %s", rr.Code, rr.Body)
	}
}

func TestErrorMapping(t *testing.T) {
	retryable := apperr.Storage("load", context.DeadlineExceeded)
	if got := statusFor(retryable); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for timeout, got %d", got)
	}
	failed := apperr.Storage("load", errors.New("connection reset by 10.0.0.7"))
	if got := statusFor(failed); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
	if body := errorBody(failed, http.StatusInternalServerError); strings.Contains(body.Message, "10.0.0.7") {
		t.Fatalf("storage detail leaked: %q", body.Message)
	}
	notice := apperr.NoticeViolation(90 * time.Minute)
	body := errorBody(notice, statusFor(notice))
	if statusFor(notice) != http.StatusBadRequest || body.Extra["min_notice_minutes"] != 90 {
		t.Fatalf("unexpected notice body %+v", body)
	}
}

func TestMalformedIDsAreBadRequests(t *testing.T) {
	s := newServer(t)
	etID := setupHost(t, s)

	rr := s.do(http.MethodGet, "/api/v1/public/slots?host_id=acme&event_type_id="+etID+"&date=2026-01-05&timezone=UTC", "", "")
	var body httpx.ErrorBody
	decode(t, rr, &body)
	if rr.Code != http.StatusBadRequest || body.Extra["field"] != "host_id" {
		t.Fatalf("expected 400 on host_id, got %d %+v", rr.Code, body)
	}

	rr = s.do(http.MethodGet, "/api/v1/public/event-types?host_id=acme", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed host, got %d %s", rr.Code, rr.Body)
	}

	rr = s.do(http.MethodGet, "/api/v1/availability/schedule", token(t, "acme", auth.RoleHost), "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for token naming a malformed host, got %d %s", rr.Code, rr.Body)
	}
}
