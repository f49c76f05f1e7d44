package handlers

import (
	"errors"
	"net/http"

	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrSlotConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrInvalidTimezone),
		errors.Is(err, apperr.ErrNoticeViolation):
		return http.StatusBadRequest
	case apperr.IsRetryable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorBody renders err without leaking collaborator detail on 5xx.
func errorBody(err error, status int) httpx.ErrorBody {
	body := httpx.ErrorBody{Error: apperr.Label(err), Message: err.Error()}
	if status >= http.StatusInternalServerError {
		body.Message = "internal error"
		if status == http.StatusServiceUnavailable {
			body.Message = "storage temporarily unavailable, retry later"
		}
		return body
	}
	if d, ok := apperr.NoticeOf(err); ok {
		body.Extra = map[string]any{"min_notice_minutes": int(d.Minutes())}
	} else if f := apperr.FieldOf(err); f != "" && errors.Is(err, apperr.ErrValidation) {
		body.Extra = map[string]any{"field": f}
	}
	return body
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody(err, status)
	attrs := []any{
		"kind", body.Error,
		"path", r.URL.Path,
		"request_id", httpx.RequestIDFromContext(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", append(attrs, "err", err)...)
	} else {
		h.logger.Debug("request rejected", append(attrs, "err", err)...)
	}
	httpx.WriteJSON(w, status, body)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, "validation", msg)
}
