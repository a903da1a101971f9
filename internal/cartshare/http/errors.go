package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
	"github.com/cartshare/cartshare/pkg/slogx"
)

// writeServiceError maps a service failure onto the stable wire codes.
// Anything without a mapping is an internal error: logged with detail,
// returned without it.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrEmptyItemName),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrNoCheckedItems):
		httpx.WriteError(w, http.StatusBadRequest, "invalid-argument", err.Error())

	case errors.Is(err, service.ErrNotMember):
		httpx.WriteError(w, http.StatusForbidden, "permission-denied", err.Error())

	case errors.Is(err, service.ErrGroupNameTaken),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrAlreadyInvited),
		errors.Is(err, service.ErrUserExists):
		httpx.WriteError(w, http.StatusConflict, "already-exists", err.Error())

	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrInviteeNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not-found", err.Error())

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"the operation timed out, please retry")

	default:
		slogx.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal",
			"an internal error occurred")
	}
}

// decodeJSON reads a JSON request body into dst. Bodies are capped at 1 MiB;
// nothing this API accepts is larger than a few hundred bytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid-argument",
			"request body is not valid JSON")
		return false
	}
	return true
}
