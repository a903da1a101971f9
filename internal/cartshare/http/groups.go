package http

import (
	"net/http"
	"strings"

	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
)

type GroupsHandler struct {
	MembershipService *service.MembershipService
}

// HandleCreate creates a group with the caller as sole member.
func (h *GroupsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	ref, err := h.MembershipService.CreateGroup(ctx, httpx.UserIDFromCtx(ctx), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, ref)
}

// HandleNameExists reports whether the caller already has a group with the
// queried name, so clients can validate before submitting.
func (h *GroupsHandler) HandleNameExists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid-argument",
			"query parameter 'name' is required")
		return
	}

	exists, err := h.MembershipService.CheckGroupNameExists(ctx, httpx.UserIDFromCtx(ctx), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Exists bool `json:"exists"`
	}{Exists: exists})
}

// HandleDetails returns the full group snapshot. Member-only.
func (h *GroupsHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	g, err := h.MembershipService.GetGroupDetails(ctx, httpx.UserIDFromCtx(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, g)
}
