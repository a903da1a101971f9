package http

import (
	"net/http"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
)

type UsersHandler struct {
	MembershipService *service.MembershipService
}

// HandleProvision creates the user record for the authenticated identity.
// Email and name default to the token claims; the body may override them.
func (h *UsersHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := httpx.UserIDFromCtx(ctx)

	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		req.Email = httpx.EmailFromCtx(ctx)
	}
	if req.Name == "" {
		req.Name = httpx.NameFromCtx(ctx)
	}

	u, err := h.MembershipService.ProvisionUser(ctx, uid, req.Email, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, u)
}

// HandleMe returns the caller's own record: group index plus invite inbox.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.MembershipService.GetUser(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, u)
}

// HandleMyGroups returns the caller's group index in join order.
func (h *UsersHandler) HandleMyGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refs, err := h.MembershipService.GetUserGroups(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Groups []domain.GroupRef `json:"groups"`
	}{Groups: refs})
}
