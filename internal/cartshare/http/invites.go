package http

import (
	"net/http"

	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
)

type InvitesHandler struct {
	MembershipService *service.MembershipService
}

// HandleInvite sends an invitation for this group to the user registered
// under the given email address.
func (h *InvitesHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	inv, err := h.MembershipService.Invite(ctx, httpx.UserIDFromCtx(ctx), r.PathValue("id"), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, inv)
}

// HandleAccept consumes the invite and joins the group.
func (h *InvitesHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.MembershipService.AcceptInvitation(ctx, httpx.UserIDFromCtx(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDecline consumes the invite without joining.
func (h *InvitesHandler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.MembershipService.DeclineInvitation(ctx, httpx.UserIDFromCtx(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
