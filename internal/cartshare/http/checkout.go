package http

import (
	"net/http"

	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
)

type CheckoutHandler struct {
	ListService       *service.ListService
	MembershipService *service.MembershipService
}

// ServeHTTP settles the group's checked items into one priced history
// entry. The amount arrives as a string straight from the client's form
// input; the buyer defaults to the caller's display name, falling back to
// their email.
func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Amount string `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	buyer := httpx.NameFromCtx(ctx)
	if buyer == "" {
		buyer = httpx.EmailFromCtx(ctx)
	}
	if buyer == "" {
		// Token carried no profile claims; fall back to the stored record.
		u, err := h.MembershipService.GetUser(ctx, httpx.UserIDFromCtx(ctx))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		buyer = u.Name
	}

	checkout, err := h.ListService.Checkout(ctx,
		httpx.UserIDFromCtx(ctx), r.PathValue("id"), req.Amount, buyer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, checkout)
}
