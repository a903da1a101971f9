package http

import (
	"net/http"

	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
)

type ItemsHandler struct {
	ListService *service.ListService
}

// HandleAdd appends a new unchecked item to the group's list.
func (h *ItemsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.ListService.AddItem(ctx, httpx.UserIDFromCtx(ctx), r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, item)
}

// HandleToggle flips the item's checked flag and returns the new state.
func (h *ItemsHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	item, err := h.ListService.ToggleItem(ctx,
		httpx.UserIDFromCtx(ctx), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, item)
}

// HandleRename updates the item's name. An empty name or a vanished item is
// accepted and ignored, so clients racing a delete see no spurious failure.
func (h *ItemsHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.ListService.RenameItem(ctx,
		httpx.UserIDFromCtx(ctx), r.PathValue("id"), r.PathValue("itemID"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes the item from the list.
func (h *ItemsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.ListService.DeleteItem(ctx,
		httpx.UserIDFromCtx(ctx), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
