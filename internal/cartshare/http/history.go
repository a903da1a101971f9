package http

import (
	"net/http"

	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
)

type HistoryHandler struct {
	HistoryService *service.HistoryService
}

// ServeHTTP returns the group's monthly spending report, newest month
// first. Each bucket carries its total, its trend against the previous
// month and the checkouts it was derived from.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	buckets, err := h.HistoryService.GetGroupHistory(ctx,
		httpx.UserIDFromCtx(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Months []service.MonthBucket `json:"months"`
	}{Months: buckets})
}
