package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cartshare/cartshare/internal/cartshare/notify"
	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/internal/cartshare/store"
	"github.com/cartshare/cartshare/pkg/httpx"
	"github.com/cartshare/cartshare/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	notifier *notify.Notifier

	MembershipService *service.MembershipService
	ListService       *service.ListService
	HistoryService    *service.HistoryService
}

func NewRouter(
	verifier httpx.Verifier,
	buildVersion string,
	st store.Store,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		notifier:     notifier,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerGroups()
	r.registerInvites()
	r.registerItems()
	r.registerFeeds()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with the standard authenticated chain. Metrics
// sit innermost so the route pattern is already resolved when they record.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(limit),
		httpx.MetricsMiddleware(),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{MembershipService: r.MembershipService}

	// POST /v1/users - strict limit (record creation)
	r.Mux.Handle("POST /v1/users",
		r.secured(http.HandlerFunc(h.HandleProvision), httpx.StrictLimit))

	// Own-record reads - lenient limit
	r.Mux.Handle("GET /v1/me",
		r.secured(http.HandlerFunc(h.HandleMe), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/me/groups",
		r.secured(http.HandlerFunc(h.HandleMyGroups), httpx.LenientLimit))
}

func (r *Router) registerGroups() {
	h := &GroupsHandler{MembershipService: r.MembershipService}

	r.Mux.Handle("POST /v1/groups",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.StrictLimit))
	r.Mux.Handle("GET /v1/groups/name-exists",
		r.secured(http.HandlerFunc(h.HandleNameExists), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/groups/{id}",
		r.secured(http.HandlerFunc(h.HandleDetails), httpx.LenientLimit))

	historyHandler := &HistoryHandler{HistoryService: r.HistoryService}
	r.Mux.Handle("GET /v1/groups/{id}/history",
		r.secured(historyHandler, httpx.LenientLimit))
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{MembershipService: r.MembershipService}

	r.Mux.Handle("POST /v1/groups/{id}/invites",
		r.secured(http.HandlerFunc(h.HandleInvite), httpx.StrictLimit))
	r.Mux.Handle("POST /v1/invites/{id}/accept",
		r.secured(http.HandlerFunc(h.HandleAccept), httpx.StrictLimit))
	r.Mux.Handle("POST /v1/invites/{id}/decline",
		r.secured(http.HandlerFunc(h.HandleDecline), httpx.StrictLimit))
}

func (r *Router) registerItems() {
	h := &ItemsHandler{ListService: r.ListService}

	r.Mux.Handle("POST /v1/groups/{id}/items",
		r.secured(http.HandlerFunc(h.HandleAdd), httpx.StrictLimit))
	r.Mux.Handle("POST /v1/groups/{id}/items/{itemID}/toggle",
		r.secured(http.HandlerFunc(h.HandleToggle), httpx.StrictLimit))
	r.Mux.Handle("PATCH /v1/groups/{id}/items/{itemID}",
		r.secured(http.HandlerFunc(h.HandleRename), httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/groups/{id}/items/{itemID}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.StrictLimit))

	checkoutHandler := &CheckoutHandler{
		ListService:       r.ListService,
		MembershipService: r.MembershipService,
	}
	r.Mux.Handle("POST /v1/groups/{id}/checkout",
		r.secured(checkoutHandler, httpx.StrictLimit))
}

func (r *Router) registerFeeds() {
	h := &FeedHandler{
		MembershipService: r.MembershipService,
		Notifier:          r.notifier,
	}

	// Feed limits count connection attempts; established sockets are free.
	r.Mux.Handle("GET /v1/groups/{id}/feed",
		r.secured(http.HandlerFunc(h.HandleGroupFeed), httpx.FeedLimit))
	r.Mux.Handle("GET /v1/me/feed",
		r.secured(http.HandlerFunc(h.HandleUserFeed), httpx.FeedLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient limits, monitoring may poll often
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", httpx.MetricsHandler())
}
