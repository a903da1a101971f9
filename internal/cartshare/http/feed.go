package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cartshare/cartshare/internal/cartshare/notify"
	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/pkg/httpx"
	"github.com/cartshare/cartshare/pkg/slogx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Authn happens via bearer token, not cookies, so cross-origin
		// upgrades carry no ambient credentials.
		return true
	},
}

const (
	feedWriteTimeout = 10 * time.Second
	feedPingInterval = 30 * time.Second
)

// FeedHandler streams live record snapshots over WebSocket. On connect the
// client receives the current snapshot, then one message per committed
// change. Closing the socket is the only way to cancel a subscription.
type FeedHandler struct {
	MembershipService *service.MembershipService
	Notifier          *notify.Notifier
}

// HandleGroupFeed streams snapshots of one group. Member-only; the
// membership check runs before the upgrade so rejections are plain HTTP.
func (h *FeedHandler) HandleGroupFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := httpx.UserIDFromCtx(ctx)
	groupID := r.PathValue("id")

	g, err := h.MembershipService.GetGroupDetails(ctx, uid, groupID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.stream(w, r, notify.GroupKey(groupID), g)
}

// HandleUserFeed streams snapshots of the caller's own record, covering the
// group index and the invite inbox.
func (h *FeedHandler) HandleUserFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := httpx.UserIDFromCtx(ctx)

	u, err := h.MembershipService.GetUser(ctx, uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.stream(w, r, notify.UserKey(uid), u)
}

// stream subscribes before sending the initial snapshot, so a change
// committed between the snapshot read and the first delivery is not lost;
// the client may simply see the same state twice.
func (h *FeedHandler) stream(w http.ResponseWriter, r *http.Request, key string, initial any) {
	log := slogx.FromContext(r.Context())

	sub := h.Notifier.Subscribe(key)
	defer sub.Close()

	// The initial snapshot sets the version floor: anything already queued
	// that is older than what the client is about to see gets dropped.
	if v, ok := initial.(notify.Versioned); ok {
		sub.SetFloor(v.SnapshotVersion())
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log.Info("feed subscribed", slog.String("key", key))

	if err := writeSnapshot(conn, initial); err != nil {
		return
	}

	// Reader goroutine: we never expect client frames, but reading is how
	// gorilla surfaces close frames and dead peers.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingInterval)
	defer ping.Stop()

	for {
		select {
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if err := writeSnapshot(conn, snapshot); err != nil {
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(feedWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-done:
			log.Info("feed client disconnected", slog.String("key", key))
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return conn.WriteJSON(v)
}
