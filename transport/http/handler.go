package http

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/batimarket/batimarket/auth"
	"github.com/batimarket/batimarket/realtime"
	"github.com/batimarket/batimarket/service"
	"github.com/gorilla/websocket"
	"github.com/matryer/way"
)

// Handler serves the JSON API under /api, the realtime socket and the
// metrics endpoint.
type Handler struct {
	Service        *service.Service
	Gateway        *realtime.Gateway
	Tokens         auth.Tokens
	Logger         *slog.Logger
	WebOrigin      string
	VAPIDPublicKey string
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler

	upgrader websocket.Upgrader
	handler  http.Handler
	once     sync.Once
}

func (h *Handler) init() {
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	r := way.NewRouter()

	r.HandleFunc("POST", "/api/conversations", h.startConversation)
	r.HandleFunc("GET", "/api/conversations", h.conversations)
	r.HandleFunc("GET", "/api/conversations/:conversation_id", h.conversation)
	r.HandleFunc("PUT", "/api/conversations/:conversation_id/blocked", h.blockConversation)
	r.HandleFunc("POST", "/api/conversations/:conversation_id/read", h.markConversationRead)
	r.HandleFunc("GET", "/api/conversations/:conversation_id/messages", h.messages)
	r.HandleFunc("POST", "/api/conversations/:conversation_id/messages", h.sendMessage)
	r.HandleFunc("POST", "/api/product_conversations", h.sendProductMessage)

	r.HandleFunc("GET", "/api/messages/:message_id", h.message)
	r.HandleFunc("PATCH", "/api/messages/:message_id", h.editMessage)
	r.HandleFunc("DELETE", "/api/messages/:message_id", h.deleteMessage)
	r.HandleFunc("PUT", "/api/messages/:message_id/reaction", h.reactToMessage)

	r.HandleFunc("GET", "/api/notifications", h.notifications)
	r.HandleFunc("GET", "/api/notifications/unread_count", h.unreadNotificationsCount)
	r.HandleFunc("POST", "/api/notifications/read_all", h.readAllNotifications)
	r.HandleFunc("POST", "/api/notifications/:notification_id/read", h.readNotification)
	r.HandleFunc("DELETE", "/api/notifications/:notification_id", h.deleteNotification)

	r.HandleFunc("GET", "/api/web_push/vapid_public_key", h.vapidPublicKey)
	r.HandleFunc("POST", "/api/web_push/subscriptions", h.subscribeWebPush)
	r.HandleFunc("DELETE", "/api/web_push/subscriptions", h.unsubscribeWebPush)

	r.HandleFunc("GET", "/api/realtime", h.realtime)

	if h.Metrics != nil {
		r.Handle("GET", "/metrics", h.Metrics)
	}

	r.NotFound = http.HandlerFunc(h.notFound)

	h.handler = h.withUser(r)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.init)
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.respondErr(w, r, errRouteNotFound)
}

// checkOrigin only lets the web app open sockets. Non browser clients
// send no Origin header.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.WebOrigin == "" || origin == h.WebOrigin
}
