package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/batimarket/batimarket/auth"
	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/realtime"
	"github.com/batimarket/batimarket/types"
)

const (
	inboundTyping     = "typing"
	inboundStopTyping = "stop_typing"
)

// realtime upgrades to a websocket that receives every event published
// to the caller.
func (h *Handler) realtime(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondErr(w, r, errs.Unauthenticated)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied.
		h.Logger.Warn("websocket upgrade", "req_url", r.URL.String(), "err", err)
		return
	}

	err = h.Gateway.Serve(r.Context(), ws, user.UserID, h.inbound)
	if err != nil {
		h.Logger.Warn("websocket closed", "user_id", user.UserID, "err", err)
	}
}

type typingData struct {
	ConversationID string `json:"conversationID"`
}

func (h *Handler) inbound(ctx context.Context, ev realtime.InboundEvent) error {
	switch ev.Name {
	case inboundTyping, inboundStopTyping:
		var data typingData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return errs.NewInvalidArgumentError("data", "malformed typing event")
		}

		return h.Service.Typing(ctx, types.Typing{
			ConversationID: data.ConversationID,
			Typing:         ev.Name == inboundTyping,
		})
	}

	return errs.NewInvalidArgumentError("event", "unknown event "+ev.Name)
}
