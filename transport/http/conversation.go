package http

import (
	"net/http"

	"github.com/batimarket/batimarket/types"
	"github.com/matryer/way"
)

func (h *Handler) startConversation(w http.ResponseWriter, r *http.Request) {
	var in types.StartConversation
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	out, err := h.Service.StartConversation(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

// conversations lists the caller conversations, or searches them by the
// other participant name when the "search" query param is set.
func (h *Handler) conversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		out []types.Conversation
		err error
	)
	if q.Has("search") {
		out, err = h.Service.SearchConversations(ctx, types.SearchConversations{
			Query: q.Get("search"),
		})
	} else {
		out, err = h.Service.Conversations(ctx, types.ListConversations{})
	}
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	if out == nil {
		out = []types.Conversation{} // non null array
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.Service.Conversation(ctx, types.RetrieveConversation{
		ConversationID: way.Param(ctx, "conversation_id"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) blockConversation(w http.ResponseWriter, r *http.Request) {
	var in types.BlockConversation
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	ctx := r.Context()
	in.ConversationID = way.Param(ctx, "conversation_id")
	out, err := h.Service.BlockConversation(ctx, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) markConversationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.Service.MarkConversationRead(ctx, types.MarkConversationRead{
		ConversationID: way.Param(ctx, "conversation_id"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}
