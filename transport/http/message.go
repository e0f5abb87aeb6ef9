package http

import (
	"net/http"

	"github.com/batimarket/batimarket/types"
	"github.com/matryer/way"
)

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	page, err := parseUint(q, "page")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	pageSize, err := parseUint(q, "pageSize")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	out, err := h.Service.Messages(ctx, types.ListMessages{
		ConversationID: way.Param(ctx, "conversation_id"),
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in types.SendMessage
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	ctx := r.Context()
	in.ConversationID = way.Param(ctx, "conversation_id")
	out, err := h.Service.SendMessage(ctx, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusCreated)
}

func (h *Handler) sendProductMessage(w http.ResponseWriter, r *http.Request) {
	var in types.SendProductMessage
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	out, err := h.Service.SendProductMessage(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusCreated)
}

func (h *Handler) message(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.Service.Message(ctx, types.RetrieveMessage{
		MessageID: way.Param(ctx, "message_id"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) editMessage(w http.ResponseWriter, r *http.Request) {
	var in types.EditMessage
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	ctx := r.Context()
	in.MessageID = way.Param(ctx, "message_id")
	out, err := h.Service.EditMessage(ctx, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.Service.DeleteMessage(ctx, types.DeleteMessage{
		MessageID: way.Param(ctx, "message_id"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reactToMessage(w http.ResponseWriter, r *http.Request) {
	var in types.ReactToMessage
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	ctx := r.Context()
	in.MessageID = way.Param(ctx, "message_id")
	out, err := h.Service.ReactToMessage(ctx, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}
