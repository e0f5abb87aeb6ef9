package http

import (
	"net/http"
	"strconv"

	"github.com/batimarket/batimarket/types"
	"github.com/matryer/way"
)

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageArgs, err := parsePageArgs(q)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	unreadOnly, _ := strconv.ParseBool(q.Get("unread"))

	out, err := h.Service.Notifications(r.Context(), types.ListNotifications{
		PageArgs:   pageArgs,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) unreadNotificationsCount(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.UnreadNotificationsCount(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) readNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.Service.ReadNotification(ctx, types.ReadNotification{
		NotificationID: way.Param(ctx, "notification_id"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) readAllNotifications(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.ReadAllNotifications(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respond(w, r, out, http.StatusOK)
}

func (h *Handler) deleteNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.Service.DeleteNotification(ctx, types.DeleteNotification{
		NotificationID: way.Param(ctx, "notification_id"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) vapidPublicKey(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, map[string]string{"publicKey": h.VAPIDPublicKey}, http.StatusOK)
}

func (h *Handler) subscribeWebPush(w http.ResponseWriter, r *http.Request) {
	var in types.SubscribeWebPush
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	if err := h.Service.SubscribeWebPush(r.Context(), in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unsubscribeWebPush(w http.ResponseWriter, r *http.Request) {
	var in types.UnsubscribeWebPush
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	if err := h.Service.UnsubscribeWebPush(r.Context(), in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
