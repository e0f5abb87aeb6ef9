package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"syscall"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
	"github.com/batimarket/batimarket/validator"
)

var (
	errBadRequest    = errs.NewInvalidArgumentError("body", "malformed request body")
	errRouteNotFound = errs.NewNotFoundError("route not found")
)

type errRespBody struct {
	Error  string              `json:"error"`
	Kind   errs.Kind           `json:"kind,omitempty"`
	Field  *string             `json:"field,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v any, statusCode int) {
	b, err := json.Marshal(v)
	if err != nil {
		h.respondErr(w, r, fmt.Errorf("could not json marshal http response body: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err = w.Write(b)
	if err != nil && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, context.Canceled) {
		h.Logger.Error("could not write down http response", "req_method", r.Method, "req_url", r.URL.String(), "err", err)
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := err2code(err)
	if statusCode == http.StatusInternalServerError {
		if !errors.Is(err, context.Canceled) {
			h.Logger.Error("got error", "req_method", r.Method, "req_url", r.URL.String(), "err", err)
		}
		h.respond(w, r, errRespBody{Error: "internal server error"}, statusCode)
		return
	}

	if statusCode == http.StatusServiceUnavailable {
		h.Logger.Warn("service unavailable", "req_method", r.Method, "req_url", r.URL.String(), "err", err)
		h.respond(w, r, errRespBody{Error: "service unavailable", Kind: errs.KindUnavailable}, statusCode)
		return
	}

	body := errRespBody{Error: err.Error()}

	var errValidator *validator.Validator
	if errors.As(err, &errValidator) {
		body.Error = "validation failed"
		body.Kind = errs.KindInvalidArgument
		body.Errors = errValidator.Errors
	}

	var errTypes *errs.Error
	if errors.As(err, &errTypes) {
		body.Error = errTypes.Message
		body.Kind = errTypes.Kind
		body.Field = errTypes.Field
	}

	h.respond(w, r, body, statusCode)
}

func err2code(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var errValidator *validator.Validator
	if errors.As(err, &errValidator) {
		return http.StatusBadRequest
	}

	switch errs.KindOf(err) {
	case errs.KindInvalidArgument:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindAlreadyExists:
		return http.StatusConflict
	case errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindUnauthenticated:
		return http.StatusUnauthorized
	case errs.KindUnavailable:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return errBadRequest
	}

	return nil
}

func parsePageArgs(q url.Values) (types.PageArgs, error) {
	var pageArgs types.PageArgs

	if q.Has("first") {
		first, err := strconv.ParseUint(q.Get("first"), 10, 64)
		if err != nil {
			return pageArgs, errs.NewInvalidArgumentError("first", "invalid first page arg")
		}

		pageArgs.First = new(uint(first))
	}

	if q.Has("after") {
		pageArgs.After = new(q.Get("after"))
	}

	if q.Has("last") {
		last, err := strconv.ParseUint(q.Get("last"), 10, 64)
		if err != nil {
			return pageArgs, errs.NewInvalidArgumentError("last", "invalid last page arg")
		}

		pageArgs.Last = new(uint(last))
	}

	if q.Has("before") {
		pageArgs.Before = new(q.Get("before"))
	}

	return pageArgs, nil
}

// parseUint reads an optional unsigned query param. Missing gives 0.
func parseUint(q url.Values, name string) (uint, error) {
	if !q.Has(name) {
		return 0, nil
	}

	n, err := strconv.ParseUint(q.Get(name), 10, 64)
	if err != nil {
		return 0, errs.NewInvalidArgumentError(name, "invalid "+name+" param")
	}

	return uint(n), nil
}
