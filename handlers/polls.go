// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielhkuo/moviepolls/cliparse"
	"github.com/danielhkuo/moviepolls/middleware"
	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
)

// MaxLookupIDs caps the ids accepted by one lookup request
const MaxLookupIDs = 500

type PollHandler struct {
	backend source.Backend
	cfg     cliparse.Config
}

func NewPollHandler(backend source.Backend, cfg cliparse.Config) *PollHandler {
	return &PollHandler{
		backend: backend,
		cfg:     cfg,
	}
}

// ListPolls handles GET /polls?page=&page_size=&genre=&status=&q=
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	req, msg := parseListRequest(r, h.cfg.PageSize)
	if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	src, ok := voterSource(w, r, h.backend, h.cfg.VoterSecret, false)
	if !ok {
		return
	}

	resp, err := src.ListPolls(r.Context(), req)
	if err != nil {
		writeSourceError(w, r, "list polls", err)
		return
	}
	if resp.Polls == nil {
		resp.Polls = []models.PollRecord{}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Lookup handles POST /polls/lookup
// Unknown ids are omitted from the response.
func (h *PollHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req models.LookupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.IDs) > MaxLookupIDs {
		middleware.ErrorResponse(w, http.StatusBadRequest, "too many ids (max "+strconv.Itoa(MaxLookupIDs)+")")
		return
	}
	for _, id := range req.IDs {
		if strings.TrimSpace(id) == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "ids cannot contain blanks")
			return
		}
	}

	src, ok := voterSource(w, r, h.backend, h.cfg.VoterSecret, false)
	if !ok {
		return
	}

	polls := []models.PollRecord{}
	if len(req.IDs) > 0 {
		found, err := src.FetchByIDs(r.Context(), req.IDs)
		if err != nil {
			writeSourceError(w, r, "lookup polls", err)
			return
		}
		polls = append(polls, found...)
	}

	middleware.JSONResponse(w, http.StatusOK, models.LookupResponse{Polls: polls})
}

// parseListRequest reads the list query string. A non-empty message means
// the request is invalid.
func parseListRequest(r *http.Request, defaultSize int) (models.ListRequest, string) {
	q := r.URL.Query()
	req := models.ListRequest{
		PageSize: defaultSize,
		Filters:  models.DefaultFilters(),
		Query:    strings.TrimSpace(q.Get("q")),
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			return req, "page must be a non-negative integer"
		}
		req.Page = page
	}

	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > source.MaxPageSize {
			return req, "page_size must be between 1 and " + strconv.Itoa(source.MaxPageSize)
		}
		req.PageSize = size
	}

	if v := q.Get("genre"); v != "" && v != models.FilterAll {
		if !slices.Contains(models.Genres, v) {
			return req, "unknown genre: " + v
		}
		req.Filters.Genre = v
	}

	if v := q.Get("status"); v != "" && v != models.FilterAll {
		if !slices.Contains(models.Statuses, v) {
			return req, "status must be Active, Closed or All"
		}
		req.Filters.Status = v
	}

	return source.NormalizeListRequest(req), ""
}

// writeSourceError maps a backend error onto an HTTP status
func writeSourceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, source.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	case errors.Is(err, source.ErrOptionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
	case errors.Is(err, source.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
	case errors.Is(err, source.ErrInvalidRating):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, source.ErrVoterRequired):
		middleware.ErrorResponse(w, http.StatusUnauthorized, middleware.VoterTokenHeader+" header required")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// client went away, nothing useful to write
		slog.Debug("request cancelled", "op", op)
	default:
		slog.Warn("backend call failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, err.Error())
	}
}
