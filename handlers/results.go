// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/moviepolls/cliparse"
	"github.com/danielhkuo/moviepolls/middleware"
	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
)

type ResultsHandler struct {
	backend source.Backend
	cfg     cliparse.Config
}

func NewResultsHandler(backend source.Backend, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{
		backend: backend,
		cfg:     cfg,
	}
}

// GetPoll handles GET /polls/{id}
func (h *ResultsHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, ok := h.fetch(w, r)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// GetResults handles GET /polls/{id}/results
// Results are public for active and closed polls alike.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	poll, ok := h.fetch(w, r)
	if !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		PollID:     poll.ID,
		Title:      poll.Title,
		Status:     poll.Status,
		TotalVotes: poll.TotalVotes,
		UserVote:   poll.UserVote,
		Rating:     poll.Rating,
		Results:    poll.Results(),
	})
}

func (h *ResultsHandler) fetch(w http.ResponseWriter, r *http.Request) (models.PollRecord, bool) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return models.PollRecord{}, false
	}

	src, ok := voterSource(w, r, h.backend, h.cfg.VoterSecret, false)
	if !ok {
		return models.PollRecord{}, false
	}

	polls, err := src.FetchByIDs(r.Context(), []string{pollID})
	if err != nil {
		writeSourceError(w, r, "get poll", err)
		return models.PollRecord{}, false
	}
	if len(polls) == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return models.PollRecord{}, false
	}

	return polls[0], true
}
