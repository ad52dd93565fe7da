// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/moviepolls/auth"
	"github.com/danielhkuo/moviepolls/cliparse"
	"github.com/danielhkuo/moviepolls/middleware"
	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
)

type VotingHandler struct {
	backend source.Backend
	cfg     cliparse.Config
}

func NewVotingHandler(backend source.Backend, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{
		backend: backend,
		cfg:     cfg,
	}
}

// ClaimVoter handles POST /voters
// Issues a fresh signed voter token. Tokens are not stored server-side.
func (h *VotingHandler) ClaimVoter(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GenerateVoterToken(h.cfg.VoterSecret)
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to generate voter token")
		return
	}

	slog.Info("voter claimed", "remote", middleware.GetClientIP(r))

	middleware.JSONResponse(w, http.StatusCreated, models.ClaimVoterResponse{
		VoterToken: token,
	})
}

// CastVote handles POST /polls/{id}/votes
// Re-casting the current option is a no-op that still returns the poll.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	src, ok := voterSource(w, r, h.backend, h.cfg.VoterSecret, true)
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.OptionID = strings.TrimSpace(req.OptionID)
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	poll, err := src.CastVote(r.Context(), pollID, req.OptionID)
	if err != nil {
		writeSourceError(w, r, "cast vote", err)
		return
	}

	slog.Info("vote recorded", "poll_id", pollID, "option_id", req.OptionID, "total_votes", poll.TotalVotes)

	middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{
		Success: true,
		Poll:    poll,
	})
}

// SubmitRating handles POST /polls/{id}/rating
func (h *VotingHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	var req models.SubmitRatingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := source.ValidateRating(req.Rating); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	src, ok := voterSource(w, r, h.backend, h.cfg.VoterSecret, false)
	if !ok {
		return
	}

	rating, err := src.SubmitRating(r.Context(), pollID, req.Rating)
	if err != nil {
		writeSourceError(w, r, "submit rating", err)
		return
	}

	slog.Info("rating recorded", "poll_id", pollID, "stars", req.Rating, "rating", rating)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitRatingResponse{Rating: rating})
}

// voterSource scopes the backend to the caller's voter token. A missing
// token yields the anonymous view unless required; a present but invalid
// token is always rejected. It writes the error response itself.
func voterSource(w http.ResponseWriter, r *http.Request, backend source.Backend, secret string, required bool) (source.PollSource, bool) {
	token := middleware.VoterToken(r)
	if token == "" {
		if required {
			middleware.ErrorResponse(w, http.StatusUnauthorized, middleware.VoterTokenHeader+" header required")
			return nil, false
		}
		return backend.ForVoter(""), true
	}

	if err := auth.ValidateVoterToken(token, secret); err != nil {
		slog.Warn("rejected voter token", "error", err, "remote", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return nil, false
	}

	return backend.ForVoter(token), true
}
