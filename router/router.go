// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/moviepolls/cliparse"
	"github.com/danielhkuo/moviepolls/handlers"
	"github.com/danielhkuo/moviepolls/middleware"
	"github.com/danielhkuo/moviepolls/source"
)

// Banner is served at the root path
const Banner = "moviepolls API v1"

func NewRouter(backend source.Backend, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(backend, cfg)
	votingHandler := handlers.NewVotingHandler(backend, cfg)
	resultsHandler := handlers.NewResultsHandler(backend, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voter identity
	mux.HandleFunc("POST /voters", middleware.WithLogging(votingHandler.ClaimVoter))

	// Browsing
	mux.HandleFunc("GET /polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("POST /polls/lookup", middleware.WithLogging(pollHandler.Lookup))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(resultsHandler.GetPoll))
	mux.HandleFunc("GET /polls/{id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Voting
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("POST /polls/{id}/rating", middleware.WithLogging(votingHandler.SubmitRating))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(Banner))
	})

	return mux
}
