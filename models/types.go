// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"math"
	"strings"
)

// Poll status constants
const (
	StatusActive = "Active"
	StatusClosed = "Closed"
)

// FilterAll disables a filter dimension.
const FilterAll = "All"

// Genres known to the poll catalogue, in display order.
var Genres = []string{"Action", "Comedy", "Romance", "Sci-Fi", "Horror", "Drama", "Documentary"}

// Statuses lists the valid poll status values.
var Statuses = []string{StatusActive, StatusClosed}

// Rating bounds
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Domain types

type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// PollRecord is one movie poll as seen by a single voter session.
// TotalVotes counts distinct voters, so it is not the sum of option votes
// once someone has switched their vote.
type PollRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Genre      string   `json:"genre"`
	Status     string   `json:"status"`
	Options    []Option `json:"options"`
	TotalVotes int      `json:"total_votes"`
	UserVote   string   `json:"user_vote,omitempty"` // option id, empty if never voted
	Rating     float64  `json:"rating"`
}

// Clone returns a deep copy of the record.
func (p PollRecord) Clone() PollRecord {
	c := p
	if p.Options != nil {
		c.Options = make([]Option, len(p.Options))
		copy(c.Options, p.Options)
	}
	return c
}

// Option returns the option with the given id.
func (p PollRecord) Option(id string) (Option, bool) {
	for _, o := range p.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// HasVoted reports whether this session has a recorded vote on the poll.
func (p PollRecord) HasVoted() bool {
	return p.UserVote != ""
}

// OptionResult is one row of the detail/results view.
type OptionResult struct {
	OptionID string  `json:"option_id"`
	Label    string  `json:"label"`
	Votes    int     `json:"votes"`
	Percent  float64 `json:"percent"`
	Selected bool    `json:"selected"`
}

// Results breaks the poll down per option. Percentages are relative to
// TotalVotes, falling back to the option sum when no voters are recorded.
func (p PollRecord) Results() []OptionResult {
	total := p.TotalVotes
	if total == 0 {
		for _, o := range p.Options {
			total += o.Votes
		}
	}

	results := make([]OptionResult, 0, len(p.Options))
	for _, o := range p.Options {
		var pct float64
		if total > 0 {
			pct = math.Round(float64(o.Votes)/float64(total)*1000) / 10
		}
		results = append(results, OptionResult{
			OptionID: o.ID,
			Label:    o.Label,
			Votes:    o.Votes,
			Percent:  pct,
			Selected: o.ID == p.UserVote,
		})
	}
	return results
}

// Patch carries a partial update for a PollRecord. Nil fields are left alone.
type Patch struct {
	Title      *string
	Genre      *string
	Status     *string
	Options    []Option
	TotalVotes *int
	UserVote   *string
	Rating     *float64
}

// PatchFromRecord builds a patch that overwrites every field of a record
// except its id.
func PatchFromRecord(p PollRecord) Patch {
	rec := p.Clone()
	options := rec.Options
	if options == nil {
		options = []Option{}
	}
	return Patch{
		Title:      &rec.Title,
		Genre:      &rec.Genre,
		Status:     &rec.Status,
		Options:    options,
		TotalVotes: &rec.TotalVotes,
		UserVote:   &rec.UserVote,
		Rating:     &rec.Rating,
	}
}

// VoteFields builds a patch restoring only the vote-related fields of p.
func VoteFields(p PollRecord) Patch {
	rec := p.Clone()
	options := rec.Options
	if options == nil {
		options = []Option{}
	}
	return Patch{
		Options:    options,
		TotalVotes: &rec.TotalVotes,
		UserVote:   &rec.UserVote,
	}
}

// Apply returns a copy of p with the patch merged in.
func (pt Patch) Apply(p PollRecord) PollRecord {
	out := p.Clone()
	if pt.Title != nil {
		out.Title = *pt.Title
	}
	if pt.Genre != nil {
		out.Genre = *pt.Genre
	}
	if pt.Status != nil {
		out.Status = *pt.Status
	}
	if pt.Options != nil {
		out.Options = make([]Option, len(pt.Options))
		copy(out.Options, pt.Options)
	}
	if pt.TotalVotes != nil {
		out.TotalVotes = *pt.TotalVotes
	}
	if pt.UserVote != nil {
		out.UserVote = *pt.UserVote
	}
	if pt.Rating != nil {
		out.Rating = *pt.Rating
	}
	return out
}

// Filters narrows the poll list. Either field may be FilterAll.
type Filters struct {
	Genre  string `json:"genre"`
	Status string `json:"status"`
}

// DefaultFilters returns the All/All filter set.
func DefaultFilters() Filters {
	return Filters{Genre: FilterAll, Status: FilterAll}
}

// Normalize maps empty fields to FilterAll.
func (f Filters) Normalize() Filters {
	if f.Genre == "" {
		f.Genre = FilterAll
	}
	if f.Status == "" {
		f.Status = FilterAll
	}
	return f
}

// Matches reports whether the poll passes the filters and the free-text query.
// A blank query matches everything; otherwise the title must contain it,
// ignoring case.
func Matches(p PollRecord, f Filters, query string) bool {
	f = f.Normalize()
	if f.Genre != FilterAll && p.Genre != f.Genre {
		return false
	}
	if f.Status != FilterAll && p.Status != f.Status {
		return false
	}
	if strings.TrimSpace(query) == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), strings.ToLower(query))
}

// RoundRating rounds to one decimal and clamps into [MinRating, MaxRating].
func RoundRating(r float64) float64 {
	r = math.Round(r*10) / 10
	if r < MinRating {
		return MinRating
	}
	if r > MaxRating {
		return MaxRating
	}
	return r
}

// Request types

type ListRequest struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Filters  Filters `json:"filters"`
	Query    string  `json:"query"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id"`
}

type SubmitRatingRequest struct {
	Rating int `json:"rating"`
}

type LookupRequest struct {
	IDs []string `json:"ids"`
}

// Response types

type ListResponse struct {
	Polls   []PollRecord `json:"polls"`
	HasMore bool         `json:"has_more"`
}

type CastVoteResponse struct {
	Success bool       `json:"success"`
	Poll    PollRecord `json:"poll"`
}

type SubmitRatingResponse struct {
	Rating float64 `json:"rating"`
}

type LookupResponse struct {
	Polls []PollRecord `json:"polls"`
}

type ResultsResponse struct {
	PollID     string         `json:"poll_id"`
	Title      string         `json:"title"`
	Status     string         `json:"status"`
	TotalVotes int            `json:"total_votes"`
	UserVote   string         `json:"user_vote,omitempty"`
	Rating     float64        `json:"rating"`
	Results    []OptionResult `json:"results"`
}

type ClaimVoterResponse struct {
	VoterToken string `json:"voter_token"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
