// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
)

// LookupChunk is the largest id batch sent in one lookup request.
const LookupChunk = 500

// lookupParallelism bounds concurrent lookup requests for large refreshes.
const lookupParallelism = 4

var (
	ErrBadRequest   = errors.New("request rejected by server")
	ErrUnauthorized = errors.New("voter token rejected")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx answer from the server. It unwraps to a source or
// client sentinel chosen by status code.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.StatusCode)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// Client is a source.Backend and source.PollSource over the HTTP API.
// The zero token is the anonymous read-only view.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithVoterToken binds the client to an already claimed token.
func WithVoterToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New validates baseURL and returns a client for it.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Token returns the voter token the client sends, if any.
func (c *Client) Token() string { return c.token }

// ForVoter returns a copy of the client bound to voterToken.
func (c *Client) ForVoter(voterToken string) source.PollSource {
	cp := *c
	cp.token = voterToken
	return &cp
}

// Register claims a fresh voter token. The receiver is not modified; use
// ForVoter to act as the new voter.
func (c *Client) Register(ctx context.Context) (string, error) {
	var resp models.ClaimVoterResponse
	if err := c.do(ctx, http.MethodPost, "/voters", nil, &resp); err != nil {
		return "", fmt.Errorf("register voter: %w", err)
	}
	if resp.VoterToken == "" {
		return "", fmt.Errorf("register voter: %w", ErrServer)
	}
	return resp.VoterToken, nil
}

func (c *Client) ListPolls(ctx context.Context, req models.ListRequest) (models.ListResponse, error) {
	req = source.NormalizeListRequest(req)

	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("page_size", strconv.Itoa(req.PageSize))
	if req.Filters.Genre != models.FilterAll {
		q.Set("genre", req.Filters.Genre)
	}
	if req.Filters.Status != models.FilterAll {
		q.Set("status", req.Filters.Status)
	}
	if strings.TrimSpace(req.Query) != "" {
		q.Set("q", req.Query)
	}

	var resp models.ListResponse
	if err := c.do(ctx, http.MethodGet, "/polls?"+q.Encode(), nil, &resp); err != nil {
		return models.ListResponse{}, err
	}
	return resp, nil
}

func (c *Client) CastVote(ctx context.Context, pollID, optionID string) (models.PollRecord, error) {
	if c.token == "" {
		return models.PollRecord{}, source.ErrVoterRequired
	}

	var resp models.CastVoteResponse
	path := "/polls/" + url.PathEscape(pollID) + "/votes"
	if err := c.do(ctx, http.MethodPost, path, models.CastVoteRequest{OptionID: optionID}, &resp); err != nil {
		return models.PollRecord{}, err
	}
	return resp.Poll, nil
}

// FetchByIDs looks ids up in chunks of LookupChunk, fetched concurrently.
// Results keep the order of ids.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) ([]models.PollRecord, error) {
	if len(ids) == 0 {
		return []models.PollRecord{}, nil
	}

	chunks := make([][]string, 0, (len(ids)+LookupChunk-1)/LookupChunk)
	for start := 0; start < len(ids); start += LookupChunk {
		chunks = append(chunks, ids[start:min(start+LookupChunk, len(ids))])
	}
	found := make([][]models.PollRecord, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupParallelism)
	for i, chunk := range chunks {
		g.Go(func() error {
			var resp models.LookupResponse
			if err := c.do(gctx, http.MethodPost, "/polls/lookup", models.LookupRequest{IDs: chunk}, &resp); err != nil {
				return err
			}
			found[i] = resp.Polls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	polls := make([]models.PollRecord, 0, len(ids))
	for _, f := range found {
		polls = append(polls, f...)
	}
	return polls, nil
}

func (c *Client) SubmitRating(ctx context.Context, pollID string, rating int) (float64, error) {
	if err := source.ValidateRating(rating); err != nil {
		return 0, err
	}

	var resp models.SubmitRatingResponse
	path := "/polls/" + url.PathEscape(pollID) + "/rating"
	if err := c.do(ctx, http.MethodPost, path, models.SubmitRatingRequest{Rating: rating}, &resp); err != nil {
		return 0, err
	}
	return resp.Rating, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Voter-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body models.ErrorResponse
	// non-JSON bodies leave Message empty
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	e := &APIError{StatusCode: resp.StatusCode, Message: body.Message}
	switch {
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(body.Message, "Option"):
		e.kind = source.ErrOptionNotFound
	case resp.StatusCode == http.StatusNotFound:
		e.kind = source.ErrPollNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		e.kind = ErrBadRequest
	default:
		e.kind = ErrServer
	}
	return e
}
