// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/danielhkuo/moviepolls/models"
)

type chaosConfig struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
	seed        int64
}

// ChaosOption customises a Chaos backend.
type ChaosOption func(*chaosConfig)

// WithLatency delays every call by a uniform duration in [min, max].
func WithLatency(min, max time.Duration) ChaosOption {
	return func(c *chaosConfig) {
		if max < min {
			max = min
		}
		c.minLatency, c.maxLatency = min, max
	}
}

// WithFailureRate makes CastVote fail with ErrSimulatedFailure with
// probability p. Default: 0.07.
func WithFailureRate(p float64) ChaosOption {
	return func(c *chaosConfig) { c.failureRate = p }
}

// WithSeed fixes the random source, for tests.
func WithSeed(seed int64) ChaosOption { return func(c *chaosConfig) { c.seed = seed } }

// Chaos wraps a Backend with simulated latency and vote failures.
type Chaos struct {
	next Backend
	cfg  chaosConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewChaos decorates next.
func NewChaos(next Backend, opts ...ChaosOption) *Chaos {
	cfg := chaosConfig{failureRate: 0.07, seed: time.Now().UnixNano()}
	for _, o := range opts {
		o(&cfg)
	}
	return &Chaos{
		next: next,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.seed)),
	}
}

// ForVoter implements Backend.
func (c *Chaos) ForVoter(voterToken string) PollSource {
	return &chaosSession{c: c, next: c.next.ForVoter(voterToken)}
}

func (c *Chaos) wait(ctx context.Context) error {
	d := c.cfg.minLatency
	c.mu.Lock()
	if spread := c.cfg.maxLatency - c.cfg.minLatency; spread > 0 {
		d += time.Duration(c.rng.Int63n(int64(spread) + 1))
	}
	c.mu.Unlock()
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Chaos) fail() bool {
	if c.cfg.failureRate <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() < c.cfg.failureRate
}

type chaosSession struct {
	c    *Chaos
	next PollSource
}

func (s *chaosSession) ListPolls(ctx context.Context, req models.ListRequest) (models.ListResponse, error) {
	if err := s.c.wait(ctx); err != nil {
		return models.ListResponse{}, err
	}
	return s.next.ListPolls(ctx, req)
}

func (s *chaosSession) CastVote(ctx context.Context, pollID, optionID string) (models.PollRecord, error) {
	if err := s.c.wait(ctx); err != nil {
		return models.PollRecord{}, err
	}
	if s.c.fail() {
		return models.PollRecord{}, ErrSimulatedFailure
	}
	return s.next.CastVote(ctx, pollID, optionID)
}

func (s *chaosSession) FetchByIDs(ctx context.Context, ids []string) ([]models.PollRecord, error) {
	if err := s.c.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.FetchByIDs(ctx, ids)
}

func (s *chaosSession) SubmitRating(ctx context.Context, pollID string, rating int) (float64, error) {
	if err := s.c.wait(ctx); err != nil {
		return 0, err
	}
	return s.next.SubmitRating(ctx, pollID, rating)
}
