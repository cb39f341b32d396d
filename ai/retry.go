// Copyright 2025 Storyowl Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

const (
	// DefaultRetryAttempts is the total number of embedding attempts before
	// giving up on a rate-limited upstream.
	DefaultRetryAttempts = 5

	// DefaultRetryBaseDelay is the backoff before the first retry. It doubles
	// on every subsequent retry.
	DefaultRetryBaseDelay = 200 * time.Millisecond

	// DefaultRetryMaxDelay caps the exponential backoff.
	DefaultRetryMaxDelay = 2 * time.Second

	// retryJitterMax bounds the random jitter added to each backoff so
	// concurrent callers do not retry in lockstep.
	retryJitterMax = 100 * time.Millisecond
)

// RetryingEmbedder wraps an Embedder with bounded exponential backoff on
// rate-limit errors. Other errors are returned immediately; only a throttled
// upstream is worth waiting for.
type RetryingEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger

	// sleep and jitter are injection points for deterministic tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// RetryOption configures a RetryingEmbedder.
type RetryOption func(*RetryingEmbedder)

// WithMaxAttempts sets the total number of attempts (initial call included).
func WithMaxAttempts(n int) RetryOption {
	return func(r *RetryingEmbedder) {
		r.maxAttempts = n
	}
}

// WithBaseDelay sets the backoff before the first retry.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *RetryingEmbedder) {
		r.baseDelay = d
	}
}

// WithMaxDelay caps the exponential backoff.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(r *RetryingEmbedder) {
		r.maxDelay = d
	}
}

// NewRetryingEmbedder wraps inner with the default retry policy:
// 5 attempts, 200ms base delay doubling per retry, capped at 2s, with
// random jitter.
func NewRetryingEmbedder(inner Embedder, opts ...RetryOption) *RetryingEmbedder {
	r := &RetryingEmbedder{
		inner:       inner,
		maxAttempts: DefaultRetryAttempts,
		baseDelay:   DefaultRetryBaseDelay,
		maxDelay:    DefaultRetryMaxDelay,
		logger:      slog.Default().With("component", "retrying-embedder"),
		sleep:       sleepCtx,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(retryJitterMax)))
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	return r
}

// EmbedText generates an embedding, retrying on rate-limit errors.
func (r *RetryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := r.do(ctx, func() error {
		var err error
		vec, err = r.inner.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		if len(vec) == 0 {
			return ErrEmptyEmbedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedTexts generates embeddings for a batch, retrying on rate-limit errors.
// The whole batch is retried as one unit.
func (r *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.do(ctx, func() error {
		var err error
		vecs, err = r.inner.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return ErrEmbeddingCountMismatch
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

func (r *RetryingEmbedder) do(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !IsRateLimited(lastErr) {
			return lastErr
		}
		if attempt == r.maxAttempts {
			break
		}

		delay := r.baseDelay << (attempt - 1)
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
		delay += r.jitter()

		r.logger.Warn("embedding rate limited, backing off",
			"attempt", attempt, "maxAttempts", r.maxAttempts, "delay", delay)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
	// Exhausted retries on a throttled upstream. String-classified 429s
	// still need the sentinel attached for errors.Is callers.
	if errors.Is(lastErr, ErrRateLimited) {
		return lastErr
	}
	return fmt.Errorf("%w: %w", ErrRateLimited, lastErr)
}

// IsRateLimited reports whether err looks like an upstream throttle response.
// The langchaingo client surfaces HTTP failures as opaque errors, so status
// detection falls back to message inspection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
