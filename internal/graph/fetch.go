// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/internal/metrics"
)

// errCancelled marks an operation stopped by the progress callback.
var errCancelled = errors.New("cancelled by caller")

// fetcher holds what every request of a backend shares.
type fetcher struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	hasKey  bool
	log     *zap.Logger
}

func newFetcher(name string, client *http.Client, rps float64, hasKey bool, log *zap.Logger) fetcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return fetcher{
		name:    name,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		hasKey:  hasKey,
		log:     log.With(zap.String("backend", name)),
	}
}

// call is one multi-request operation with its own backoff state.
type call struct {
	*fetcher
	op       string
	title    string
	progress Progress
	strategy *httputil.DelayStrategy
}

func (f *fetcher) start(op, title string, p Progress, base time.Duration) *call {
	return &call{
		fetcher:  f,
		op:       op,
		title:    title,
		progress: p,
		strategy: httputil.NewDelayStrategy(base),
	}
}

// do sends the request built by build until it succeeds, is skipped or
// fails. A nil body with a nil error means the target could not be
// resolved and was skipped.
func (c *call) do(ctx context.Context, done, size int, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		kind, msg := httputil.Classify(resp, err, c.hasKey)
		metrics.APIRequests.WithLabelValues(c.name, c.op, kind.String()).Inc()

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}

		if kind == httputil.OK {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				kind, msg = httputil.Classify(nil, readErr, c.hasKey)
				if kind != httputil.Transient {
					return nil, &httputil.FetchError{Kind: kind, Message: msg, Err: readErr}
				}
			} else {
				if err := httputil.Sleep(ctx, c.strategy.Delay(true)); err != nil {
					return nil, err
				}
				return body, nil
			}
		} else if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		switch kind {
		case httputil.Transient:
			if !c.progress.report(c.title, done, size, msg) {
				return nil, errCancelled
			}
			wait := c.strategy.Delay(false)
			c.log.Warn("retrying request",
				zap.String("op", c.op), zap.String("status", msg),
				zap.Int("failures", c.strategy.Failures()), zap.Duration("wait", wait))
			if err := httputil.Sleep(ctx, wait); err != nil {
				return nil, err
			}
		case httputil.DataDefect:
			c.log.Debug("skipping unresolvable request",
				zap.String("op", c.op), zap.String("url", req.URL.String()), zap.Int("status", status))
			if !c.progress.report(c.title, done, size, msg) {
				return nil, errCancelled
			}
			return nil, nil
		default:
			c.log.Error("request failed",
				zap.String("op", c.op), zap.String("kind", kind.String()), zap.String("message", msg))
			return nil, &httputil.FetchError{Kind: kind, Status: status, Message: msg, Err: err}
		}
	}
}

// step reports chunk progress; false means the caller cancelled.
func (c *call) step(done, size int) bool {
	return c.progress.report(c.title, done, size, fmt.Sprintf("%d/%d", done, size))
}

// finish maps an operation error to the (completed, error) result.
func finish(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errCancelled):
		return false, nil
	default:
		return false, err
	}
}
