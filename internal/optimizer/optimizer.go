package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/reswave/internal/logger"
	"github.com/spigell/reswave/internal/utils"
)

// Attempter performs exactly one call to the remote operation.
// Implementations must return once ctx is done.
type Attempter interface {
	Attempt(ctx context.Context, req Request) (*Result, error)
}

// AttempterFunc adapts a function to Attempter.
type AttempterFunc func(ctx context.Context, req Request) (*Result, error)

func (f AttempterFunc) Attempt(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Client submits optimize invocations and retries failed attempts with exponential backoff.
// A Client holds no per-invocation state and may be shared between goroutines.
type Client struct {
	attempter Attempter
	cfg       Config
	logger    *zap.Logger

	wait   func(ctx context.Context, d time.Duration) error
	newID  func() string
	jitter func(n int64) int64
}

func New(attempter Attempter, cfg Config, log *zap.Logger) (*Client, error) {
	if attempter == nil {
		return nil, errors.New("attempter is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config: %w", err)
	}

	return &Client{
		attempter: attempter,
		cfg:       cfg,
		logger:    logger.WithFields(log),
		wait:      utils.WaitFor,
		newID:     uuid.NewString,
		jitter:    rand.Int64N,
	}, nil
}

func (c *Client) Config() Config {
	return c.cfg
}

// Submit runs the remote operation for resourceID until an attempt succeeds or
// MaxRetries retries have failed. Attempts run strictly one after another.
// Only a *BudgetExhaustedError or the caller's context error leave this method
// once the first attempt has started.
func (c *Client) Submit(ctx context.Context, resourceID string) (*Result, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, ErrEmptyResourceID
	}

	req := Request{ResourceID: resourceID, InvocationID: c.newID()}
	log := c.logger.With(logger.OperationFields(req.ResourceID, req.InvocationID)...)
	started := time.Now()

	for attempt := 0; ; attempt++ {
		req.Attempt = attempt

		log.Debug("starting attempt",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.cfg.MaxRetries+1),
			zap.Duration("timeout", c.cfg.AttemptTimeout),
		)

		result, err := c.attempt(ctx, req)
		if err == nil {
			result.Attempts = attempt + 1
			log.Info("optimization succeeded",
				zap.Int("attempts", result.Attempts),
				zap.Duration("elapsed", time.Since(started)),
			)
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("optimization cancelled", zap.Int("attempts", attempt+1), zap.Error(err))
			return nil, fmt.Errorf("optimize %s cancelled after %d attempts: %w", resourceID, attempt+1, ctxErr)
		}

		if attempt >= c.cfg.MaxRetries {
			exhausted := &BudgetExhaustedError{
				Attempts:   attempt + 1,
				MaxRetries: c.cfg.MaxRetries,
				Err:        err,
			}
			log.Error("retry budget exhausted",
				zap.Int("attempts", exhausted.Attempts),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(err),
			)
			return nil, exhausted
		}

		delay := c.backoff(attempt)
		log.Warn("attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if err := c.wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("optimize %s cancelled after %d attempts: %w", resourceID, attempt+1, err)
		}
	}
}

// attempt runs one bounded call. The attempt context is cancelled before
// returning, so the in-flight call is aborted before any backoff starts.
func (c *Client) attempt(ctx context.Context, req Request) (*Result, error) {
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.cfg.AttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	}
	defer cancel()

	result, err := c.attempter.Attempt(attemptCtx, req)

	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, &TransportError{
			TimedOut: true,
			Timeout:  c.cfg.AttemptTimeout,
			Err:      context.DeadlineExceeded,
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &MalformedResponseError{Err: errors.New("empty result")}
	}

	return result, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.Delay(attempt)
	if !c.cfg.Jitter || d <= 1 {
		return d
	}

	half := d / 2
	return half + time.Duration(c.jitter(int64(d-half)+1))
}
