package reswave

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/reswave/internal/optimizer"
)

const (
	headerRequestID = "X-Request-ID"
	headerAttempt   = "X-Attempt"
)

// Attempt performs one optimize call for a file version. Every failure is
// reported as one of the optimizer error types.
func (c *Client) Attempt(ctx context.Context, req optimizer.Request) (*optimizer.Result, error) {
	endpoint := c.endpoint(fmt.Sprintf("%s/%s/optimize", filesPath, url.PathEscape(req.ResourceID)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return nil, &optimizer.TransportError{Err: err}
	}

	c.setHeaders(httpReq)
	httpReq.Header.Set(headerRequestID, req.InvocationID)
	httpReq.Header.Set(headerAttempt, strconv.Itoa(req.Attempt+1))

	resp, err := c.request(httpReq)
	if err != nil {
		return nil, &optimizer.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, &optimizer.TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &optimizer.TransportError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	env, err := parseEnvelope(data)
	if err != nil {
		return nil, &optimizer.MalformedResponseError{Err: err}
	}

	if !env.Success {
		return nil, &optimizer.LogicalFailureError{Message: env.Error}
	}

	if env.Data == nil {
		return nil, &optimizer.MalformedResponseError{Err: errors.New("response has no data")}
	}

	var result optimizer.Result
	if err := decodeData(env.Data, &result); err != nil {
		return nil, &optimizer.MalformedResponseError{Err: err}
	}

	c.logger.Debug("optimize response",
		zap.String("resource_id", req.ResourceID),
		zap.Int("attempt", req.Attempt+1),
		zap.Int("content_length", len(result.OptimizedContent)),
	)

	return &result, nil
}
