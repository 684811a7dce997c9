package reswave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const healthPath = "/health"

type Health struct {
	Status     string `json:"status" yaml:"status"`
	AppName    string `json:"app_name" yaml:"app_name"`
	Version    string `json:"version" yaml:"version"`
	APIVersion string `json:"api_version" yaml:"api_version"`
}

func (h *Health) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, data, err := c.get(ctx, c.endpoint(healthPath))
	if err != nil {
		return nil, fmt.Errorf("could not connect to backend server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, data)
	}

	var health Health
	if err := json.Unmarshal(data, &health); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}

	return &health, nil
}
