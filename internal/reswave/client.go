package reswave

import (
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	DefaultAPIURL = "http://localhost:3001"
	apiPrefix     = "/api/v1"
	userAgent     = "spigell/reswave (spigelly@gmail.com)"

	defaultReadRetries = 2
	defaultReadTimeout = 30 * time.Second
)

// HTTPConfig tunes the client used for single-shot read requests.
type HTTPConfig struct {
	RetryMax int           `mapstructure:"retry-max"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		RetryMax: defaultReadRetries,
		Timeout:  defaultReadTimeout,
	}
}

type Client struct {
	token  string
	logger *zap.Logger
	// HTTPClient sends optimize attempts and uploads. It has no timeout of its own:
	// every call is bounded by the caller's context.
	HTTPClient *http.Client
	// ReadClient sends list, download and health requests.
	ReadClient *retryablehttp.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string, cfg HTTPConfig) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:      strings.TrimSpace(token),
		logger:     logger,
		HTTPClient: &http.Client{},
		ReadClient: newReadClient(logger, cfg),
		UserAgent:  userAgent,
		APIURL:     DefaultAPIURL,
	}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.APIURL, "/") + apiPrefix + path
}
