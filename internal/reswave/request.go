package reswave

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

// envelope is the wrapper every JSON endpoint except health answers with.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error"`
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

// get sends a GET through the retrying read client and returns the decoded body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, []byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}

	c.setHeaders(req.Request)
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", url))
	resp, err := c.ReadClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, nil, err
	}

	return resp, data, nil
}

// getData fetches an enveloped endpoint and decodes its data into target.
func (c *Client) getData(ctx context.Context, url string, target any) error {
	resp, data, err := c.get(ctx, url)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, data)
	}

	env, err := parseEnvelope(data)
	if err != nil {
		return err
	}

	if !env.Success {
		if env.Error != "" {
			return errors.New(env.Error)
		}
		return errors.New("invalid response format")
	}

	return decodeData(env.Data, target)
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

func parseEnvelope(data []byte) (*envelope, error) {
	var env *envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env == nil {
		return nil, errors.New("empty response body")
	}

	return env, nil
}

// decodeData converts the generic data member into a typed value the same way
// for every endpoint: json tag names, RFC3339 timestamps.
func decodeData(data any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     target,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return decoder.Decode(data)
}

// errorMessage extracts the error field of a JSON error body, if any.
func errorMessage(data []byte) string {
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Detail
}

func statusError(resp *http.Response, data []byte) error {
	if msg := errorMessage(data); msg != "" {
		return fmt.Errorf("bad status: %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("bad status: %s", resp.Status)
}

// attachmentName returns the filename of a Content-Disposition header, or fallback.
func attachmentName(header, fallback string) string {
	if header == "" {
		return fallback
	}

	name := ""
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	} else if _, after, ok := strings.Cut(header, "filename="); ok {
		name = strings.Trim(after, `"; `)
	}

	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fallback
	}
	return name
}
