package reswave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	testOptimizePath     = "/test/optimize"
	defaultOptimizedName = "optimized-resume.docx"
	docxExtension        = ".docx"
	pdfExtension         = ".pdf"

	uploadField       = "resume"
	testOptimizeField = "file"
)

var (
	ErrNotDocx           = errors.New("please upload a DOCX file")
	ErrUnsupportedUpload = errors.New("please upload a PDF or DOCX file")
)

// Upload stores a local PDF or DOCX resume as a new file and returns it with
// its versions. It is a single call without retries.
func (c *Client) Upload(ctx context.Context, path string) (*FileData, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != docxExtension && ext != pdfExtension {
		return nil, ErrUnsupportedUpload
	}

	resp, data, err := c.postFile(ctx, c.endpoint(filesPath), uploadField, path)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(data)
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("upload %s: %s", filepath.Base(path), msg)
	}

	env, err := parseEnvelope(data)
	if err != nil || !env.Success || env.Data == nil {
		return nil, fmt.Errorf("upload %s: invalid response format", filepath.Base(path))
	}

	var file FileData
	if err := decodeData(env.Data, &file); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	return &file, nil
}

// TestOptimize uploads a local DOCX file to the test optimization endpoint and
// returns the optimized document. It is a single call without retries.
func (c *Client) TestOptimize(ctx context.Context, path string) (*Download, error) {
	if !strings.EqualFold(filepath.Ext(path), docxExtension) {
		return nil, ErrNotDocx
	}

	resp, data, err := c.postFile(ctx, c.endpoint(testOptimizePath), testOptimizeField, path)
	if err != nil {
		return nil, err
	}

	if strings.Contains(resp.Header.Get("Content-Type"), contentType) {
		if msg := errorMessage(data); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, errors.New("failed to optimize document")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, data)
	}

	return &Download{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition"), defaultOptimizedName),
		ContentType: resp.Header.Get("Content-Type"),
		Content:     data,
	}, nil
}

// postFile sends path as the multipart form field and returns the response with
// its decoded body.
func (c *Client) postFile(ctx context.Context, url, field, path string) (*http.Response, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, nil, err
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	c.logger.Debug("uploading document", zap.String("path", path), zap.String("field", field), zap.Int("size", b.Len()))

	resp, err := c.request(req)
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
