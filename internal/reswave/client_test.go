package reswave

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/spigell/reswave/internal/optimizer"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(zap.NewNop(), "secret-token", HTTPConfig{RetryMax: 2, Timeout: time.Second})
	c.APIURL = server.URL
	c.ReadClient.RetryWaitMin = time.Millisecond
	c.ReadClient.RetryWaitMax = 2 * time.Millisecond
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestAttemptSuccess(t *testing.T) {
	var gotHeaders http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/files/ver-1/optimize" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotHeaders = r.Header.Clone()

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"optimizedContent": "# Jane Doe",
				"metadata": map[string]any{
					"retryCount":      1,
					"processingTime":  1532.5,
					"chunksProcessed": 4,
					"totalChunks":     4,
				},
			},
		})
	}))

	result, err := c.Attempt(context.Background(), optimizer.Request{ResourceID: "ver-1", InvocationID: "inv-1", Attempt: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &optimizer.Result{
		OptimizedContent: "# Jane Doe",
		Metadata: &optimizer.Metadata{
			RetryCount:      1,
			ProcessingTime:  1532.5,
			ChunksProcessed: 4,
			TotalChunks:     4,
		},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}

	if got := gotHeaders.Get("Authorization"); got != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header %q", got)
	}
	if got := gotHeaders.Get(headerRequestID); got != "inv-1" {
		t.Fatalf("unexpected request id %q", got)
	}
	if got := gotHeaders.Get(headerAttempt); got != "3" {
		t.Fatalf("unexpected attempt header %q", got)
	}
}

func TestAttemptGzipBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/json")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		_, _ = gz.Write([]byte(`{"success":true,"data":{"optimizedContent":"zipped"}}`))
	}))

	result, err := c.Attempt(context.Background(), optimizer.Request{ResourceID: "ver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OptimizedContent != "zipped" || result.Metadata != nil {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAttemptFailureClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "status with error body",
			status: http.StatusServiceUnavailable,
			body:   `{"error":"model is loading"}`,
			check: func(t *testing.T, err error) {
				var transport *optimizer.TransportError
				if !errors.As(err, &transport) {
					t.Fatalf("expected transport error, got %T", err)
				}
				if transport.StatusCode != http.StatusServiceUnavailable || transport.Message != "model is loading" {
					t.Fatalf("unexpected transport error: %+v", transport)
				}
			},
		},
		{
			name:   "status without json",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(t *testing.T, err error) {
				if err.Error() != "HTTP error! status: 502" {
					t.Fatalf("unexpected message %q", err.Error())
				}
			},
		},
		{
			name:   "success false",
			status: http.StatusOK,
			body:   `{"success":false}`,
			check: func(t *testing.T, err error) {
				var logical *optimizer.LogicalFailureError
				if !errors.As(err, &logical) {
					t.Fatalf("expected logical failure, got %T", err)
				}
				if err.Error() != "failed to optimize resume" {
					t.Fatalf("unexpected message %q", err.Error())
				}
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `optimized!`,
			check:  expectMalformed,
		},
		{
			name:   "missing data",
			status: http.StatusOK,
			body:   `{"success":true}`,
			check:  expectMalformed,
		},
		{
			name:   "data of wrong shape",
			status: http.StatusOK,
			body:   `{"success":true,"data":"just text"}`,
			check:  expectMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.Attempt(context.Background(), optimizer.Request{ResourceID: "ver-1"})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func expectMalformed(t *testing.T, err error) {
	t.Helper()

	var malformed *optimizer.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected malformed response error, got %T: %v", err, err)
	}
}

func TestAttemptHonoursContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Attempt(ctx, optimizer.Request{ResourceID: "ver-1"})

	var transport *optimizer.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline in chain, got %v", err)
	}
}

func TestSubmitThroughHTTPRetriesLogicalFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			writeJSON(t, w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		case 2:
			writeJSON(t, w, http.StatusOK, map[string]any{"success": false})
		default:
			writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"optimizedContent": "X"}})
		}
	}))

	client, err := optimizer.New(c, optimizer.Config{MaxRetries: 3, InitialDelay: time.Millisecond, AttemptTimeout: time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("optimizer.New: %v", err)
	}

	result, err := client.Submit(context.Background(), "ver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OptimizedContent != "X" || result.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestListFiles(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/files" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{{
				"id": "file-1",
				"versions": []map[string]any{
					{"id": "v1", "filename": "cv.docx", "versionNumber": 1, "uploadedAt": "2024-05-01T10:00:00Z", "size": 2048},
					{"id": "v2", "filename": "cv.docx", "versionNumber": 2, "uploadedAt": "2024-06-01T10:00:00Z", "size": 4096, "changesDescription": "new role"},
				},
				"analytics": map[string]any{"totalVersions": 2, "lastAccessed": "2024-06-02T08:30:00Z"},
			}},
		})
	}))

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files.Len() != 1 {
		t.Fatalf("expected 1 file, got %d", files.Len())
	}
	if files.Items[0].Analytics.TotalVersions != 2 {
		t.Fatalf("unexpected analytics: %+v", files.Items[0].Analytics)
	}

	versions := files.Versions()
	if diff := cmp.Diff([]string{"v2", "v1"}, versions.IDs()); diff != "" {
		t.Fatalf("expected newest first (-want +got):\n%s", diff)
	}
	v2 := versions.FindByID("v2")
	if v2.FileID != "file-1" || v2.Size != 4096 || v2.ChangesDescription != "new role" {
		t.Fatalf("unexpected version: %+v", v2)
	}
	if !v2.UploadedAt.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected upload time %v", v2.UploadedAt)
	}
}

func TestListFilesWithoutFileIDs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{
					"versions": []map[string]any{
						{"id": "a1", "filename": "cv.docx", "versionNumber": 1, "uploadedAt": "2024-05-01T10:00:00Z"},
						{"id": "a2", "filename": "cv.docx", "versionNumber": 2, "uploadedAt": "2024-07-01T10:00:00Z"},
					},
					"analytics": map[string]any{"totalVersions": 2},
				},
				{
					"versions": []map[string]any{
						{"id": "b1", "filename": "letter.pdf", "versionNumber": 1, "uploadedAt": "2024-06-01T10:00:00Z"},
					},
					"analytics": map[string]any{"totalVersions": 1},
				},
			},
		})
	}))

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	type owner struct {
		ID        string
		FileID    string
		FileIndex int
	}
	var got []owner
	for _, v := range files.Versions().Items {
		got = append(got, owner{ID: v.ID, FileID: v.FileID, FileIndex: v.FileIndex})
	}

	want := []owner{
		{ID: "a2", FileIndex: 0},
		{ID: "b1", FileIndex: 1},
		{ID: "a1", FileIndex: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected versions (-want +got):\n%s", diff)
	}
}

func TestListFilesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	}))

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files.Len() != 0 || calls.Load() != 2 {
		t.Fatalf("expected a retried empty listing, got %d files after %d calls", files.Len(), calls.Load())
	}
}

func TestListFilesReportsEnvelopeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"success": false, "error": "session expired"})
	}))

	_, err := c.ListFiles(context.Background())
	if err == nil || !strings.Contains(err.Error(), "session expired") {
		t.Fatalf("expected envelope error, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/files/file-1/versions/v2/download":
			w.Header().Set("Content-Disposition", `attachment; filename="cv-v2.docx"`)
			_, _ = w.Write([]byte("docx-bytes"))
		case "/api/v1/files/file-1/download":
			_, _ = w.Write([]byte("latest"))
		default:
			http.NotFound(w, r)
		}
	}))

	got, err := c.Download(context.Background(), "file-1", "v2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Filename != "cv-v2.docx" || string(got.Content) != "docx-bytes" {
		t.Fatalf("unexpected download: %+v", got)
	}

	got, err = c.Download(context.Background(), "file-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Filename != defaultDownloadName {
		t.Fatalf("expected default filename, got %q", got.Filename)
	}

	if _, err := c.Download(context.Background(), "missing", ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{
			"status":      "healthy",
			"app_name":    "AI Resume Optimizer",
			"version":     "1.0.0",
			"api_version": "/api/v1",
		})
	}))

	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !health.Healthy() || health.AppName != "AI Resume Optimizer" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestTestOptimize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.docx")
	if err := os.WriteFile(path, []byte("fake docx"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "resume.docx" {
			t.Errorf("unexpected filename %q", header.Filename)
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		_, _ = w.Write([]byte("optimized docx"))
	}))

	got, err := c.TestOptimize(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Filename != defaultOptimizedName || string(got.Content) != "optimized docx" {
		t.Fatalf("unexpected download: %+v", got)
	}
}

func TestTestOptimizeErrors(t *testing.T) {
	if _, err := New(nil, "", DefaultHTTPConfig()).TestOptimize(context.Background(), "resume.pdf"); !errors.Is(err, ErrNotDocx) {
		t.Fatalf("expected ErrNotDocx, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "resume.DOCX")
	if err := os.WriteFile(path, []byte("fake"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Failed to optimize document"})
	}))

	_, err := c.TestOptimize(context.Background(), path)
	if err == nil || err.Error() != "Failed to optimize document" {
		t.Fatalf("expected server error message, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, []byte("fake pdf"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/files" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("unexpected authorization %q", got)
		}
		file, header, err := r.FormFile("resume")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "resume.pdf" {
			t.Errorf("unexpected filename %q", header.Filename)
		}

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"versions": []map[string]any{
					{"id": "v1", "filename": "resume.pdf", "versionNumber": 1, "uploadedAt": "2024-05-01T10:00:00Z", "size": 8},
				},
			},
		})
	}))

	got, err := c.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Versions) != 1 || got.Versions[0].ID != "v1" || got.Versions[0].Filename != "resume.pdf" {
		t.Fatalf("unexpected file: %+v", got)
	}
	if got.Versions[0].UploadedAt.IsZero() {
		t.Fatal("expected uploadedAt to be decoded")
	}
}

func TestUploadErrors(t *testing.T) {
	if _, err := New(nil, "", DefaultHTTPConfig()).Upload(context.Background(), "resume.txt"); !errors.Is(err, ErrUnsupportedUpload) {
		t.Fatalf("expected ErrUnsupportedUpload, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "resume.DOCX")
	if err := os.WriteFile(path, []byte("fake"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusBadRequest, map[string]any{"error": "File too large"})
			},
			want: "upload resume.DOCX: File too large",
		},
		{
			name: "bare status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			want: "upload resume.DOCX: HTTP error! status: 503",
		},
		{
			name: "missing data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
			},
			want: "upload resume.DOCX: invalid response format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Upload(context.Background(), path)
			if err == nil || err.Error() != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestAttachmentName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: "fallback"},
		{header: `attachment; filename="cv.docx"`, want: "cv.docx"},
		{header: `attachment; filename=cv.pdf`, want: "cv.pdf"},
		{header: `attachment; filename="../../etc/passwd"`, want: "passwd"},
		{header: `attachment`, want: "fallback"},
	}

	for _, tt := range tests {
		if got := attachmentName(tt.header, "fallback"); got != tt.want {
			t.Fatalf("attachmentName(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
