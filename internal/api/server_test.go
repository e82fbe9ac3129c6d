package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/config"
	"github.com/VishnuVamsi7/DocReporter/internal/pipeline"
)

const testAPIKey = "test-api-key"

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubBackend restates the required entities within budget, so every
// unit compresses cleanly.
type stubBackend struct{}

func (stubBackend) Compress(_ context.Context, req compress.Request) (*compress.Response, error) {
	text := "Condensed: " + strings.Join(req.RequiredEntities, ", ") + "."
	if len([]rune(text)) > req.TargetChars {
		text = compress.Truncate(req.Text, req.TargetChars)
	}
	return &compress.Response{Text: text}, nil
}

func newTestServer(t *testing.T, startWorkers bool) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:             testAPIKey,
		WorkerCount:        1,
		MaxQueueSize:       8,
		MaxConcurrentUnits: 2,
		MaxUploadBytes:     1 << 20,
		GlobalBudget:       15000,
		JobTTL:             time.Hour,
	}
	engine := compress.NewEngine(stubBackend{}, nil, compress.NewStats(time.Minute), testLog, compress.DefaultEngineConfig())
	orch := pipeline.NewOrchestrator(cfg, config.Tuning{}, engine, testLog)
	if startWorkers {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}
	return NewServer(orch, engine, "stub", testLog, cfg)
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func testBlocks() []block.ContentBlock {
	return []block.ContentBlock{
		{Index: 0, Kind: block.KindHeading, Page: 1, HeadingLevel: 1, Text: "Summary"},
		{Index: 1, Kind: block.KindText, Page: 1, Text: "Acme Corp revenue grew 18% to $4.2M this quarter."},
	}
}

func submitBlocks(t *testing.T, s *Server) string {
	t.Helper()
	body, err := json.Marshal(blocksRequest{Title: "Report", Blocks: testBlocks()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/reports/blocks", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	jobID, _ := resp["job_id"].(string)
	require.NotEmpty(t, jobID)
	return jobID
}

func waitForStatus(t *testing.T, s *Server, jobID string, want pipeline.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/reports/"+jobID+"/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		status, _ := resp["status"].(string)
		if status == string(want) {
			return
		}
		if status == string(pipeline.StatusFailed) {
			t.Fatalf("job failed: %s", rec.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, false)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, false)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/backend", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats/backend", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/stats/backend", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitBlocksAndFetchReport(t *testing.T) {
	s := newTestServer(t, true)
	jobID := submitBlocks(t, s)
	waitForStatus(t, s, jobID, pipeline.StatusCompleted)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/reports/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Report", doc["title"])

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/reports/"+jobID+"?format=markdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "# Report")
}

func TestSubmitBlocksValidation(t *testing.T) {
	s := newTestServer(t, false)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/reports/blocks", strings.NewReader(`{"title":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/reports/blocks", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFileUnsupportedType(t *testing.T) {
	s := newTestServer(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "malware.exe")
	require.NoError(t, err)
	_, err = fw.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := authedRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestReportNotReady(t *testing.T) {
	// No workers running, so the job stays queued.
	s := newTestServer(t, false)
	jobID := submitBlocks(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/reports/"+jobID, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUnknownJob(t *testing.T) {
	s := newTestServer(t, false)
	for _, path := range []string{"/api/reports/nope/status", "/api/reports/nope"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, authedRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestBackendStats(t *testing.T) {
	s := newTestServer(t, false)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/stats/backend", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stub", resp["backend"])
}
