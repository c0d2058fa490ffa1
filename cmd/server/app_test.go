package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "stagehand/internal/jwt_token"
	"stagehand/internal/platform/config"
	"stagehand/pkg/platform/middleware/admin"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Server.JWTSigningKey = "test-key"
	cfg.Server.AdminToken = "admin-secret"
	cfg.Ingest.DefaultRegion = "GB"
	return cfg
}

func newTestApp(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	cfg := testConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := build(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { a.close(log) })

	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	token, err := jwtService.GenerateOperatorToken("ops@example.com", "", time.Hour)
	require.NoError(t, err)
	return srv, token
}

func call(t *testing.T, srv *httptest.Server, token, method, path, contentType, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.HasPrefix(path, "/admin/") {
		req.Header.Set(admin.HeaderAdminToken, "admin-secret")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestServer_IngestOverHTTP(t *testing.T) {
	srv, token := newTestApp(t)

	status, _ := call(t, srv, token, http.MethodPost, "/batches", "application/json",
		`{"batch_id":"crm-1","batch_kind":"customer","source_system":"crm"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, srv, token, http.MethodPost, "/batches/crm-1/records", "text/csv",
		"email,first_name,last_name,country\nada@example.com,Ada,Lovelace,United Kingdom\n,Nobody,,\n")
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 2, body["staged"])

	status, body = call(t, srv, token, http.MethodPost, "/batches/crm-1/run", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 1, body["processed"])
	assert.EqualValues(t, 1, body["failed"])

	status, body = call(t, srv, token, http.MethodGet, "/records/failed?batch_id=crm-1", "", "")
	require.Equal(t, http.StatusOK, status)
	failed := body["records"].([]any)
	require.Len(t, failed, 1)
	assert.Equal(t, "email is required", failed[0].(map[string]any)["error_message"])

	status, body = call(t, srv, token, http.MethodGet, "/batches/crm-1", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 50.0, body["success_rate_percent"], 0.001)

	var latest map[string]any
	require.Eventually(t, func() bool {
		status, body := call(t, srv, token, http.MethodGet, "/audit/batch_run/crm-1", "", "")
		if status != http.StatusOK {
			return false
		}
		events, _ := body["events"].([]any)
		if len(events) == 0 {
			return false
		}
		latest = events[0].(map[string]any)
		return latest["event_kind"] == "completed"
	}, 2*time.Second, 20*time.Millisecond, "audit delivery is asynchronous")
	assert.Equal(t, "ops@example.com", latest["actor"])
	assert.Equal(t, "stagehand", latest["application"])

	status, body = call(t, srv, token, http.MethodPost, "/admin/sweep", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["deleted_records"], "fresh records are retained")
}

func TestServer_RejectsMissingToken(t *testing.T) {
	srv, _ := newTestApp(t)

	status, body := call(t, srv, "", http.MethodGet, "/batches", "", "")

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv, token := newTestApp(t)

	status, body := call(t, srv, token, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])

	call(t, srv, token, http.MethodGet, "/batches", "", "")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "go_goroutines")
	assert.Contains(t, string(raw), `route="/batches"`)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.ErrorIs(t, ignoreCanceled(context.DeadlineExceeded), context.DeadlineExceeded)
}
