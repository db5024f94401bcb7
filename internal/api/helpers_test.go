// ABOUTME: Shared helpers for API integration tests: server bootstrap, tokens, requests.
// ABOUTME: Directory fixtures are seeded straight through the store; HTTP is for the op under test.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/auth"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/config"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/store"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/testutil"
)

const testJWTSecret = "test-secret"

// newTestServer starts a Postgres-backed API server for one test.
func newTestServer(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		JWTSecret:         testJWTSecret,
		AppEnv:            "development",
		RateLimitEvictTTL: time.Minute,
	}
	srv := NewServer(db, cfg, nil)
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return db, ts
}

// tokenFor issues a short-lived access token for userID.
func tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(testJWTSecret), userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// doJSON performs an HTTP request against ts. An empty token leaves the
// request anonymous; an empty body sends no payload. The caller must close
// the response body.
func doJSON(t *testing.T, ts *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Cookie", "access_token="+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// decodeBody decodes the response body into out and closes it.
func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// errorDetail reads the huma error model's detail field and closes the body.
func errorDetail(t *testing.T, resp *http.Response) string {
	t.Helper()
	var out struct {
		Detail string `json:"detail"`
	}
	decodeBody(t, resp, &out)
	return out.Detail
}

// seedOrgWithAdmin creates an organization with one admin user.
func seedOrgWithAdmin(t *testing.T, db *store.Store) (orgID, adminID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	org, err := db.CreateOrganization(ctx, "org-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	admin, err := db.CreateUser(ctx, "admin-"+uuid.NewString()[:8], "")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := db.SetOrgMember(ctx, org.ID, admin.ID, "admin"); err != nil {
		t.Fatalf("set admin member: %v", err)
	}
	return org.ID, admin.ID
}

// seedUser creates a directory user.
func seedUser(t *testing.T, db *store.Store, name string) uuid.UUID {
	t.Helper()
	u, err := db.CreateUser(context.Background(), name+"-"+uuid.NewString()[:8], "")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u.ID
}
