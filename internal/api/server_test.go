// ABOUTME: Integration tests for the server plumbing around the API routes.
// ABOUTME: Health check, security headers, metrics exposure, and the write rate limit.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/config"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/testutil"
)

func TestHealthz(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/healthz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: got status %d, want 200", resp.StatusCode)
	}
	var out healthResponse
	decodeBody(t, resp, &out)
	if out.Status != "ok" {
		t.Errorf("status = %q, want ok", out.Status)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/healthz", "", "")
	defer resp.Body.Close() //nolint:errcheck
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/metrics", "", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics: got status %d, want 200", resp.StatusCode)
	}
}

// TestProductionHidesDirectoryRoutes locks in that a production-mode server
// does not register the directory seeding surface. The membership route in
// particular writes the org roles every permission check derives from, so an
// open registration would let any caller make themselves an org admin.
func TestProductionHidesDirectoryRoutes(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		JWTSecret:         testJWTSecret,
		AppEnv:            "production",
		RateLimitEvictTTL: time.Minute,
	}
	srv := NewServer(db, cfg, nil)
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	orgID, _ := seedOrgWithAdmin(t, db)
	stranger := seedUser(t, db, "stranger")

	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodPut, fmt.Sprintf("/api/v1/organizations/%s/members/%s", orgID, stranger), `{"role":"admin"}`},
		{http.MethodPost, "/api/v1/users", `{"name":"nope"}`},
		{http.MethodPost, "/api/v1/organizations", `{"name":"nope"}`},
		{http.MethodPost, "/api/v1/datasets", `{"name":"nope"}`},
		{http.MethodPost, "/api/v1/auth/token", fmt.Sprintf(`{"user_id":%q}`, stranger)},
	} {
		resp := doJSON(t, ts, tc.method, tc.path, "", tc.body)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s: got status %d, want 404", tc.method, tc.path, resp.StatusCode)
		}
		resp.Body.Close() //nolint:errcheck
	}

	// The membership write must not have landed.
	role, err := db.OrgMemberRole(context.Background(), orgID, stranger)
	if err != nil {
		t.Fatalf("OrgMemberRole: %v", err)
	}
	if role != "" {
		t.Errorf("stranger acquired role %q through a hidden route", role)
	}

	// The grant routes themselves stay up in production.
	resp := doJSON(t, ts, http.MethodGet, "/api/v1/datasets", "", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("search in production: got status %d, want 200", resp.StatusCode)
	}
}

func TestWriteRateLimit(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	// Burst of 10 writes per IP; the 11th is rejected. Invalid bodies still
	// count — the limiter sits in front of request validation.
	var last int
	for i := 0; i < 12; i++ {
		resp := doJSON(t, ts, http.MethodPost, "/api/v1/auth/token", "", `{}`)
		last = resp.StatusCode
		resp.Body.Close() //nolint:errcheck
		if last == http.StatusTooManyRequests {
			break
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("rate limit never tripped; last status %d", last)
	}

	// Reads are exempt.
	resp := doJSON(t, ts, http.MethodGet, "/api/v1/datasets", "", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("read after limit: got status %d, want 200", resp.StatusCode)
	}
}
