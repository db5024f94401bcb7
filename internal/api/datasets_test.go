// ABOUTME: Integration tests for dataset read, update, and search endpoints.
// ABOUTME: Covers discoverability 404s, per-capacity resource filtering, and label search.
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/store"
)

// seedPrivateDataset creates a private dataset with one resource per
// visibility bucket and returns it with resources populated.
func seedPrivateDataset(t *testing.T, db *store.Store, ownerOrg uuid.UUID) *collab.Dataset {
	t.Helper()
	ds, err := db.CreateDatasetWithResources(context.Background(), "filtered-ds", ownerOrg, true, []store.NewResource{
		{Name: "open.csv", Visibility: "package"},
		{Name: "drafts.csv", Visibility: "editor_only"},
		{Name: "internal.csv", Visibility: "owner_only"},
		{Name: "shared.csv", Visibility: "collaborator"},
	})
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	return ds
}

func resourceNames(ds DatasetResponse) []string {
	names := make([]string, 0, len(ds.Resources))
	for _, r := range ds.Resources {
		names = append(names, r.Name)
	}
	return names
}

func sameNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(got))
	for _, n := range got {
		seen[n] = true
	}
	for _, n := range want {
		if !seen[n] {
			return false
		}
	}
	return true
}

func TestGetDataset_ResourceFiltering(t *testing.T) {
	t.Parallel()
	db, ts := newTestServer(t)
	ctx := context.Background()

	orgID, adminID := seedOrgWithAdmin(t, db)
	ds := seedPrivateDataset(t, db, orgID)
	path := "/api/v1/datasets/" + ds.ID.String()

	limited := seedUser(t, db, "limited")
	if _, err := db.UpsertGrant(ctx, ds.ID, collab.PrincipalUser, limited, collab.CapacityLimitedMember); err != nil {
		t.Fatalf("seed grant: %v", err)
	}
	editorCollab := seedUser(t, db, "editor-collab")
	if _, err := db.UpsertGrant(ctx, ds.ID, collab.PrincipalUser, editorCollab, collab.CapacityEditor); err != nil {
		t.Fatalf("seed grant: %v", err)
	}

	// Anonymous callers cannot discover private datasets at all.
	resp := doJSON(t, ts, http.MethodGet, path, "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("anonymous get: got status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close() //nolint:errcheck

	cases := []struct {
		name  string
		token string
		want  []string
	}{
		{"limited member sees package only", tokenFor(t, limited), []string{"open.csv"}},
		{"editor collaborator sees all but owner", tokenFor(t, editorCollab), []string{"open.csv", "drafts.csv", "shared.csv"}},
		{"org admin sees everything", tokenFor(t, adminID), []string{"open.csv", "drafts.csv", "internal.csv", "shared.csv"}},
	}
	for _, tc := range cases {
		resp := doJSON(t, ts, http.MethodGet, path, tc.token, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: got status %d, want 200", tc.name, resp.StatusCode)
			resp.Body.Close() //nolint:errcheck
			continue
		}
		var out DatasetResponse
		decodeBody(t, resp, &out)
		if got := resourceNames(out); !sameNames(got, tc.want) {
			t.Errorf("%s: resources = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUpdateDataset(t *testing.T) {
	t.Parallel()
	db, ts := newTestServer(t)
	ctx := context.Background()

	orgID, _ := seedOrgWithAdmin(t, db)
	ds, err := db.CreateDataset(ctx, "patch-ds", orgID, true)
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	editorCollab := seedUser(t, db, "editor-collab")
	if _, err := db.UpsertGrant(ctx, ds.ID, collab.PrincipalUser, editorCollab, collab.CapacityEditor); err != nil {
		t.Fatalf("seed editor grant: %v", err)
	}
	memberCollab := seedUser(t, db, "member-collab")
	if _, err := db.UpsertGrant(ctx, ds.ID, collab.PrincipalUser, memberCollab, collab.CapacityMember); err != nil {
		t.Fatalf("seed member grant: %v", err)
	}
	path := "/api/v1/datasets/" + ds.ID.String()

	// A user who cannot discover the dataset gets the same 404 a GET would
	// return, not a 403 revealing that the dataset exists.
	stranger := seedUser(t, db, "stranger")
	resp := doJSON(t, ts, http.MethodPatch, path, tokenFor(t, stranger), `{"name":"renamed"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("stranger patch: got status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close() //nolint:errcheck

	resp = doJSON(t, ts, http.MethodPatch, path, tokenFor(t, memberCollab), `{"name":"renamed"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("member patch: got status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close() //nolint:errcheck

	resp = doJSON(t, ts, http.MethodPatch, path, tokenFor(t, editorCollab), `{"name":"renamed","private":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("editor patch: got status %d, want 200", resp.StatusCode)
	}
	var out DatasetResponse
	decodeBody(t, resp, &out)
	if out.Name != "renamed" || out.Private {
		t.Errorf("patched dataset = %+v, want renamed public", out)
	}
}

func TestSearchDatasets(t *testing.T) {
	t.Parallel()
	db, ts := newTestServer(t)
	ctx := context.Background()

	orgID, _ := seedOrgWithAdmin(t, db)
	public, err := db.CreateDataset(ctx, "public-ds", orgID, false)
	if err != nil {
		t.Fatalf("create public dataset: %v", err)
	}
	private, err := db.CreateDataset(ctx, "private-ds", orgID, true)
	if err != nil {
		t.Fatalf("create private dataset: %v", err)
	}
	collaborator := seedUser(t, db, "searcher")
	if _, err := db.UpsertGrant(ctx, private.ID, collab.PrincipalUser, collaborator, collab.CapacityLimitedMember); err != nil {
		t.Fatalf("seed grant: %v", err)
	}

	list := func(token, query string) []DatasetResponse {
		t.Helper()
		resp := doJSON(t, ts, http.MethodGet, "/api/v1/datasets"+query, token, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("search: got status %d, want 200", resp.StatusCode)
		}
		var out struct {
			Datasets []DatasetResponse `json:"datasets"`
		}
		decodeBody(t, resp, &out)
		return out.Datasets
	}

	anon := list("", "")
	if len(anon) != 1 || anon[0].ID != public.ID {
		t.Errorf("anonymous search = %+v, want only the public dataset", anon)
	}

	mine := list(tokenFor(t, collaborator), "")
	if len(mine) != 2 {
		t.Errorf("collaborator search: got %d datasets, want 2", len(mine))
	}

	narrowed := list(tokenFor(t, collaborator), "?label=collaborator-"+private.ID.String())
	if len(narrowed) != 1 || narrowed[0].ID != private.ID {
		t.Errorf("label search = %+v, want only the collaborated dataset", narrowed)
	}
}

func TestDevTokenRoute(t *testing.T) {
	t.Parallel()
	db, ts := newTestServer(t)

	userID := seedUser(t, db, "dev")
	resp := doJSON(t, ts, http.MethodPost, "/api/v1/auth/token", "", `{"user_id":"`+userID.String()+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("issue token: got status %d, want 200", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, resp, &out)
	if out.AccessToken == "" {
		t.Fatal("empty access token")
	}

	// The minted token authenticates API calls.
	resp = doJSON(t, ts, http.MethodGet, "/api/v1/users/"+userID.String()+"/collaborations", out.AccessToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("token use: got status %d, want 200", resp.StatusCode)
	}
	resp.Body.Close() //nolint:errcheck
}
