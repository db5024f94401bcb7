// ABOUTME: Host-mirror seeding endpoints: users, organizations, memberships, datasets.
// ABOUTME: Development-only surface; production deployments sync the directory out of band.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/auth"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/store"
)

// registerSeedRoutes wires up the directory seeding endpoints on the huma API.
// They are registered only in development mode: the routes mutate the org
// membership the permission model derives from, so exposing them in
// production would let any caller grant themselves an org-admin role.
// Production deployments own the directory on the host side.
func registerSeedRoutes(api huma.API, srv *Server) {
	if !srv.cfg.IsDevelopment() {
		return
	}

	huma.Register(api, huma.Operation{
		OperationID: "create-user",
		Method:      http.MethodPost,
		Path:        "/users",
		Summary:     "Create a directory user",
		Tags:        []string{"Directory"},
	}, srv.createUserHandler)

	huma.Register(api, huma.Operation{
		OperationID: "create-organization",
		Method:      http.MethodPost,
		Path:        "/organizations",
		Summary:     "Create a directory organization",
		Tags:        []string{"Directory"},
	}, srv.createOrganizationHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-organization",
		Method:      http.MethodGet,
		Path:        "/organizations/{org_id}",
		Summary:     "Get a directory organization",
		Tags:        []string{"Directory"},
	}, srv.getOrganizationHandler)

	huma.Register(api, huma.Operation{
		OperationID: "set-org-member",
		Method:      http.MethodPut,
		Path:        "/organizations/{org_id}/members/{user_id}",
		Summary:     "Add or update an organization member",
		Tags:        []string{"Directory"},
	}, srv.setOrgMemberHandler)

	huma.Register(api, huma.Operation{
		OperationID: "remove-org-member",
		Method:      http.MethodDelete,
		Path:        "/organizations/{org_id}/members/{user_id}",
		Summary:     "Remove an organization member",
		Tags:        []string{"Directory"},
	}, srv.removeOrgMemberHandler)

	huma.Register(api, huma.Operation{
		OperationID: "create-dataset",
		Method:      http.MethodPost,
		Path:        "/datasets",
		Summary:     "Create a dataset",
		Tags:        []string{"Directory"},
	}, srv.createDatasetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "issue-dev-token",
		Method:      http.MethodPost,
		Path:        "/auth/token",
		Summary:     "Issue a development access token",
		Tags:        []string{"Directory"},
	}, srv.issueDevTokenHandler)
}

// ── POST /users ───────────────────────────────────────────────────────────────

type createUserInput struct {
	Body struct {
		Name  string `json:"name" minLength:"1" doc:"Unique user name"`
		Email string `json:"email,omitempty" format:"email" doc:"Notification address"`
	}
}

type createUserOutput struct {
	Body struct {
		ID    uuid.UUID `json:"id"`
		Name  string    `json:"name"`
		Email string    `json:"email,omitempty"`
	}
}

func (srv *Server) createUserHandler(ctx context.Context, input *createUserInput) (*createUserOutput, error) {
	u, err := srv.store.CreateUser(ctx, input.Body.Name, input.Body.Email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	out := &createUserOutput{}
	out.Body.ID = u.ID
	out.Body.Name = u.Name
	out.Body.Email = u.Email
	return out, nil
}

// ── POST /organizations, GET /organizations/{org_id} ──────────────────────────

type createOrganizationInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" doc:"Unique organization name"`
	}
}

type organizationOutput struct {
	Body struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
}

func (srv *Server) createOrganizationHandler(ctx context.Context, input *createOrganizationInput) (*organizationOutput, error) {
	org, err := srv.store.CreateOrganization(ctx, input.Body.Name)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	out := &organizationOutput{}
	out.Body.ID = org.ID
	out.Body.Name = org.Name
	return out, nil
}

type getOrganizationInput struct {
	OrgID uuid.UUID `path:"org_id" doc:"Organization UUID"`
}

func (srv *Server) getOrganizationHandler(ctx context.Context, input *getOrganizationInput) (*organizationOutput, error) {
	org, err := srv.store.OrganizationByID(ctx, input.OrgID)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if org == nil {
		return nil, huma.Error404NotFound("organization not found")
	}
	out := &organizationOutput{}
	out.Body.ID = org.ID
	out.Body.Name = org.Name
	return out, nil
}

// ── PUT/DELETE /organizations/{org_id}/members/{user_id} ──────────────────────

type setOrgMemberInput struct {
	OrgID  uuid.UUID `path:"org_id" doc:"Organization UUID"`
	UserID uuid.UUID `path:"user_id" doc:"User UUID"`
	Body   struct {
		Role string `json:"role" enum:"admin,editor,member" doc:"Org role"`
	}
}

type memberOutput struct {
	Status int
}

func (srv *Server) setOrgMemberHandler(ctx context.Context, input *setOrgMemberInput) (*memberOutput, error) {
	if err := srv.store.SetOrgMember(ctx, input.OrgID, input.UserID, input.Body.Role); err != nil {
		return nil, fmt.Errorf("set org member: %w", err)
	}
	return &memberOutput{Status: http.StatusNoContent}, nil
}

type removeOrgMemberInput struct {
	OrgID  uuid.UUID `path:"org_id" doc:"Organization UUID"`
	UserID uuid.UUID `path:"user_id" doc:"User UUID"`
}

func (srv *Server) removeOrgMemberHandler(ctx context.Context, input *removeOrgMemberInput) (*memberOutput, error) {
	if err := srv.store.RemoveOrgMember(ctx, input.OrgID, input.UserID); err != nil {
		return nil, fmt.Errorf("remove org member: %w", err)
	}
	return &memberOutput{Status: http.StatusNoContent}, nil
}

// ── POST /datasets ────────────────────────────────────────────────────────────

type createDatasetInput struct {
	Body struct {
		Name      string    `json:"name" minLength:"1" doc:"Unique dataset name"`
		OwnerOrg  uuid.UUID `json:"owner_org,omitempty" doc:"Owning organization UUID; omit for org-less datasets"`
		Private   bool      `json:"private,omitempty" doc:"Private datasets are discoverable by owning-org members and collaborators only"`
		Resources []struct {
			Name       string `json:"name" minLength:"1"`
			Visibility string `json:"visibility,omitempty" doc:"package, editor*, owner*, or collaborator*; empty means package"`
		} `json:"resources,omitempty"`
	}
}

type createDatasetOutput struct {
	Body DatasetResponse
}

func (srv *Server) createDatasetHandler(ctx context.Context, input *createDatasetInput) (*createDatasetOutput, error) {
	resources := make([]store.NewResource, 0, len(input.Body.Resources))
	for _, r := range input.Body.Resources {
		resources = append(resources, store.NewResource{Name: r.Name, Visibility: r.Visibility})
	}
	ds, err := srv.store.CreateDatasetWithResources(ctx, input.Body.Name, input.Body.OwnerOrg, input.Body.Private, resources)
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	return &createDatasetOutput{Body: datasetToResponse(ds, ds.Resources)}, nil
}

// ── POST /auth/token (development only) ───────────────────────────────────────

type issueDevTokenInput struct {
	Body struct {
		UserID uuid.UUID `json:"user_id" doc:"User to issue a token for"`
	}
}

type issueDevTokenOutput struct {
	Body struct {
		AccessToken string `json:"access_token"`
	}
}

func (srv *Server) issueDevTokenHandler(ctx context.Context, input *issueDevTokenInput) (*issueDevTokenOutput, error) {
	u, err := srv.store.UserByID(ctx, input.Body.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, huma.Error404NotFound("user not found")
	}
	token, err := auth.IssueToken([]byte(srv.cfg.JWTSecret), u.ID, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	out := &issueDevTokenOutput{}
	out.Body.AccessToken = token
	return out, nil
}
