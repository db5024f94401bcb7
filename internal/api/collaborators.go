// ABOUTME: Collaborator grant endpoints: create, delete, and the three listings.
// ABOUTME: Thin huma handlers over collab.Service; the service owns all authorization.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
)

// registerCollaboratorRoutes wires up the grant operations on the huma API.
func registerCollaboratorRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "create-collaborator",
		Method:      http.MethodPost,
		Path:        "/datasets/{dataset_id}/collaborators",
		Summary:     "Add or update a collaborator",
		Description: "Grants a user or organization a capacity on the dataset, updating the capacity if the grant already exists.",
		Tags:        []string{"Collaborators"},
	}, srv.createCollaboratorHandler)

	huma.Register(api, huma.Operation{
		OperationID: "delete-collaborator",
		Method:      http.MethodDelete,
		Path:        "/datasets/{dataset_id}/collaborators/{principal_type}/{principal_id}",
		Summary:     "Remove a collaborator",
		Tags:        []string{"Collaborators"},
	}, srv.deleteCollaboratorHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-collaborators",
		Method:      http.MethodGet,
		Path:        "/datasets/{dataset_id}/collaborators",
		Summary:     "List a dataset's collaborators",
		Tags:        []string{"Collaborators"},
	}, srv.listCollaboratorsHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-user-collaborations",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/collaborations",
		Summary:     "List a user's collaborations",
		Description: "Datasets the user collaborates on, directly or through an organization. Self-lookup only.",
		Tags:        []string{"Collaborators"},
	}, srv.listUserCollaborationsHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-org-collaborations",
		Method:      http.MethodGet,
		Path:        "/organizations/{org_id}/collaborations",
		Summary:     "List an organization's collaborations",
		Tags:        []string{"Collaborators"},
	}, srv.listOrgCollaborationsHandler)
}

// ── Response types ────────────────────────────────────────────────────────────

// GrantResponse is the API representation of one collaborator grant.
type GrantResponse struct {
	DatasetID     uuid.UUID `json:"dataset_id"`
	PrincipalType string    `json:"principal_type"`
	PrincipalID   uuid.UUID `json:"principal_id"`
	Capacity      string    `json:"capacity"`
	Modified      string    `json:"modified"` // RFC3339
}

func grantToResponse(g collab.Grant) GrantResponse {
	return GrantResponse{
		DatasetID:     g.DatasetID,
		PrincipalType: string(g.PrincipalType),
		PrincipalID:   g.PrincipalID,
		Capacity:      string(g.Capacity),
		Modified:      g.Modified.UTC().Format(time.RFC3339),
	}
}

// CollaborationResponse is one dataset a principal collaborates on, as seen
// from the principal's side.
type CollaborationResponse struct {
	DatasetID uuid.UUID `json:"dataset_id"`
	Type      string    `json:"type"`
	Capacity  string    `json:"capacity"`
	Modified  string    `json:"modified"` // RFC3339
}

func collaborationsToResponse(cs []collab.Collaboration) []CollaborationResponse {
	out := make([]CollaborationResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, CollaborationResponse{
			DatasetID: c.DatasetID,
			Type:      string(c.Type),
			Capacity:  string(c.Capacity),
			Modified:  c.Modified.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// ── POST /datasets/{dataset_id}/collaborators ─────────────────────────────────

type createCollaboratorInput struct {
	authParams
	DatasetID uuid.UUID `path:"dataset_id" doc:"Dataset UUID"`
	Body      struct {
		PrincipalType string    `json:"principal_type" enum:"user,org" doc:"Kind of principal being granted"`
		PrincipalID   uuid.UUID `json:"principal_id" doc:"User or organization UUID"`
		Capacity      string    `json:"capacity" doc:"Granted capacity: editor, member, limited_member, or inherit (org grants only)"`
	}
}

type createCollaboratorOutput struct {
	Body GrantResponse
}

func (srv *Server) createCollaboratorHandler(ctx context.Context, input *createCollaboratorInput) (*createCollaboratorOutput, error) {
	requester, err := srv.requester(input.authParams)
	if err != nil {
		return nil, err
	}

	g, err := srv.service.Create(ctx, requester, input.DatasetID,
		collab.PrincipalType(input.Body.PrincipalType), input.Body.PrincipalID,
		collab.Capacity(input.Body.Capacity))
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &createCollaboratorOutput{Body: grantToResponse(*g)}, nil
}

// ── DELETE /datasets/{dataset_id}/collaborators/{principal_type}/{principal_id} ──

type deleteCollaboratorInput struct {
	authParams
	DatasetID     uuid.UUID `path:"dataset_id" doc:"Dataset UUID"`
	PrincipalType string    `path:"principal_type" enum:"user,org" doc:"Kind of principal"`
	PrincipalID   uuid.UUID `path:"principal_id" doc:"User or organization UUID"`
}

type deleteCollaboratorOutput struct {
	Status int
}

func (srv *Server) deleteCollaboratorHandler(ctx context.Context, input *deleteCollaboratorInput) (*deleteCollaboratorOutput, error) {
	requester, err := srv.requester(input.authParams)
	if err != nil {
		return nil, err
	}

	err = srv.service.Delete(ctx, requester, input.DatasetID,
		collab.PrincipalType(input.PrincipalType), input.PrincipalID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &deleteCollaboratorOutput{Status: http.StatusNoContent}, nil
}

// ── GET /datasets/{dataset_id}/collaborators ──────────────────────────────────

type listCollaboratorsInput struct {
	authParams
	DatasetID     uuid.UUID `path:"dataset_id" doc:"Dataset UUID"`
	PrincipalType string    `query:"principal_type" enum:",user,org" doc:"Restrict to one principal type"`
	Capacity      string    `query:"capacity" doc:"Restrict to one capacity"`
}

type listCollaboratorsOutput struct {
	Body struct {
		Collaborators []GrantResponse `json:"collaborators"`
	}
}

func (srv *Server) listCollaboratorsHandler(ctx context.Context, input *listCollaboratorsInput) (*listCollaboratorsOutput, error) {
	requester, err := srv.requester(input.authParams)
	if err != nil {
		return nil, err
	}

	grants, err := srv.service.List(ctx, requester, input.DatasetID,
		collab.PrincipalType(input.PrincipalType), collab.Capacity(input.Capacity))
	if err != nil {
		return nil, mapDomainError(err)
	}

	out := &listCollaboratorsOutput{}
	out.Body.Collaborators = make([]GrantResponse, 0, len(grants))
	for _, g := range grants {
		out.Body.Collaborators = append(out.Body.Collaborators, grantToResponse(g))
	}
	return out, nil
}

// ── GET /users/{user_id}/collaborations ───────────────────────────────────────

type listUserCollaborationsInput struct {
	authParams
	UserID        uuid.UUID `path:"user_id" doc:"User UUID (must be the requester)"`
	PrincipalType string    `query:"principal_type" enum:",user,org" doc:"Restrict to direct or org-mediated grants"`
	Capacity      string    `query:"capacity" doc:"Restrict to one effective capacity"`
	Permission    string    `query:"permission" doc:"Only capacities satisfying this permission (default manage_group)"`
}

type listUserCollaborationsOutput struct {
	Body struct {
		Collaborations []CollaborationResponse `json:"collaborations"`
	}
}

func (srv *Server) listUserCollaborationsHandler(ctx context.Context, input *listUserCollaborationsInput) (*listUserCollaborationsOutput, error) {
	requester, err := srv.requester(input.authParams)
	if err != nil {
		return nil, err
	}

	collabs, err := srv.service.ListForUser(ctx, requester, input.UserID, collab.ListForUserFilter{
		PrincipalType: collab.PrincipalType(input.PrincipalType),
		Capacity:      collab.Capacity(input.Capacity),
		Permission:    input.Permission,
	})
	if err != nil {
		return nil, mapDomainError(err)
	}

	out := &listUserCollaborationsOutput{}
	out.Body.Collaborations = collaborationsToResponse(collabs)
	return out, nil
}

// ── GET /organizations/{org_id}/collaborations ────────────────────────────────

type listOrgCollaborationsInput struct {
	authParams
	OrgID    uuid.UUID `path:"org_id" doc:"Organization UUID"`
	Capacity string    `query:"capacity" doc:"Restrict to one capacity"`
}

type listOrgCollaborationsOutput struct {
	Body struct {
		Collaborations []CollaborationResponse `json:"collaborations"`
	}
}

func (srv *Server) listOrgCollaborationsHandler(ctx context.Context, input *listOrgCollaborationsInput) (*listOrgCollaborationsOutput, error) {
	requester, err := srv.requester(input.authParams)
	if err != nil {
		return nil, err
	}

	collabs, err := srv.service.ListForOrganization(ctx, requester, input.OrgID, collab.Capacity(input.Capacity))
	if err != nil {
		return nil, mapDomainError(err)
	}

	out := &listOrgCollaborationsOutput{}
	out.Body.Collaborations = collaborationsToResponse(collabs)
	return out, nil
}
