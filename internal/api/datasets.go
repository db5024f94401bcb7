// ABOUTME: Dataset read/update endpoints and the label-intersection search.
// ABOUTME: Resource lists pass through the resolver; hidden resources are dropped, not errored.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
)

// registerDatasetRoutes wires up the dataset endpoints on the huma API.
func registerDatasetRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "get-dataset",
		Method:      http.MethodGet,
		Path:        "/datasets/{dataset_id}",
		Summary:     "Get a dataset",
		Description: "Returns the dataset with its visible resources. Resources hidden from the requester are omitted.",
		Tags:        []string{"Datasets"},
	}, srv.getDatasetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "update-dataset",
		Method:      http.MethodPatch,
		Path:        "/datasets/{dataset_id}",
		Summary:     "Update a dataset",
		Description: "Allowed for owning-org editors and for editor-capacity collaborators.",
		Tags:        []string{"Datasets"},
	}, srv.updateDatasetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "search-datasets",
		Method:      http.MethodGet,
		Path:        "/datasets",
		Summary:     "Search datasets",
		Description: "Returns the datasets discoverable by the requester via label intersection: public datasets, the requester's organizations' datasets, and collaborated datasets.",
		Tags:        []string{"Datasets"},
	}, srv.searchDatasetsHandler)
}

// ── Response types ────────────────────────────────────────────────────────────

// ResourceResponse is the API representation of one dataset resource.
type ResourceResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Visibility string    `json:"visibility"`
}

// DatasetResponse is the API representation of a dataset. OwnerOrg is omitted
// for datasets without an owning organization.
type DatasetResponse struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	OwnerOrg  *uuid.UUID         `json:"owner_org,omitempty"`
	Private   bool               `json:"private"`
	Resources []ResourceResponse `json:"resources"`
}

func datasetToResponse(ds *collab.Dataset, resources []collab.Resource) DatasetResponse {
	resp := DatasetResponse{
		ID:        ds.ID,
		Name:      ds.Name,
		Private:   ds.Private,
		Resources: make([]ResourceResponse, 0, len(resources)),
	}
	if ds.OwnerOrg != uuid.Nil {
		org := ds.OwnerOrg
		resp.OwnerOrg = &org
	}
	for _, r := range resources {
		resp.Resources = append(resp.Resources, ResourceResponse{
			ID:         r.ID,
			Name:       r.Name,
			Visibility: r.Visibility,
		})
	}
	return resp
}

// ── GET /datasets/{dataset_id} ────────────────────────────────────────────────

type getDatasetInput struct {
	authParams
	DatasetID uuid.UUID `path:"dataset_id" doc:"Dataset UUID"`
}

type getDatasetOutput struct {
	Body DatasetResponse
}

func (srv *Server) getDatasetHandler(ctx context.Context, input *getDatasetInput) (*getDatasetOutput, error) {
	requester, err := srv.optionalRequester(input.authParams)
	if err != nil {
		return nil, err
	}

	ds, err := srv.store.DatasetByID(ctx, input.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if ds == nil {
		return nil, huma.Error404NotFound("dataset not found")
	}

	// Undiscoverable datasets 404 rather than 403: their existence is not
	// disclosed to outsiders.
	visible, err := srv.discoverable(ctx, requester, ds)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, huma.Error404NotFound("dataset not found")
	}

	resources, err := srv.resolver.FilterVisibleResources(ctx, requester, ds)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &getDatasetOutput{Body: datasetToResponse(ds, resources)}, nil
}

// ── PATCH /datasets/{dataset_id} ──────────────────────────────────────────────

type updateDatasetInput struct {
	authParams
	DatasetID uuid.UUID `path:"dataset_id" doc:"Dataset UUID"`
	Body      struct {
		Name    *string `json:"name,omitempty" doc:"New dataset name"`
		Private *bool   `json:"private,omitempty" doc:"New private flag"`
	}
}

type updateDatasetOutput struct {
	Body DatasetResponse
}

func (srv *Server) updateDatasetHandler(ctx context.Context, input *updateDatasetInput) (*updateDatasetOutput, error) {
	requester, err := srv.requester(input.authParams)
	if err != nil {
		return nil, err
	}

	ds, err := srv.store.DatasetByID(ctx, input.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if ds == nil {
		return nil, huma.Error404NotFound("dataset not found")
	}

	// Same existence rule as the read path: a dataset the requester cannot
	// discover 404s here too, so a 403 never reveals what a GET would hide.
	visible, err := srv.discoverable(ctx, requester, ds)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, huma.Error404NotFound("dataset not found")
	}

	ok, err := srv.resolver.CanUpdateDataset(ctx, requester, ds)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if !ok {
		return nil, huma.Error403Forbidden(
			fmt.Sprintf("user %s is not authorized to update dataset %s", requester, ds.ID))
	}

	name := ds.Name
	if input.Body.Name != nil {
		name = *input.Body.Name
	}
	private := ds.Private
	if input.Body.Private != nil {
		private = *input.Body.Private
	}

	updated, err := srv.store.UpdateDataset(ctx, ds.ID, name, private)
	if err != nil {
		return nil, fmt.Errorf("update dataset: %w", err)
	}
	if updated == nil {
		return nil, huma.Error404NotFound("dataset not found")
	}

	resources, err := srv.resolver.FilterVisibleResources(ctx, requester, updated)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &updateDatasetOutput{Body: datasetToResponse(updated, resources)}, nil
}

// ── GET /datasets ─────────────────────────────────────────────────────────────

type searchDatasetsInput struct {
	authParams
	Label string `query:"label" doc:"Restrict to datasets carrying this visibility label"`
}

type searchDatasetsOutput struct {
	Body struct {
		Datasets []DatasetResponse `json:"datasets"`
	}
}

func (srv *Server) searchDatasetsHandler(ctx context.Context, input *searchDatasetsInput) (*searchDatasetsOutput, error) {
	requester, err := srv.optionalRequester(input.authParams)
	if err != nil {
		return nil, err
	}

	userLabels, err := srv.labeler.UserLabels(ctx, requester)
	if err != nil {
		return nil, fmt.Errorf("user labels: %w", err)
	}

	datasets, err := srv.store.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	out := &searchDatasetsOutput{}
	out.Body.Datasets = make([]DatasetResponse, 0, len(datasets))
	for i := range datasets {
		ds := datasets[i]
		dsLabels := srv.labeler.DatasetLabels(&ds)
		if !collab.Intersects(dsLabels, userLabels) {
			continue
		}
		if input.Label != "" && !containsLabel(dsLabels, input.Label) {
			continue
		}
		out.Body.Datasets = append(out.Body.Datasets, datasetToResponse(&ds, nil))
	}
	return out, nil
}

// discoverable reports whether the requester's and dataset's label sets
// intersect.
func (srv *Server) discoverable(ctx context.Context, requester uuid.UUID, ds *collab.Dataset) (bool, error) {
	userLabels, err := srv.labeler.UserLabels(ctx, requester)
	if err != nil {
		return false, fmt.Errorf("user labels: %w", err)
	}
	return collab.Intersects(srv.labeler.DatasetLabels(ds), userLabels), nil
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
