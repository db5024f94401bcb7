// ABOUTME: Permission resolver — the decision engine behind the grant layer.
// ABOUTME: Chains onto the host's baseline checks; never widens baseline read access.
package collab

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolverDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "collabd_resolver_decisions_total",
	Help: "Permission resolver decisions by check and outcome.",
}, []string{"check", "outcome"})

// Resolver decides, given a user and a dataset or resource, whether an
// operation is allowed. It consults the host directory, the host's baseline
// authorization, and the grant store (read-only).
type Resolver struct {
	host   Directory
	base   Baseline
	grants GrantStore
}

// NewResolver creates a Resolver.
func NewResolver(host Directory, base Baseline, grants GrantStore) *Resolver {
	return &Resolver{host: host, base: base, grants: grants}
}

// CanManageCollaborators reports whether the user may add, remove, or list
// collaborators on the dataset. True only when the dataset has an owning
// organization and the user holds member-management rights in it. No
// collaborator grant confers this — a collaborator must not be able to grant
// further rights.
func (r *Resolver) CanManageCollaborators(ctx context.Context, userID uuid.UUID, ds *Dataset) (bool, error) {
	if ds.OwnerOrg == uuid.Nil {
		return r.decide("manage_collaborators", false), nil
	}
	ok, err := r.host.HasOrgPermission(ctx, userID, ds.OwnerOrg, PermMembership)
	if err != nil {
		return false, fmt.Errorf("check org permission: %w", err)
	}
	return r.decide("manage_collaborators", ok), nil
}

// CanUpdateDataset reports whether the user may update the dataset: the
// host's baseline check first, and if that denies, an editor-capacity
// collaborator grant as a second path to the same permission.
func (r *Resolver) CanUpdateDataset(ctx context.Context, userID uuid.UUID, ds *Dataset) (bool, error) {
	ok, err := r.base.CanUpdateDataset(ctx, userID, ds)
	if err != nil {
		return false, fmt.Errorf("baseline update check: %w", err)
	}
	if ok {
		return r.decide("update_dataset", true), nil
	}

	ok, err = r.collaboratesOn(ctx, userID, ds.ID, []string{string(CapacityEditor)})
	if err != nil {
		return false, err
	}
	return r.decide("update_dataset", ok), nil
}

// CanShowResource reports whether the user may read the resource. The host's
// baseline read check must pass first — this system only gates further. The
// resource's visibility attribute then selects the extra gate:
//
//   - package: no extra check.
//   - editor*: dataset_update via owning-org role, else via collaborator grant.
//   - owner*: read via owning-org role; collaborator grants never satisfy it.
//   - anything else: read via owning-org role, else via collaborator grant.
func (r *Resolver) CanShowResource(ctx context.Context, userID uuid.UUID, ds *Dataset, res *Resource) (bool, error) {
	ok, err := r.base.CanReadResource(ctx, userID, ds, res)
	if err != nil {
		return false, fmt.Errorf("baseline read check: %w", err)
	}
	if !ok {
		return r.decide("show_resource", false), nil
	}

	switch ParseVisibility(res.Visibility) {
	case VisibilityPackage:
		return r.decide("show_resource", true), nil

	case VisibilityEditor:
		ok, err := r.orgOrCollaborator(ctx, userID, ds, PermDatasetUpdate)
		if err != nil {
			return false, err
		}
		return r.decide("show_resource", ok), nil

	case VisibilityOwner:
		ok, err := r.hasOwnerOrgPermission(ctx, userID, ds, PermRead)
		if err != nil {
			return false, err
		}
		return r.decide("show_resource", ok), nil

	default: // VisibilityCollaborator
		ok, err := r.orgOrCollaborator(ctx, userID, ds, PermRead)
		if err != nil {
			return false, err
		}
		return r.decide("show_resource", ok), nil
	}
}

// FilterVisibleResources returns the subset of the dataset's resources the
// user may read. Hidden resources are dropped silently — the dataset read
// itself still succeeds.
func (r *Resolver) FilterVisibleResources(ctx context.Context, userID uuid.UUID, ds *Dataset) ([]Resource, error) {
	visible := make([]Resource, 0, len(ds.Resources))
	for i := range ds.Resources {
		res := ds.Resources[i]
		ok, err := r.CanShowResource(ctx, userID, ds, &res)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, res)
		}
	}
	return visible, nil
}

// orgOrCollaborator allows via an owning-org role satisfying the permission,
// falling back to a collaborator grant whose capacity satisfies it.
func (r *Resolver) orgOrCollaborator(ctx context.Context, userID uuid.UUID, ds *Dataset, permission string) (bool, error) {
	ok, err := r.hasOwnerOrgPermission(ctx, userID, ds, permission)
	if err != nil || ok {
		return ok, err
	}
	return r.collaboratesOn(ctx, userID, ds.ID, r.host.RolesWithPermission(permission))
}

func (r *Resolver) hasOwnerOrgPermission(ctx context.Context, userID uuid.UUID, ds *Dataset, permission string) (bool, error) {
	if ds.OwnerOrg == uuid.Nil || userID == uuid.Nil {
		return false, nil
	}
	ok, err := r.host.HasOrgPermission(ctx, userID, ds.OwnerOrg, permission)
	if err != nil {
		return false, fmt.Errorf("check org permission: %w", err)
	}
	return ok, nil
}

// collaboratesOn reports whether the user holds a grant on the dataset —
// directly or through an organization — with a capacity among roles.
func (r *Resolver) collaboratesOn(ctx context.Context, userID, datasetID uuid.UUID, roles []string) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	collabs, err := collaborationsForUser(ctx, r.host, r.grants, userID, "", roles)
	if err != nil {
		return false, err
	}
	for _, c := range collabs {
		if c.DatasetID == datasetID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) decide(check string, allowed bool) bool {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	resolverDecisions.WithLabelValues(check, outcome).Inc()
	return allowed
}
