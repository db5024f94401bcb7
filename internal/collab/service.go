// ABOUTME: Grant service — the create/delete/list operations over collaborator grants.
// ABOUTME: Resolves entities via the host directory, authorizes via the resolver, then writes.
package collab

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Host permission names used by the grant layer. These belong to the host's
// role model; the directory's RolesWithPermission maps them back to roles.
const (
	// PermManageGroup is the default listing permission: every org role
	// satisfies it, so an unfiltered listing covers all non-limited grants.
	PermManageGroup = "manage_group"
	// PermDatasetUpdate gates editor-visibility resources and the
	// collaborator path of the dataset update check.
	PermDatasetUpdate = "dataset_update"
	// PermRead gates collaborator-visibility resources.
	PermRead = "read"
	// PermMembership is the admin-only permission required to manage an
	// organization's members — and, here, a dataset's collaborators.
	PermMembership = "membership"
)

// Service implements the collaborator grant operations. All methods take the
// requester identity explicitly; there is no ambient current-user.
type Service struct {
	grants   GrantStore
	host     Directory
	resolver *Resolver
	notifier Notifier // nil disables the side channel
}

// NewService creates a Service. notifier may be nil.
func NewService(grants GrantStore, host Directory, resolver *Resolver, notifier Notifier) *Service {
	return &Service{grants: grants, host: host, resolver: resolver, notifier: notifier}
}

// Create makes a principal a collaborator on a dataset, or updates the
// capacity of an existing grant. Requires collaborator-management rights on
// the dataset's owning organization.
func (s *Service) Create(ctx context.Context, requester, datasetID uuid.UUID, pt PrincipalType, principalID uuid.UUID, capacity Capacity) (*Grant, error) {
	ds, err := s.host.DatasetByID(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset: %w", err)
	}
	if ds == nil {
		return nil, notFound("dataset not found")
	}

	if err := s.authorizeManage(ctx, requester, ds, "add collaborators to"); err != nil {
		return nil, err
	}

	switch pt {
	case PrincipalUser:
		u, err := s.host.UserByID(ctx, principalID)
		if err != nil {
			return nil, fmt.Errorf("resolve user: %w", err)
		}
		if u == nil {
			return nil, notFound("user not found")
		}
		if !ValidCapacity(pt, capacity) {
			return nil, invalidCapacity(UserCapacities)
		}
	case PrincipalOrg:
		org, err := s.host.OrganizationByID(ctx, principalID)
		if err != nil {
			return nil, fmt.Errorf("resolve organization: %w", err)
		}
		if org == nil {
			return nil, notFound("organization not found")
		}
		if !ValidCapacity(pt, capacity) {
			return nil, invalidCapacity(OrgCapacities)
		}
	default:
		return nil, invalidPrincipalType()
	}

	g, err := s.grants.UpsertGrant(ctx, ds.ID, pt, principalID, capacity)
	if err != nil {
		return nil, fmt.Errorf("upsert grant: %w", err)
	}

	slog.InfoContext(ctx, "collaborator added",
		"actor", requester,
		"dataset", ds.ID,
		"principal_type", pt,
		"principal", principalID,
		"capacity", capacity,
	)
	s.notifyAdded(ctx, *g)

	return g, nil
}

// Delete removes a collaborator grant from a dataset. Requires
// collaborator-management rights on the dataset's owning organization.
func (s *Service) Delete(ctx context.Context, requester, datasetID uuid.UUID, pt PrincipalType, principalID uuid.UUID) error {
	ds, err := s.host.DatasetByID(ctx, datasetID)
	if err != nil {
		return fmt.Errorf("resolve dataset: %w", err)
	}
	if ds == nil {
		return notFound("dataset not found")
	}

	if err := s.authorizeManage(ctx, requester, ds, "remove collaborators from"); err != nil {
		return err
	}

	g, err := s.grants.FindGrant(ctx, ds.ID, pt, principalID)
	if err != nil {
		return fmt.Errorf("find grant: %w", err)
	}
	if g == nil {
		switch pt {
		case PrincipalUser:
			return notFound("user %s is not a collaborator on this dataset", principalID)
		case PrincipalOrg:
			return notFound("organization %s is not a collaborator on this dataset", principalID)
		default:
			return invalidPrincipalType()
		}
	}

	if _, err := s.grants.DeleteGrant(ctx, ds.ID, pt, principalID); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}

	slog.InfoContext(ctx, "collaborator removed",
		"actor", requester,
		"dataset", ds.ID,
		"principal_type", pt,
		"principal", principalID,
	)
	s.notifyRemoved(ctx, *g)

	return nil
}

// List returns all collaborator grants on a dataset, optionally filtered by
// principal type and capacity. Requires collaborator-management rights.
func (s *Service) List(ctx context.Context, requester, datasetID uuid.UUID, pt PrincipalType, capacity Capacity) ([]Grant, error) {
	ds, err := s.host.DatasetByID(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset: %w", err)
	}
	if ds == nil {
		return nil, notFound("dataset not found")
	}

	if err := s.authorizeManage(ctx, requester, ds, "list collaborators of"); err != nil {
		return nil, err
	}

	if pt != "" && pt != PrincipalUser && pt != PrincipalOrg {
		return nil, invalidPrincipalType()
	}
	// The org capacity set is the superset; a user-typed filter with
	// capacity=inherit simply matches nothing.
	if capacity != "" && !ValidCapacity(PrincipalOrg, capacity) {
		return nil, invalidCapacity(OrgCapacities)
	}

	q := GrantQuery{DatasetID: ds.ID, PrincipalType: pt}
	if capacity != "" {
		q.Capacities = []Capacity{capacity}
	}
	grants, err := s.grants.QueryGrants(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	return grants, nil
}

// ListForUserFilter narrows a per-user collaboration listing. Zero values
// mean no filtering; an empty Permission defaults to manage_group.
type ListForUserFilter struct {
	PrincipalType PrincipalType
	Capacity      Capacity
	Permission    string
}

// ListForUser returns every dataset the user collaborates on, directly or
// through an organization membership. Only the user themselves may call it —
// platform administrators included, this is strictly a self-lookup.
//
// An explicit capacity filter that no role satisfying the permission matches
// yields an empty result, not an error: the filter combination is
// incompatible, there is simply no matching data.
func (s *Service) ListForUser(ctx context.Context, requester, userID uuid.UUID, f ListForUserFilter) ([]Collaboration, error) {
	u, err := s.host.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if u == nil {
		return nil, notFound("user not found")
	}

	if requester != userID {
		return nil, forbidden("user %s is not authorized to list collaborations for user %s", requester, userID)
	}

	if f.PrincipalType != "" && f.PrincipalType != PrincipalUser && f.PrincipalType != PrincipalOrg {
		return nil, invalidPrincipalType()
	}
	if f.Capacity != "" && !ValidCapacity(PrincipalUser, f.Capacity) {
		return nil, invalidCapacity(UserCapacities)
	}

	permission := f.Permission
	if permission == "" {
		permission = PermManageGroup
	}
	roles := s.host.RolesWithPermission(permission)

	if f.Capacity != "" {
		if !containsRole(roles, string(f.Capacity)) {
			return []Collaboration{}, nil
		}
		roles = []string{string(f.Capacity)}
	}

	return collaborationsForUser(ctx, s.host, s.grants, userID, f.PrincipalType, roles)
}

// ListForOrganization returns every dataset the organization is a collaborator
// on. Requires member-management rights in that organization.
func (s *Service) ListForOrganization(ctx context.Context, requester, orgID uuid.UUID, capacity Capacity) ([]Collaboration, error) {
	org, err := s.host.OrganizationByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("resolve organization: %w", err)
	}
	if org == nil {
		return nil, notFound("organization not found")
	}

	ok, err := s.host.HasOrgPermission(ctx, requester, orgID, PermMembership)
	if err != nil {
		return nil, fmt.Errorf("check org permission: %w", err)
	}
	if !ok {
		return nil, forbidden("user %s is not authorized to list collaborations for organization %s", requester, orgID)
	}

	if capacity != "" && !ValidCapacity(PrincipalOrg, capacity) {
		return nil, invalidCapacity(OrgCapacities)
	}

	q := GrantQuery{PrincipalType: PrincipalOrg, PrincipalID: orgID}
	if capacity != "" {
		q.Capacities = []Capacity{capacity}
	}
	grants, err := s.grants.QueryGrants(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}

	out := make([]Collaboration, 0, len(grants))
	for _, g := range grants {
		out = append(out, Collaboration{
			DatasetID: g.DatasetID,
			Type:      PrincipalOrg,
			Capacity:  g.Capacity,
			Modified:  g.Modified,
		})
	}
	return out, nil
}

// authorizeManage runs the collaborator-management check, returning a
// ForbiddenError naming the actor and action on denial.
func (s *Service) authorizeManage(ctx context.Context, requester uuid.UUID, ds *Dataset, action string) error {
	ok, err := s.resolver.CanManageCollaborators(ctx, requester, ds)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	if !ok {
		return forbidden("user %s is not authorized to %s dataset %s", requester, action, ds.ID)
	}
	return nil
}

func (s *Service) notifyAdded(ctx context.Context, g Grant) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.CollaboratorAdded(ctx, g); err != nil {
		slog.WarnContext(ctx, "collaborator notification failed",
			"event", "added", "dataset", g.DatasetID, "principal", g.PrincipalID, "error", err)
	}
}

func (s *Service) notifyRemoved(ctx context.Context, g Grant) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.CollaboratorRemoved(ctx, g); err != nil {
		slog.WarnContext(ctx, "collaborator notification failed",
			"event", "removed", "dataset", g.DatasetID, "principal", g.PrincipalID, "error", err)
	}
}

// collaborationsForUser computes the union of a user's direct grants and the
// grants of every organization they belong to. roles restricts results to
// grants whose (effective) capacity is one of the named roles; nil means no
// restriction. Inherit-capacity org grants resolve to the user's own role in
// that organization, with admin promoted to editor.
func collaborationsForUser(ctx context.Context, host Directory, grants GrantStore, userID uuid.UUID, pt PrincipalType, roles []string) ([]Collaboration, error) {
	out := []Collaboration{}

	if pt == "" || pt == PrincipalUser {
		q := GrantQuery{PrincipalType: PrincipalUser, PrincipalID: userID}
		if roles != nil {
			q.Capacities = rolesToCapacities(roles)
		}
		direct, err := grants.QueryGrants(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query user grants: %w", err)
		}
		for _, g := range direct {
			out = append(out, Collaboration{
				DatasetID: g.DatasetID,
				Type:      PrincipalUser,
				Capacity:  g.Capacity,
				Modified:  g.Modified,
			})
		}
	}

	if pt == "" || pt == PrincipalOrg {
		memberships, err := host.MembershipsForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list memberships: %w", err)
		}
		if len(memberships) == 0 {
			return out, nil
		}

		roleByOrg := make(map[uuid.UUID]string, len(memberships))
		orgIDs := make([]uuid.UUID, 0, len(memberships))
		for _, m := range memberships {
			roleByOrg[m.OrgID] = m.Role
			orgIDs = append(orgIDs, m.OrgID)
		}

		// No capacity filter here: inherit grants resolve per user below.
		orgGrants, err := grants.QueryGrants(ctx, GrantQuery{PrincipalType: PrincipalOrg, PrincipalIDs: orgIDs})
		if err != nil {
			return nil, fmt.Errorf("query org grants: %w", err)
		}

		for _, g := range orgGrants {
			capacity := g.Capacity
			if capacity == CapacityInherit {
				role := roleByOrg[g.PrincipalID]
				if role == "admin" {
					capacity = CapacityEditor
				} else {
					capacity = Capacity(role)
				}
			}
			if roles != nil && !containsRole(roles, string(capacity)) {
				continue
			}
			out = append(out, Collaboration{
				DatasetID: g.DatasetID,
				Type:      PrincipalOrg,
				Capacity:  capacity,
				Modified:  g.Modified,
			})
		}
	}

	return out, nil
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func rolesToCapacities(roles []string) []Capacity {
	caps := make([]Capacity, len(roles))
	for i, r := range roles {
		caps[i] = Capacity(r)
	}
	return caps
}
