// ABOUTME: Narrow interfaces onto the host catalog platform and the grant store.
// ABOUTME: The core calls outward only through these; internal/store implements them.
package collab

import (
	"context"

	"github.com/google/uuid"
)

// Dataset is the slice of the host's dataset entity the resolver needs.
// OwnerOrg is uuid.Nil for datasets without an owning organization.
type Dataset struct {
	ID        uuid.UUID
	Name      string
	OwnerOrg  uuid.UUID
	Private   bool
	Resources []Resource
}

// Resource is one file or view attached to a dataset. Visibility is the raw
// host attribute; interpret it with ParseVisibility.
type Resource struct {
	ID         uuid.UUID
	DatasetID  uuid.UUID
	Name       string
	Visibility string
}

// User is a host directory user. Email may be empty.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Organization is a host directory organization.
type Organization struct {
	ID   uuid.UUID
	Name string
}

// Membership is one organization a user belongs to, with the user's role in it.
type Membership struct {
	OrgID uuid.UUID
	Role  string
}

// Directory is the read-only view onto the host's entity model. Lookup
// methods return (nil, nil) when the entity does not exist; the service
// translates that into NotFoundError.
type Directory interface {
	DatasetByID(ctx context.Context, id uuid.UUID) (*Dataset, error)
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)
	OrganizationByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	// HasOrgPermission reports whether the user's role in the organization
	// satisfies the named permission. Anonymous users (uuid.Nil) never do.
	HasOrgPermission(ctx context.Context, userID, orgID uuid.UUID, permission string) (bool, error)

	// MembershipsForUser lists the organizations the user belongs to with the
	// user's role in each.
	MembershipsForUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)

	// RolesWithPermission returns the host roles whose permission set
	// includes the named permission. Grant capacities are compared against
	// these role names when a listing is filtered by permission.
	RolesWithPermission(permission string) []string
}

// Baseline is the host's own authorization checkpoints that the resolver
// chains onto. The resolver never widens baseline read access; it only adds
// a second grant path for updates and gates resource reads further.
type Baseline interface {
	CanUpdateDataset(ctx context.Context, userID uuid.UUID, ds *Dataset) (bool, error)
	CanReadResource(ctx context.Context, userID uuid.UUID, ds *Dataset, res *Resource) (bool, error)
}

// GrantQuery filters a grant store query. Zero values mean "any".
type GrantQuery struct {
	DatasetID     uuid.UUID
	PrincipalType PrincipalType
	PrincipalID   uuid.UUID
	// PrincipalIDs restricts to any of the given principals; nil means no
	// restriction. Used to fetch org grants across a user's memberships in
	// one query.
	PrincipalIDs []uuid.UUID
	// Capacities restricts to any of the given capacities; nil means no
	// restriction.
	Capacities []Capacity
}

// GrantStore is the persistence contract for collaborator grants.
type GrantStore interface {
	// UpsertGrant inserts the grant or, if one exists for the same
	// (dataset, principal type, principal) key, overwrites its capacity and
	// modified stamp. Atomic with respect to concurrent creates for the same
	// key.
	UpsertGrant(ctx context.Context, datasetID uuid.UUID, pt PrincipalType, principalID uuid.UUID, capacity Capacity) (*Grant, error)

	// FindGrant returns the grant for the key, or (nil, nil) when absent.
	FindGrant(ctx context.Context, datasetID uuid.UUID, pt PrincipalType, principalID uuid.UUID) (*Grant, error)

	// QueryGrants returns all grants matching q, in no particular order.
	QueryGrants(ctx context.Context, q GrantQuery) ([]Grant, error)

	// DeleteGrant removes the grant for the key, reporting whether a row
	// existed.
	DeleteGrant(ctx context.Context, datasetID uuid.UUID, pt PrincipalType, principalID uuid.UUID) (bool, error)
}

// Notifier is the optional post-commit side channel for grant changes.
// Implementations must not block the request longer than an SMTP handshake;
// errors are logged by the service and never propagated, because the grant
// write has already committed.
type Notifier interface {
	CollaboratorAdded(ctx context.Context, g Grant) error
	CollaboratorRemoved(ctx context.Context, g Grant) error
}
