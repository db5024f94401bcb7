// Package collab implements the dataset collaborator grant layer: the grant
// service (create/delete/list operations over collaborator grants) and the
// permission resolver that extends the host platform's authorization checks.
//
// The package depends on the host platform only through the narrow interfaces
// in host.go; the Postgres-backed reference implementation lives in
// internal/store.
package collab

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PrincipalType identifies what kind of principal a grant applies to.
type PrincipalType string

// Allowed principal types.
const (
	PrincipalUser PrincipalType = "user"
	PrincipalOrg  PrincipalType = "org"
)

// PrincipalTypes lists the allowed principal types, for validation messages.
var PrincipalTypes = []PrincipalType{PrincipalUser, PrincipalOrg}

// Capacity is the role strength of a collaborator grant.
type Capacity string

// Grant capacities. CapacityInherit is valid only on organization grants: the
// effective capacity is derived per member from their own role in that
// organization (admin maps to editor, other roles carry over verbatim).
const (
	CapacityEditor        Capacity = "editor"
	CapacityMember        Capacity = "member"
	CapacityLimitedMember Capacity = "limited_member"
	CapacityInherit       Capacity = "inherit"
)

// UserCapacities is the allowed capacity set for user grants.
var UserCapacities = []Capacity{CapacityEditor, CapacityMember, CapacityLimitedMember}

// OrgCapacities is the allowed capacity set for organization grants.
var OrgCapacities = []Capacity{CapacityEditor, CapacityMember, CapacityLimitedMember, CapacityInherit}

// ValidCapacity reports whether c is allowed for grants to principals of type pt.
func ValidCapacity(pt PrincipalType, c Capacity) bool {
	allowed := UserCapacities
	if pt == PrincipalOrg {
		allowed = OrgCapacities
	}
	for _, a := range allowed {
		if c == a {
			return true
		}
	}
	return false
}

// Grant is one persisted collaborator grant row.
type Grant struct {
	DatasetID     uuid.UUID     `json:"dataset_id"`
	PrincipalType PrincipalType `json:"principal_type"`
	PrincipalID   uuid.UUID     `json:"principal_id"`
	Capacity      Capacity      `json:"capacity"`
	Modified      time.Time     `json:"modified"`
}

// Collaboration is one entry in a per-user or per-organization collaboration
// listing. For inherit-capacity organization grants, Capacity holds the
// effective capacity derived for the user, not the stored "inherit".
type Collaboration struct {
	DatasetID uuid.UUID     `json:"dataset_id"`
	Type      PrincipalType `json:"type"`
	Capacity  Capacity      `json:"capacity"`
	Modified  time.Time     `json:"modified"`
}

// Visibility classifies a resource's visibility attribute. The attribute is
// free-form text owned by the host; parsing buckets it by prefix so that
// future suffix variants ("editor_internal", "owner_member") land with their
// prefix instead of silently falling through.
type Visibility int

// Visibility buckets, in increasing strictness of the extra gate applied on
// top of the host's baseline read check.
const (
	// VisibilityPackage means the resource follows the dataset's own
	// visibility; no extra check.
	VisibilityPackage Visibility = iota
	// VisibilityEditor requires the dataset_update permission, via org role
	// or collaborator grant.
	VisibilityEditor
	// VisibilityOwner requires membership-level read in the owning
	// organization; collaborator grants never satisfy it.
	VisibilityOwner
	// VisibilityCollaborator requires the read permission, via org role or
	// collaborator grant.
	VisibilityCollaborator
)

// ParseVisibility buckets a raw visibility attribute. Empty and "package"
// mean package visibility; unrecognized values fall into the collaborator
// bucket, the most permissive gate that still consults grants.
func ParseVisibility(raw string) Visibility {
	switch {
	case raw == "" || raw == "package":
		return VisibilityPackage
	case strings.HasPrefix(raw, "editor"):
		return VisibilityEditor
	case strings.HasPrefix(raw, "owner"):
		return VisibilityOwner
	default:
		return VisibilityCollaborator
	}
}

// String returns the canonical name of the visibility bucket.
func (v Visibility) String() string {
	switch v {
	case VisibilityEditor:
		return "editor"
	case VisibilityOwner:
		return "owner"
	case VisibilityCollaborator:
		return "collaborator"
	default:
		return "package"
	}
}
