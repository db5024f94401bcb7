// ABOUTME: Discoverability labels — the label-intersection visibility model for search.
// ABOUTME: Also the label-based reference Baseline the resolver chains onto.
package collab

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// LabelPublic marks datasets readable by anyone; every user carries it.
const LabelPublic = "public"

// MemberLabel is the label shared by an organization's datasets and members.
func MemberLabel(orgID uuid.UUID) string {
	return "member-" + orgID.String()
}

// CollaboratorLabel is the label shared by a dataset and its collaborators.
// Search includes collaborated datasets through plain label intersection,
// without re-running grant logic per hit.
func CollaboratorLabel(datasetID uuid.UUID) string {
	return "collaborator-" + datasetID.String()
}

// Labeler computes the label sets used by the host's label-intersection
// search filter: a dataset is discoverable by a user iff their label sets
// intersect.
type Labeler struct {
	host   Directory
	grants GrantStore
}

// NewLabeler creates a Labeler.
func NewLabeler(host Directory, grants GrantStore) *Labeler {
	return &Labeler{host: host, grants: grants}
}

// DatasetLabels returns the dataset's visibility labels: the baseline
// ownership labels plus one generic label for all of its collaborators.
func (l *Labeler) DatasetLabels(ds *Dataset) []string {
	var labels []string
	if ds.Private {
		if ds.OwnerOrg != uuid.Nil {
			labels = append(labels, MemberLabel(ds.OwnerOrg))
		}
	} else {
		labels = append(labels, LabelPublic)
	}
	return append(labels, CollaboratorLabel(ds.ID))
}

// UserLabels returns the labels the user holds: public, one member label per
// organization membership, and one collaborator label per dataset the user
// collaborates on in any capacity. The collaboration listing here is
// deliberately unfiltered — limited members still discover their datasets.
func (l *Labeler) UserLabels(ctx context.Context, userID uuid.UUID) ([]string, error) {
	labels := []string{LabelPublic}
	if userID == uuid.Nil {
		return labels, nil
	}

	memberships, err := l.host.MembershipsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	for _, m := range memberships {
		labels = append(labels, MemberLabel(m.OrgID))
	}

	collabs, err := collaborationsForUser(ctx, l.host, l.grants, userID, "", nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool, len(collabs))
	for _, c := range collabs {
		if seen[c.DatasetID] {
			continue
		}
		seen[c.DatasetID] = true
		labels = append(labels, CollaboratorLabel(c.DatasetID))
	}
	return labels, nil
}

// Intersects reports whether the two label sets share at least one label.
func Intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if set[l] {
			return true
		}
	}
	return false
}

// LabelBaseline is the reference implementation of the host's own
// authorization checkpoints, built from the same label model the host search
// uses: dataset update requires an owning-org role with dataset_update, and
// resource reads pass baseline when the user's and dataset's label sets
// intersect.
type LabelBaseline struct {
	host    Directory
	labeler *Labeler
}

// NewLabelBaseline creates a LabelBaseline.
func NewLabelBaseline(host Directory, grants GrantStore) *LabelBaseline {
	return &LabelBaseline{host: host, labeler: NewLabeler(host, grants)}
}

// CanUpdateDataset is the baseline update check: an owning-org role whose
// permissions include dataset_update.
func (b *LabelBaseline) CanUpdateDataset(ctx context.Context, userID uuid.UUID, ds *Dataset) (bool, error) {
	if ds.OwnerOrg == uuid.Nil || userID == uuid.Nil {
		return false, nil
	}
	ok, err := b.host.HasOrgPermission(ctx, userID, ds.OwnerOrg, PermDatasetUpdate)
	if err != nil {
		return false, fmt.Errorf("check org permission: %w", err)
	}
	return ok, nil
}

// CanReadResource is the baseline read check: label intersection between the
// user and the dataset. Public datasets pass for everyone, private ones for
// owning-org members and collaborators.
func (b *LabelBaseline) CanReadResource(ctx context.Context, userID uuid.UUID, ds *Dataset, _ *Resource) (bool, error) {
	userLabels, err := b.labeler.UserLabels(ctx, userID)
	if err != nil {
		return false, err
	}
	return Intersects(b.labeler.DatasetLabels(ds), userLabels), nil
}
