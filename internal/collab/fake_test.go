// ABOUTME: In-memory Directory + GrantStore fake shared by the collab unit tests.
// ABOUTME: Role→permission logic delegates to internal/store so both layers agree.
package collab_test

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
	"github.com/pdekraker-epa/ckanext-collaborators/internal/store"
)

type grantKey struct {
	dataset uuid.UUID
	pt      collab.PrincipalType
	id      uuid.UUID
}

// fakeHost implements collab.Directory and collab.GrantStore in memory.
type fakeHost struct {
	users    map[uuid.UUID]collab.User
	orgs     map[uuid.UUID]collab.Organization
	datasets map[uuid.UUID]*collab.Dataset
	roles    map[uuid.UUID]map[uuid.UUID]string // orgID → userID → role
	grants   map[grantKey]collab.Grant
	now      time.Time
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		users:    make(map[uuid.UUID]collab.User),
		orgs:     make(map[uuid.UUID]collab.Organization),
		datasets: make(map[uuid.UUID]*collab.Dataset),
		roles:    make(map[uuid.UUID]map[uuid.UUID]string),
		grants:   make(map[grantKey]collab.Grant),
		now:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ── fixture builders ──────────────────────────────────────────────────────────

func (f *fakeHost) addUser(name string) uuid.UUID {
	id := uuid.New()
	f.users[id] = collab.User{ID: id, Name: name}
	return id
}

func (f *fakeHost) addOrg(name string) uuid.UUID {
	id := uuid.New()
	f.orgs[id] = collab.Organization{ID: id, Name: name}
	return id
}

func (f *fakeHost) addDataset(ownerOrg uuid.UUID, private bool, resources ...collab.Resource) uuid.UUID {
	id := uuid.New()
	for i := range resources {
		resources[i].ID = uuid.New()
		resources[i].DatasetID = id
	}
	f.datasets[id] = &collab.Dataset{ID: id, Name: "ds-" + id.String()[:8], OwnerOrg: ownerOrg, Private: private, Resources: resources}
	return id
}

func (f *fakeHost) setRole(orgID, userID uuid.UUID, role string) {
	if f.roles[orgID] == nil {
		f.roles[orgID] = make(map[uuid.UUID]string)
	}
	f.roles[orgID][userID] = role
}

func (f *fakeHost) grant(datasetID uuid.UUID, pt collab.PrincipalType, principalID uuid.UUID, capacity collab.Capacity) {
	f.grants[grantKey{datasetID, pt, principalID}] = collab.Grant{
		DatasetID: datasetID, PrincipalType: pt, PrincipalID: principalID,
		Capacity: capacity, Modified: f.now,
	}
}

// ── collab.Directory ──────────────────────────────────────────────────────────

func (f *fakeHost) DatasetByID(_ context.Context, id uuid.UUID) (*collab.Dataset, error) {
	ds, ok := f.datasets[id]
	if !ok {
		return nil, nil
	}
	cp := *ds
	return &cp, nil
}

func (f *fakeHost) UserByID(_ context.Context, id uuid.UUID) (*collab.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeHost) OrganizationByID(_ context.Context, id uuid.UUID) (*collab.Organization, error) {
	o, ok := f.orgs[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeHost) HasOrgPermission(_ context.Context, userID, orgID uuid.UUID, permission string) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	role := f.roles[orgID][userID]
	if role == "" {
		return false, nil
	}
	return store.RoleHasPermission(role, permission), nil
}

func (f *fakeHost) MembershipsForUser(_ context.Context, userID uuid.UUID) ([]collab.Membership, error) {
	var out []collab.Membership
	for orgID, members := range f.roles {
		if role, ok := members[userID]; ok {
			out = append(out, collab.Membership{OrgID: orgID, Role: role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgID.String() < out[j].OrgID.String() })
	return out, nil
}

func (f *fakeHost) RolesWithPermission(permission string) []string {
	return store.RolesWithPermission(permission)
}

// ── collab.GrantStore ─────────────────────────────────────────────────────────

func (f *fakeHost) UpsertGrant(_ context.Context, datasetID uuid.UUID, pt collab.PrincipalType, principalID uuid.UUID, capacity collab.Capacity) (*collab.Grant, error) {
	f.now = f.now.Add(time.Second)
	g := collab.Grant{
		DatasetID: datasetID, PrincipalType: pt, PrincipalID: principalID,
		Capacity: capacity, Modified: f.now,
	}
	f.grants[grantKey{datasetID, pt, principalID}] = g
	return &g, nil
}

func (f *fakeHost) FindGrant(_ context.Context, datasetID uuid.UUID, pt collab.PrincipalType, principalID uuid.UUID) (*collab.Grant, error) {
	g, ok := f.grants[grantKey{datasetID, pt, principalID}]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (f *fakeHost) QueryGrants(_ context.Context, q collab.GrantQuery) ([]collab.Grant, error) {
	var out []collab.Grant
	for _, g := range f.grants {
		if q.DatasetID != uuid.Nil && g.DatasetID != q.DatasetID {
			continue
		}
		if q.PrincipalType != "" && g.PrincipalType != q.PrincipalType {
			continue
		}
		if q.PrincipalID != uuid.Nil && g.PrincipalID != q.PrincipalID {
			continue
		}
		if q.PrincipalIDs != nil && !containsID(q.PrincipalIDs, g.PrincipalID) {
			continue
		}
		if q.Capacities != nil && !containsCapacity(q.Capacities, g.Capacity) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatasetID.String() < out[j].DatasetID.String() })
	return out, nil
}

func (f *fakeHost) DeleteGrant(_ context.Context, datasetID uuid.UUID, pt collab.PrincipalType, principalID uuid.UUID) (bool, error) {
	k := grantKey{datasetID, pt, principalID}
	_, ok := f.grants[k]
	delete(f.grants, k)
	return ok, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsCapacity(caps []collab.Capacity, c collab.Capacity) bool {
	for _, v := range caps {
		if v == c {
			return true
		}
	}
	return false
}

// newService assembles a Service and Resolver over the fake with the label
// baseline, mirroring the production wiring.
func newService(f *fakeHost) (*collab.Service, *collab.Resolver) {
	base := collab.NewLabelBaseline(f, f)
	resolver := collab.NewResolver(f, base, f)
	return collab.NewService(f, f, resolver, nil), resolver
}
