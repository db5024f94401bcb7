// ABOUTME: Host directory mirror — users, organizations, memberships, datasets, resources.
// ABOUTME: Implements collab.Directory plus the seeding methods the HTTP adapter exposes.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
)

// CreateUser inserts a user and returns it.
func (s *Store) CreateUser(ctx context.Context, name, email string) (*collab.User, error) {
	u := &collab.User{Name: name, Email: email}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`, name, email).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UserByID returns the user with the given id, or (nil, nil) when absent.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*collab.User, error) {
	u := &collab.User{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT name, email FROM users WHERE id = $1`, id).Scan(&u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateOrganization inserts an organization and returns it.
func (s *Store) CreateOrganization(ctx context.Context, name string) (*collab.Organization, error) {
	org := &collab.Organization{Name: name}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO organizations (name) VALUES ($1) RETURNING id`, name).Scan(&org.ID)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}

// OrganizationByID returns the organization with the given id, or (nil, nil)
// when absent.
func (s *Store) OrganizationByID(ctx context.Context, id uuid.UUID) (*collab.Organization, error) {
	org := &collab.Organization{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT name FROM organizations WHERE id = $1`, id).Scan(&org.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

// SetOrgMember adds userID to orgID with the given role, updating the role if
// the membership already exists.
func (s *Store) SetOrgMember(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO org_members (org_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		orgID, userID, role)
	if err != nil {
		return fmt.Errorf("set org member: %w", err)
	}
	return nil
}

// RemoveOrgMember removes userID from orgID.
func (s *Store) RemoveOrgMember(ctx context.Context, orgID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM org_members WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return fmt.Errorf("remove org member: %w", err)
	}
	return nil
}

// OrgMemberRole returns the role of userID in orgID, or ("", nil) if the user
// is not a member.
func (s *Store) OrgMemberRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM org_members WHERE org_id = $1 AND user_id = $2`,
		orgID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get org member role: %w", err)
	}
	return role, nil
}

// HasOrgPermission reports whether userID's role in orgID satisfies the named
// permission. Non-members and anonymous users never do.
func (s *Store) HasOrgPermission(ctx context.Context, userID, orgID uuid.UUID, permission string) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	role, err := s.OrgMemberRole(ctx, orgID, userID)
	if err != nil {
		return false, err
	}
	if role == "" {
		return false, nil
	}
	return RoleHasPermission(role, permission), nil
}

// MembershipsForUser lists the organizations userID belongs to with the
// user's role in each, ordered by organization name.
func (s *Store) MembershipsForUser(ctx context.Context, userID uuid.UUID) ([]collab.Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.org_id, m.role
		FROM org_members m
		JOIN organizations o ON o.id = m.org_id
		WHERE m.user_id = $1
		ORDER BY o.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var out []collab.Membership
	for rows.Next() {
		var m collab.Membership
		if err := rows.Scan(&m.OrgID, &m.Role); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return out, nil
}

// CreateDataset inserts a dataset. ownerOrg may be uuid.Nil for datasets
// without an owning organization.
func (s *Store) CreateDataset(ctx context.Context, name string, ownerOrg uuid.UUID, private bool) (*collab.Dataset, error) {
	ds := &collab.Dataset{Name: name, OwnerOrg: ownerOrg, Private: private}
	var owner any
	if ownerOrg != uuid.Nil {
		owner = ownerOrg
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO datasets (name, owner_org, private) VALUES ($1, $2, $3) RETURNING id`,
		name, owner, private).Scan(&ds.ID)
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	return ds, nil
}

// UpdateDataset renames the dataset and sets its private flag. Returns
// (nil, nil) when the dataset does not exist.
func (s *Store) UpdateDataset(ctx context.Context, id uuid.UUID, name string, private bool) (*collab.Dataset, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE datasets SET name = $2, private = $3 WHERE id = $1`, id, name, private)
	if err != nil {
		return nil, fmt.Errorf("update dataset: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, nil
	}
	return s.DatasetByID(ctx, id)
}

// AddResource attaches a resource to a dataset. An empty visibility defaults
// to package visibility.
func (s *Store) AddResource(ctx context.Context, datasetID uuid.UUID, name, visibility string) (*collab.Resource, error) {
	if visibility == "" {
		visibility = "package"
	}
	res := &collab.Resource{DatasetID: datasetID, Name: name, Visibility: visibility}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO resources (dataset_id, name, visibility) VALUES ($1, $2, $3) RETURNING id`,
		datasetID, name, visibility).Scan(&res.ID)
	if err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return res, nil
}

// NewResource describes one resource to attach when creating a dataset.
type NewResource struct {
	Name       string
	Visibility string
}

// CreateDatasetWithResources inserts a dataset and its resources in one
// transaction, so a half-seeded dataset never becomes visible.
func (s *Store) CreateDatasetWithResources(ctx context.Context, name string, ownerOrg uuid.UUID, private bool, resources []NewResource) (*collab.Dataset, error) {
	ds := &collab.Dataset{Name: name, OwnerOrg: ownerOrg, Private: private}
	var owner any
	if ownerOrg != uuid.Nil {
		owner = ownerOrg
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO datasets (name, owner_org, private) VALUES ($1, $2, $3) RETURNING id`,
			name, owner, private).Scan(&ds.ID); err != nil {
			return fmt.Errorf("create dataset: %w", err)
		}
		for _, nr := range resources {
			visibility := nr.Visibility
			if visibility == "" {
				visibility = "package"
			}
			res := collab.Resource{DatasetID: ds.ID, Name: nr.Name, Visibility: visibility}
			if err := tx.QueryRow(ctx,
				`INSERT INTO resources (dataset_id, name, visibility) VALUES ($1, $2, $3) RETURNING id`,
				ds.ID, nr.Name, visibility).Scan(&res.ID); err != nil {
				return fmt.Errorf("add resource: %w", err)
			}
			ds.Resources = append(ds.Resources, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// DatasetByID returns the dataset with its resources, or (nil, nil) when
// absent.
func (s *Store) DatasetByID(ctx context.Context, id uuid.UUID) (*collab.Dataset, error) {
	ds, err := s.scanDataset(s.pool.QueryRow(ctx,
		`SELECT id, name, owner_org, private FROM datasets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, dataset_id, name, visibility
		FROM resources WHERE dataset_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r collab.Resource
		if err := rows.Scan(&r.ID, &r.DatasetID, &r.Name, &r.Visibility); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		ds.Resources = append(ds.Resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return ds, nil
}

// ListDatasets returns all datasets without their resources, ordered by name.
// Used by the label-intersection search.
func (s *Store) ListDatasets(ctx context.Context) ([]collab.Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, owner_org, private FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []collab.Dataset
	for rows.Next() {
		ds, err := s.scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

// AddressesFor resolves the notification recipients for a grant. User
// principals map to the user's email; organization principals to the emails
// of the organization's admins. Principals without an email are skipped.
func (s *Store) AddressesFor(ctx context.Context, g collab.Grant) ([]string, error) {
	var rows pgx.Rows
	var err error
	switch g.PrincipalType {
	case collab.PrincipalUser:
		rows, err = s.pool.Query(ctx,
			`SELECT email FROM users WHERE id = $1 AND email <> ''`, g.PrincipalID)
	case collab.PrincipalOrg:
		rows, err = s.pool.Query(ctx, `
			SELECT u.email
			FROM org_members m
			JOIN users u ON u.id = m.user_id
			WHERE m.org_id = $1 AND m.role = 'admin' AND u.email <> ''
			ORDER BY u.email`, g.PrincipalID)
	default:
		return nil, fmt.Errorf("resolve recipients: unknown principal type %q", g.PrincipalType)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return out, nil
}

func (s *Store) scanDataset(row pgx.Row) (*collab.Dataset, error) {
	var ds collab.Dataset
	var owner *uuid.UUID
	if err := row.Scan(&ds.ID, &ds.Name, &owner, &ds.Private); err != nil {
		return nil, err
	}
	if owner != nil {
		ds.OwnerOrg = *owner
	}
	return &ds, nil
}
