// ABOUTME: Store methods for the dataset_collaborators table (collab.GrantStore).
// ABOUTME: Upsert settles concurrent creates for one key via ON CONFLICT DO UPDATE.
package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
)

// UpsertGrant inserts a collaborator grant or, when one already exists for
// the same (dataset, principal type, principal) key, overwrites its capacity
// and modified stamp. The primary key makes this atomic under concurrent
// creates: both land on the same row.
func (s *Store) UpsertGrant(ctx context.Context, datasetID uuid.UUID, pt collab.PrincipalType, principalID uuid.UUID, capacity collab.Capacity) (*collab.Grant, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO dataset_collaborators (dataset_id, principal_type, principal_id, capacity, modified)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (dataset_id, principal_type, principal_id)
		DO UPDATE SET capacity = EXCLUDED.capacity, modified = now()
		RETURNING dataset_id, principal_type, principal_id, capacity, modified`,
		datasetID, string(pt), principalID, string(capacity))

	g, err := scanGrant(row)
	if err != nil {
		return nil, fmt.Errorf("upsert grant: %w", err)
	}
	return g, nil
}

// FindGrant returns the grant for the key, or (nil, nil) when absent.
func (s *Store) FindGrant(ctx context.Context, datasetID uuid.UUID, pt collab.PrincipalType, principalID uuid.UUID) (*collab.Grant, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT dataset_id, principal_type, principal_id, capacity, modified
		FROM dataset_collaborators
		WHERE dataset_id = $1 AND principal_type = $2 AND principal_id = $3`,
		datasetID, string(pt), principalID)

	g, err := scanGrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find grant: %w", err)
	}
	return g, nil
}

// QueryGrants returns all grants matching q. The WHERE clause is assembled
// dynamically from the non-zero filters.
func (s *Store) QueryGrants(ctx context.Context, q collab.GrantQuery) ([]collab.Grant, error) {
	b := psql.Select("dataset_id", "principal_type", "principal_id", "capacity", "modified").
		From("dataset_collaborators")

	if q.DatasetID != uuid.Nil {
		b = b.Where(sq.Eq{"dataset_id": q.DatasetID})
	}
	if q.PrincipalType != "" {
		b = b.Where(sq.Eq{"principal_type": string(q.PrincipalType)})
	}
	if q.PrincipalID != uuid.Nil {
		b = b.Where(sq.Eq{"principal_id": q.PrincipalID})
	}
	if q.PrincipalIDs != nil {
		b = b.Where(sq.Eq{"principal_id": q.PrincipalIDs})
	}
	if q.Capacities != nil {
		caps := make([]string, len(q.Capacities))
		for i, c := range q.Capacities {
			caps[i] = string(c)
		}
		b = b.Where(sq.Eq{"capacity": caps})
	}

	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build grant query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	var out []collab.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return out, nil
}

// DeleteGrant removes the grant for the key, reporting whether a row existed.
func (s *Store) DeleteGrant(ctx context.Context, datasetID uuid.UUID, pt collab.PrincipalType, principalID uuid.UUID) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		DELETE FROM dataset_collaborators
		WHERE dataset_id = $1 AND principal_type = $2 AND principal_id = $3`,
		datasetID, string(pt), principalID)
	if err != nil {
		return false, fmt.Errorf("delete grant: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func scanGrant(row pgx.Row) (*collab.Grant, error) {
	var g collab.Grant
	var pt, capacity string
	if err := row.Scan(&g.DatasetID, &pt, &g.PrincipalID, &capacity, &g.Modified); err != nil {
		return nil, err
	}
	g.PrincipalType = collab.PrincipalType(pt)
	g.Capacity = collab.Capacity(capacity)
	return &g, nil
}
