package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bento-registry/internal/core/domain"
	"bento-registry/internal/core/ports/output"
)

const bundleColumns = `
	id, created_at, updated_at, project_id, name, version, path,
	artifacts, dependencies, labels`

var bundleSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"version":    true,
}

type bundleRepo struct {
	pool *pgxpool.Pool
}

func NewBundleRepository(pool *pgxpool.Pool) ports.BundleRepository {
	return &bundleRepo{pool: pool}
}

func (r *bundleRepo) Create(ctx context.Context, bundle *domain.Bundle) error {
	artifactsJSON, err := json.Marshal(bundle.Artifacts)
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}
	depsJSON, err := json.Marshal(bundle.Dependencies)
	if err != nil {
		return fmt.Errorf("marshal dependencies: %w", err)
	}
	labelsJSON, err := json.Marshal(bundle.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		INSERT INTO bundle
			(id, created_at, updated_at, project_id, name, version, path,
			 artifacts, dependencies, labels)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	_, err = r.pool.Exec(ctx, query,
		bundle.ID, bundle.CreatedAt, bundle.UpdatedAt, bundle.ProjectID,
		bundle.Name, bundle.Version, bundle.Path,
		artifactsJSON, depsJSON, labelsJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrBundleVersionConflict
		}
		return fmt.Errorf("create bundle: %w", err)
	}
	return nil
}

func (r *bundleRepo) GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Bundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM bundle WHERE id = $1 AND project_id = $2`
	b, err := scanBundle(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBundleNotFound
		}
		return nil, fmt.Errorf("get bundle by id: %w", err)
	}
	return b, nil
}

func (r *bundleRepo) GetByNameVersion(ctx context.Context, projectID uuid.UUID, name, version string) (*domain.Bundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM bundle WHERE project_id = $1 AND name = $2 AND version = $3`
	b, err := scanBundle(r.pool.QueryRow(ctx, query, projectID, name, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBundleNotFound
		}
		return nil, fmt.Errorf("get bundle by name and version: %w", err)
	}
	return b, nil
}

func (r *bundleRepo) List(ctx context.Context, filter ports.BundleListFilter) ([]*domain.Bundle, int, error) {
	conditions := []string{"project_id = $1"}
	args := []interface{}{filter.ProjectID}
	argPos := 2

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name = $%d", argPos))
		args = append(args, filter.Name)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM bundle WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bundles: %w", err)
	}

	orderBy := "created_at DESC"
	if bundleSortColumns[filter.SortBy] {
		dir := "DESC"
		if filter.Order == "asc" {
			dir = "ASC"
		}
		orderBy = fmt.Sprintf("%s %s", filter.SortBy, dir)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bundle
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, bundleColumns, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var bundles []*domain.Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan bundle row: %w", err)
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bundle rows: %w", err)
	}

	return bundles, total, nil
}

func (r *bundleRepo) Delete(ctx context.Context, projectID uuid.UUID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM bundle WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBundleNotFound
	}
	return nil
}

func scanBundle(row pgx.Row) (*domain.Bundle, error) {
	var b domain.Bundle
	var artifactsJSON, depsJSON, labelsJSON []byte

	err := row.Scan(
		&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.ProjectID,
		&b.Name, &b.Version, &b.Path,
		&artifactsJSON, &depsJSON, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(artifactsJSON, &b.Artifacts); err != nil {
		return nil, fmt.Errorf("unmarshal artifacts: %w", err)
	}
	if err := json.Unmarshal(depsJSON, &b.Dependencies); err != nil {
		return nil, fmt.Errorf("unmarshal dependencies: %w", err)
	}
	if err := json.Unmarshal(labelsJSON, &b.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if b.Labels == nil {
		b.Labels = map[string]string{}
	}
	return &b, nil
}
