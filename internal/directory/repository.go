package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Repository resolves the external identifiers a project references.
// All lookups return ErrNotFound when nothing matches.
type Repository interface {
	FindCompanyByTaxID(ctx context.Context, taxID string) (*Company, error)
	FindUniversityByTaxID(ctx context.Context, taxID string) (*University, error)
	FindCareerByCode(ctx context.Context, code string) (*Career, error)
	FindStudyPlanByCode(ctx context.Context, code int) (*StudyPlan, error)
	FindPositionByCode(ctx context.Context, code string) (*CatalogPosition, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL directory repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindCompanyByTaxID(ctx context.Context, taxID string) (*Company, error) {
	var company Company
	err := r.db.GetContext(ctx, &company, `SELECT tax_id, name FROM companies WHERE tax_id = $1`, strings.TrimSpace(taxID))
	if err != nil {
		return nil, lookupError("company", err)
	}
	return &company, nil
}

func (r *PostgresRepository) FindUniversityByTaxID(ctx context.Context, taxID string) (*University, error) {
	var university University
	err := r.db.GetContext(ctx, &university, `SELECT tax_id, name FROM universities WHERE tax_id = $1`, strings.TrimSpace(taxID))
	if err != nil {
		return nil, lookupError("university", err)
	}
	return &university, nil
}

func (r *PostgresRepository) FindCareerByCode(ctx context.Context, code string) (*Career, error) {
	var career Career
	err := r.db.GetContext(ctx, &career, `SELECT code, name FROM careers WHERE code = $1`, strings.TrimSpace(code))
	if err != nil {
		return nil, lookupError("career", err)
	}
	return &career, nil
}

func (r *PostgresRepository) FindStudyPlanByCode(ctx context.Context, code int) (*StudyPlan, error) {
	var plan StudyPlan
	err := r.db.GetContext(ctx, &plan, `SELECT code, name FROM study_plans WHERE code = $1`, code)
	if err != nil {
		return nil, lookupError("study plan", err)
	}
	return &plan, nil
}

func (r *PostgresRepository) FindPositionByCode(ctx context.Context, code string) (*CatalogPosition, error) {
	var position CatalogPosition
	err := r.db.GetContext(ctx, &position, `SELECT code, name FROM positions_catalog WHERE code = $1`, strings.TrimSpace(code))
	if err != nil {
		return nil, lookupError("position", err)
	}
	return &position, nil
}

func lookupError(entity string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to find %s: %w", entity, err)
}
