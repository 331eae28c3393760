package reports

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Repository stores the history of archived exports
type Repository interface {
	CreateExport(ctx context.Context, e *Export) error
	ListExports(ctx context.Context, projectID int64) ([]*Export, error)
}

const exportsSchema = `
	CREATE TABLE IF NOT EXISTS project_exports (
		id              UUID PRIMARY KEY,
		project_id      BIGINT NOT NULL,
		format          VARCHAR(8) NOT NULL,
		file_key        TEXT NOT NULL,
		file_size_bytes BIGINT NOT NULL,
		project_status  VARCHAR(32) NOT NULL,
		requested_by    TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_project_exports_project ON project_exports (project_id, created_at DESC);
`

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the exports table
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, exportsSchema); err != nil {
		return fmt.Errorf("failed to migrate project_exports: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateExport(ctx context.Context, e *Export) error {
	query := `
		INSERT INTO project_exports (
			id, project_id, format, file_key, file_size_bytes, project_status, requested_by, created_at
		) VALUES (
			:id, :project_id, :format, :file_key, :file_size_bytes, :project_status, :requested_by, :created_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListExports(ctx context.Context, projectID int64) ([]*Export, error) {
	query := `
		SELECT id, project_id, format, file_key, file_size_bytes, project_status, requested_by, created_at
		FROM project_exports
		WHERE project_id = $1
		ORDER BY created_at DESC
	`
	var exports []*Export
	if err := r.db.SelectContext(ctx, &exports, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return exports, nil
}

// MemoryRepository keeps exports in memory
type MemoryRepository struct {
	mu      sync.RWMutex
	exports []*Export
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) CreateExport(_ context.Context, e *Export) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *e
	r.exports = append(r.exports, &stored)
	return nil
}

func (r *MemoryRepository) ListExports(_ context.Context, projectID int64) ([]*Export, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Export
	for _, e := range r.exports {
		if e.ProjectID == projectID {
			stored := *e
			out = append(out, &stored)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
