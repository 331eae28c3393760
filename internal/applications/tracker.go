package applications

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Tracker reports student applications and contracts, which are owned by
// the applications service and are read-only here.
type Tracker interface {
	// ApplicationCount returns the number of applications received by a position.
	ApplicationCount(ctx context.Context, positionID int64) (int, error)
	// HasIssuedContracts reports whether every active position of the project has an issued contract.
	HasIssuedContracts(ctx context.Context, projectID int64) (bool, error)
}

// PostgresTracker implements Tracker using PostgreSQL
type PostgresTracker struct {
	db *sqlx.DB
}

// NewPostgresTracker creates a new PostgreSQL tracker
func NewPostgresTracker(db *sqlx.DB) *PostgresTracker {
	return &PostgresTracker{db: db}
}

func (t *PostgresTracker) ApplicationCount(ctx context.Context, positionID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM applications WHERE position_id = $1 AND withdrawn_at IS NULL`
	if err := t.db.GetContext(ctx, &count, query, positionID); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

func (t *PostgresTracker) HasIssuedContracts(ctx context.Context, projectID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM positions p
			WHERE p.project_id = $1 AND p.withdrawn_date IS NULL
		) AND NOT EXISTS (
			SELECT 1 FROM positions p
			WHERE p.project_id = $1 AND p.withdrawn_date IS NULL
			  AND NOT EXISTS (
				SELECT 1 FROM contracts c
				WHERE c.position_id = p.id AND c.issued_at IS NOT NULL
			  )
		)
	`
	var issued bool
	if err := t.db.GetContext(ctx, &issued, query, projectID); err != nil {
		return false, fmt.Errorf("failed to check issued contracts: %w", err)
	}
	return issued, nil
}

// MemoryTracker is an in-process Tracker used by tests and the local wizard.
type MemoryTracker struct {
	mu        sync.RWMutex
	counts    map[int64]int
	contracts map[int64]bool
}

// NewMemoryTracker creates an empty tracker: no applications, no contracts.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		counts:    map[int64]int{},
		contracts: map[int64]bool{},
	}
}

// SetApplicationCount records the application count of a position.
func (t *MemoryTracker) SetApplicationCount(positionID int64, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[positionID] = count
}

// SetContractsIssued records whether a project's contracts have been issued.
func (t *MemoryTracker) SetContractsIssued(projectID int64, issued bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contracts[projectID] = issued
}

func (t *MemoryTracker) ApplicationCount(_ context.Context, positionID int64) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counts[positionID], nil
}

func (t *MemoryTracker) HasIssuedContracts(_ context.Context, projectID int64) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contracts[projectID], nil
}
