package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Build lifecycle states.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// A single build record.
type Build struct {
	ID           uuid.UUID  // Unique build identifier.
	Resource     string     // Resource the recipe was built for.
	RecipePath   string     // Path of the recipe file at build time.
	RecipeDigest string     // Digest of the recipe bytes, for determinism checks.
	ImageDigest  string     // Digest of the exported archive. Empty until finished.
	Status       string     // One of the Status constants.
	Error        string     // Failure message for failed builds.
	StartedAt    time.Time  // When the build began.
	FinishedAt   *time.Time // When the build finished. Nil while running.
}

// Wall-clock duration of the build, zero while still running.
func (b *Build) Duration() time.Duration {
	if b.FinishedAt == nil {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

// dbBuild mirrors Build with the nullable columns materialized.
type dbBuild struct {
	ID           uuid.UUID      `db:"id"`
	Resource     string         `db:"resource"`
	RecipePath   string         `db:"recipe_path"`
	RecipeDigest string         `db:"recipe_digest"`
	ImageDigest  sql.NullString `db:"image_digest"`
	Status       string         `db:"status"`
	Error        sql.NullString `db:"error"`
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   sql.NullTime   `db:"finished_at"`
}

func toBuild(row *dbBuild) *Build {
	b := &Build{
		ID:           row.ID,
		Resource:     row.Resource,
		RecipePath:   row.RecipePath,
		RecipeDigest: row.RecipeDigest,
		Status:       row.Status,
		StartedAt:    row.StartedAt,
	}
	if row.ImageDigest.Valid {
		b.ImageDigest = row.ImageDigest.String
	}
	if row.Error.Valid {
		b.Error = row.Error.String
	}
	if row.FinishedAt.Valid {
		t := row.FinishedAt.Time
		b.FinishedAt = &t
	}
	return b
}

// Records the start of a build and returns its identifier.
func (s *Store) Begin(ctx context.Context, resource, recipePath, recipeDigest string) (uuid.UUID, error) {
	row := dbBuild{
		ID:           uuid.New(),
		Resource:     resource,
		RecipePath:   recipePath,
		RecipeDigest: recipeDigest,
		Status:       StatusRunning,
		StartedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO builds (id, resource, recipe_path, recipe_digest, status, started_at)
	          VALUES (:id, :resource, :recipe_path, :recipe_digest, :status, :started_at)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrLedger, err)
	}
	return row.ID, nil
}

// Marks a build as succeeded and records the exported image digest.
func (s *Store) Succeed(ctx context.Context, id uuid.UUID, imageDigest string) error {
	return s.finish(ctx, id, StatusSucceeded, imageDigest, "")
}

// Marks a build as failed with the given message.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return s.finish(ctx, id, StatusFailed, "", message)
}

func (s *Store) finish(ctx context.Context, id uuid.UUID, status, imageDigest, message string) error {
	query := `UPDATE builds SET status = ?, image_digest = ?, error = ?, finished_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		status,
		sql.NullString{String: imageDigest, Valid: imageDigest != ""},
		sql.NullString{String: message, Valid: message != ""},
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Fetches a single build by identifier.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Build, error) {
	var row dbBuild
	err := s.db.GetContext(ctx, &row, `SELECT * FROM builds WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedger, err)
	}
	return toBuild(&row), nil
}

// Lists the most recent builds, newest first. A limit of zero returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Build, error) {
	query := `SELECT * FROM builds ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []*dbBuild
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedger, err)
	}

	builds := make([]*Build, len(rows))
	for i, row := range rows {
		builds[i] = toBuild(row)
	}
	return builds, nil
}

// Reports the distinct image digests recorded for successful builds of a
// recipe digest. A reproducible recipe yields at most one.
func (s *Store) ImageDigests(ctx context.Context, recipeDigest string) ([]string, error) {
	var digests []string
	query := `SELECT DISTINCT image_digest FROM builds
	          WHERE recipe_digest = ? AND status = ? AND image_digest IS NOT NULL
	          ORDER BY image_digest`

	if err := s.db.SelectContext(ctx, &digests, query, recipeDigest, StatusSucceeded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedger, err)
	}
	return digests, nil
}
