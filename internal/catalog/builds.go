package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a build.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Build is one recorded dataset build.
type Build struct {
	ID             string          `json:"id"`
	Status         Status          `json:"status"`
	Schema         string          `json:"schema"`
	DatasetName    string          `json:"dataset_name"`
	DatasetVersion string          `json:"dataset_version"`
	Info           json.RawMessage `json:"info,omitempty"`
	OutputDir      string          `json:"output_dir"`
	Splits         []string        `json:"splits"`
	ExampleCount   int             `json:"example_count"`
	SkippedCount   int             `json:"skipped_count"`
	FailureKind    string          `json:"failure_kind,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

// Duration returns how long the build ran, or zero while it is running.
func (b Build) Duration() time.Duration {
	if b.FinishedAt == nil {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

const buildColumns = "id, status, schema_name, dataset_name, dataset_version, info_json, output_dir, splits, example_count, skipped_count, failure_kind, error_message, started_at, finished_at"

func scanBuild(scanner interface{ Scan(dest ...any) error }) (*Build, error) {
	var (
		b          Build
		status     string
		info       string
		splits     string
		kind       sql.NullString
		message    sql.NullString
		startedRaw string
		finished   sql.NullString
	)
	if err := scanner.Scan(
		&b.ID,
		&status,
		&b.Schema,
		&b.DatasetName,
		&b.DatasetVersion,
		&info,
		&b.OutputDir,
		&splits,
		&b.ExampleCount,
		&b.SkippedCount,
		&kind,
		&message,
		&startedRaw,
		&finished,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	if info != "" {
		b.Info = json.RawMessage(info)
	}
	if splits != "" {
		b.Splits = strings.Split(splits, ",")
	}
	b.FailureKind = kind.String
	b.ErrorMessage = message.String
	if started := parseTime(sql.NullString{String: startedRaw, Valid: true}); started != nil {
		b.StartedAt = *started
	}
	b.FinishedAt = parseTime(finished)
	return &b, nil
}

// BeginBuild records a running build. ID, Schema and StartedAt must be set.
func (s *Store) BeginBuild(ctx context.Context, b Build) error {
	if b.ID == "" {
		return errors.New("build id is required")
	}
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}
	info := string(b.Info)
	if info == "" {
		info = "{}"
	}
	_, err := s.exec(ctx,
		`INSERT INTO builds (id, status, schema_name, dataset_name, dataset_version, info_json, output_dir, splits, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		StatusRunning,
		b.Schema,
		b.DatasetName,
		b.DatasetVersion,
		info,
		b.OutputDir,
		strings.Join(b.Splits, ","),
		formatTime(b.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert build %s: %w", b.ID, err)
	}
	return nil
}

// FinishBuild marks a build completed with its totals.
func (s *Store) FinishBuild(ctx context.Context, id string, examples, skipped int) error {
	return s.finish(ctx, id, StatusCompleted, examples, skipped, "", "")
}

// FailBuild marks a build failed with the classified error and drops any
// examples its finished splits already stored.
func (s *Store) FailBuild(ctx context.Context, id, kind, message string) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin fail tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, "DELETE FROM examples WHERE build_id = ?", id); err != nil {
			return fmt.Errorf("drop examples of build %s: %w", id, err)
		}
		if err := updateStatus(ctx, tx, id, StatusFailed, 0, 0, kind, message); err != nil {
			return err
		}
		return tx.Commit()
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) finish(ctx context.Context, id string, status Status, examples, skipped int, kind, message string) error {
	return retryOnBusy(ctx, func() error {
		return updateStatus(ctx, s.db, id, status, examples, skipped, kind, message)
	})
}

func updateStatus(ctx context.Context, db execer, id string, status Status, examples, skipped int, kind, message string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE builds SET status = ?, example_count = ?, skipped_count = ?, failure_kind = NULLIF(?, ''), error_message = NULLIF(?, ''), finished_at = ?
         WHERE id = ?`,
		status, examples, skipped, kind, message, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update build %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetBuild returns the build with id. A unique id prefix is accepted.
func (s *Store) GetBuild(ctx context.Context, id string) (*Build, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty build id: %w", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+buildColumns+" FROM builds WHERE id = ? OR id LIKE ? ESCAPE '\\' ORDER BY id LIMIT 2",
		id, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("query build: %w", err)
	}
	defer rows.Close()

	var found []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		if b.ID == id {
			return b, nil
		}
		found = append(found, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query build: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("build %s: %w", id, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("build id prefix %q is ambiguous", id)
	}
}

// ListBuilds returns the most recent builds first. limit <= 0 returns all.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]Build, error) {
	query := "SELECT " + buildColumns + " FROM builds ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

// DeleteBuild removes a build and its examples.
func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "DELETE FROM builds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete build %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	return nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(value)
}
