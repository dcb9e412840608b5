package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"signdata/internal/gsl"
)

// StoredExample is an example row as persisted for a build split.
type StoredExample struct {
	Split     string          `json:"split"`
	Key       string          `json:"key"`
	Ordinal   int             `json:"ordinal"`
	VideoID   string          `json:"video_id"`
	VideoPath string          `json:"video_path"`
	DepthPath string          `json:"depth_path"`
	Record    json.RawMessage `json:"record"`
}

// InsertExamples stores examples of split in one transaction. ordinal is the
// position of the first example within the split. A key already stored for
// the split fails the whole batch.
func (s *Store) InsertExamples(ctx context.Context, buildID, split string, ordinal int, examples []gsl.Example) error {
	if len(examples) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin insert tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO examples (build_id, split, key, ordinal, video_id, video_path, depth_path, record_json)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, ex := range examples {
			record, err := json.Marshal(ex)
			if err != nil {
				return fmt.Errorf("encode example %s: %w", ex.Key, err)
			}
			if _, err := stmt.ExecContext(ctx, buildID, split, ex.Key, ordinal+i, ex.ID, ex.VideoPath, ex.DepthPath, string(record)); err != nil {
				return fmt.Errorf("insert example %s/%s: %w", split, ex.Key, err)
			}
		}
		return tx.Commit()
	})
}

// SplitCounts returns the number of stored examples per split.
func (s *Store) SplitCounts(ctx context.Context, buildID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT split, COUNT(1) FROM examples WHERE build_id = ? GROUP BY split", buildID)
	if err != nil {
		return nil, fmt.Errorf("count examples: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			split string
			n     int
		)
		if err := rows.Scan(&split, &n); err != nil {
			return nil, fmt.Errorf("scan split count: %w", err)
		}
		counts[split] = n
	}
	return counts, rows.Err()
}

// Examples returns stored examples of a split in emission order.
func (s *Store) Examples(ctx context.Context, buildID, split string, limit, offset int) ([]StoredExample, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT split, key, ordinal, video_id, video_path, depth_path, record_json
         FROM examples WHERE build_id = ? AND split = ?
         ORDER BY ordinal LIMIT ? OFFSET ?`,
		buildID, split, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	var out []StoredExample
	for rows.Next() {
		var (
			ex     StoredExample
			record string
		)
		if err := rows.Scan(&ex.Split, &ex.Key, &ex.Ordinal, &ex.VideoID, &ex.VideoPath, &ex.DepthPath, &record); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		ex.Record = json.RawMessage(record)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// FindExample looks up an example of the build by video id across splits.
func (s *Store) FindExample(ctx context.Context, buildID, videoID string) ([]StoredExample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT split, key, ordinal, video_id, video_path, depth_path, record_json
         FROM examples WHERE build_id = ? AND video_id = ? ORDER BY split, ordinal`,
		buildID, videoID)
	if err != nil {
		return nil, fmt.Errorf("query example: %w", err)
	}
	defer rows.Close()

	var out []StoredExample
	for rows.Next() {
		var (
			ex     StoredExample
			record string
		)
		if err := rows.Scan(&ex.Split, &ex.Key, &ex.Ordinal, &ex.VideoID, &ex.VideoPath, &ex.DepthPath, &record); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		ex.Record = json.RawMessage(record)
		out = append(out, ex)
	}
	return out, rows.Err()
}
