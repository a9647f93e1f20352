package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/marinecast/core/model"
)

// SQLiteStore persists training samples in a SQLite database. Features live
// in the samples table, one column per canonical feature; labels live in
// sample_labels, one row per labelled behaviour.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(model.FeatureNames()))
	for _, name := range model.FeatureNames() {
		cols = append(cols, name+" REAL NOT NULL")
	}
	schema := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS samples (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        %s
    );`, strings.Join(cols, ",\n        ")),
		`CREATE TABLE IF NOT EXISTS sample_labels (
        sample_id INTEGER NOT NULL REFERENCES samples(id) ON DELETE CASCADE,
        behavior TEXT NOT NULL,
        label INTEGER NOT NULL,
        PRIMARY KEY(sample_id, behavior)
    );`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Add inserts samples in a single transaction.
func (s *SQLiteStore) Add(ctx context.Context, samples ...model.TrainingSample) (err error) {
	names := model.FeatureNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	insertSample := fmt.Sprintf("INSERT INTO samples (%s) VALUES (%s)", strings.Join(names, ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for i, smp := range samples {
		values, err := smp.Features.Values()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		args := make([]any, len(values))
		for j, v := range values {
			args[j] = v
		}
		res, err := tx.ExecContext(ctx, insertSample, args...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for behavior, label := range smp.Labels {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sample_labels (sample_id, behavior, label) VALUES (?, ?, ?)`,
				id, behavior, boolToInt(label)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Samples implements Source. Samples are returned in insertion order.
func (s *SQLiteStore) Samples(ctx context.Context) ([]model.TrainingSample, error) {
	names := model.FeatureNames()
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, %s FROM samples ORDER BY id", strings.Join(names, ", ")))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []model.TrainingSample
	index := map[int64]int{}
	for rows.Next() {
		var id int64
		values := make([]float64, len(names))
		dest := make([]any, 0, len(names)+1)
		dest = append(dest, &id)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		fv := make(model.FeatureVector, len(names))
		for i, name := range names {
			fv[name] = values[i]
		}
		index[id] = len(res)
		res = append(res, model.TrainingSample{Features: fv, Labels: map[string]bool{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labelRows, err := s.db.QueryContext(ctx, `SELECT sample_id, behavior, label FROM sample_labels`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = labelRows.Close() }()
	for labelRows.Next() {
		var id, label int64
		var behavior string
		if err := labelRows.Scan(&id, &behavior, &label); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			res[i].Labels[behavior] = label != 0
		}
	}
	if err := labelRows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Count returns the number of stored samples.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
