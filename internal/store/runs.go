package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// runTime is fixed width so started_at sorts as text.
const runTime = "2006-01-02T15:04:05.000000Z07:00"

// FetchRun records one upstream fetch of one company page.
type FetchRun struct {
	ID         string    `json:"id"`
	Company    string    `json:"company"`
	Query      string    `json:"query"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
	Jobs       int       `json:"jobs"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
}

// InsertRun stores r, assigning an id when it has none.
func InsertRun(ctx context.Context, db *sql.DB, r FetchRun) (FetchRun, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	r.StartedAt = r.StartedAt.UTC()

	_, err := db.ExecContext(ctx, `
INSERT INTO fetch_runs(id, company, query, started_at, duration_ms, jobs, total, error)
VALUES(?,?,?,?,?,?,?,?);`,
		r.ID, r.Company, r.Query, r.StartedAt.Format(runTime), r.DurationMS, r.Jobs, r.Total, r.Error,
	)
	if err != nil {
		return r, fmt.Errorf("insert fetch run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first, optionally for one company.
func ListRuns(ctx context.Context, db *sql.DB, company string, limit int) ([]FetchRun, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	where := ""
	args := []any{}
	if c := strings.TrimSpace(company); c != "" {
		where = "WHERE company = ?"
		args = append(args, c)
	}
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, company, query, started_at, duration_ms, jobs, total, error
FROM fetch_runs
%s
ORDER BY started_at DESC
LIMIT ?;`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FetchRun{}
	for rows.Next() {
		var r FetchRun
		var started string
		if err := rows.Scan(&r.ID, &r.Company, &r.Query, &started, &r.DurationMS, &r.Jobs, &r.Total, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(runTime, started)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CleanupOldRuns drops runs older than keep.
func CleanupOldRuns(ctx context.Context, db *sql.DB, keep time.Duration) (deleted int64, err error) {
	cutoff := time.Now().Add(-keep).UTC().Format(runTime)
	res, err := db.ExecContext(ctx, `DELETE FROM fetch_runs WHERE started_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
