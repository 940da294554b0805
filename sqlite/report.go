package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/furnitron"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ furnitron.ReportService = (*ReportService)(nil)

// ReportService implements furnitron.ReportService using SQLite.
type ReportService struct {
	db *DB
}

// NewReportService creates a new ReportService.
func NewReportService(db *DB) *ReportService {
	return &ReportService{db: db}
}

// CreateReport stores the report in a single transaction. A report without
// an ID is assigned a new one.
func (s *ReportService) CreateReport(ctx context.Context, report *furnitron.Report) error {
	if report == nil {
		return furnitron.Errorf(furnitron.EINVALID, "report required")
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at)
		VALUES (?, ?, ?)
	`, report.ID, formatTime(report.StartedAt), formatTime(report.FinishedAt)); err != nil {
		return err
	}

	for _, u := range report.URLs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO url_outcomes (run_id, position, url, outcome, reason, error, attempts, elapsed_ns, candidates)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, report.ID, u.Position, u.URL, string(u.Outcome), u.Reason, u.Error,
			u.Attempts, int64(u.Elapsed), u.Candidates); err != nil {
			return err
		}
		if err := insertNames(ctx, tx, report.ID, u.Position, u.Names, false); err != nil {
			return err
		}
		if err := insertNames(ctx, tx, report.ID, u.Position, u.Degraded, true); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertNames(ctx context.Context, tx *sql.Tx, runID string, position int, names []string, degraded bool) error {
	for i, name := range names {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_names (run_id, position, ordinal, degraded, name, name_hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, position, i, degraded, name, hashName(name)); err != nil {
			return err
		}
	}
	return nil
}

// FindReportByID retrieves a report with its URLs in input order.
func (s *ReportService) FindReportByID(ctx context.Context, id string) (*furnitron.Report, error) {
	var report furnitron.Report
	var startedAt, finishedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&report.ID, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, furnitron.Errorf(furnitron.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}
	if report.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if report.FinishedAt, err = parseTime(finishedAt, "finished_at"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, url, outcome, reason, error, attempts, elapsed_ns, candidates
		FROM url_outcomes
		WHERE run_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPosition := make(map[int]*furnitron.URLReport)
	for rows.Next() {
		var u furnitron.URLReport
		var outcome string
		var elapsed int64
		if err := rows.Scan(&u.Position, &u.URL, &outcome, &u.Reason, &u.Error,
			&u.Attempts, &elapsed, &u.Candidates); err != nil {
			return nil, err
		}
		u.Outcome = furnitron.Outcome(outcome)
		u.Elapsed = time.Duration(elapsed)
		u.Names = []string{}
		report.URLs = append(report.URLs, &u)
		byPosition[u.Position] = &u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names, err := s.db.QueryContext(ctx, `
		SELECT position, degraded, name
		FROM product_names
		WHERE run_id = ?
		ORDER BY position, degraded, ordinal
	`, id)
	if err != nil {
		return nil, err
	}
	defer names.Close()

	for names.Next() {
		var position int
		var degraded bool
		var name string
		if err := names.Scan(&position, &degraded, &name); err != nil {
			return nil, err
		}
		u, ok := byPosition[position]
		if !ok {
			continue
		}
		if degraded {
			u.Degraded = append(u.Degraded, name)
		} else {
			u.Names = append(u.Names, name)
		}
	}
	if err := names.Err(); err != nil {
		return nil, err
	}

	if report.URLs == nil {
		report.URLs = []*furnitron.URLReport{}
	}
	return &report, nil
}

// FindRuns retrieves run summaries, newest first.
func (s *ReportService) FindRuns(ctx context.Context, filter furnitron.RunFilter) ([]*furnitron.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT r.id, r.started_at, r.finished_at,
			(SELECT COUNT(*) FROM url_outcomes u WHERE u.run_id = r.id),
			(SELECT COUNT(*) FROM product_names p WHERE p.run_id = r.id AND p.degraded = 0)
		FROM runs r
		ORDER BY r.started_at DESC, r.id`)
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*furnitron.Run{}
	for rows.Next() {
		var run furnitron.Run
		var startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.URLCount, &run.NameCount); err != nil {
			return nil, err
		}
		if run.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTime(finishedAt, "finished_at"); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// SearchNames returns accepted names containing filter.Query, newest run
// first and in discovery order within a run.
func (s *ReportService) SearchNames(ctx context.Context, filter furnitron.NameFilter) ([]*furnitron.NameMatch, error) {
	if strings.TrimSpace(filter.Query) == "" {
		return nil, furnitron.Errorf(furnitron.EINVALID, "search query required")
	}

	var query strings.Builder
	args := []any{likePattern(filter.Query)}

	query.WriteString(`
		SELECT p.run_id, u.url, p.name
		FROM product_names p
		JOIN url_outcomes u ON u.run_id = p.run_id AND u.position = p.position
		JOIN runs r ON r.id = p.run_id
		WHERE p.degraded = 0 AND p.name LIKE ? ESCAPE '\'`)
	if filter.RunID != nil {
		query.WriteString(" AND p.run_id = ?")
		args = append(args, *filter.RunID)
	}
	query.WriteString(" ORDER BY r.started_at DESC, p.run_id, p.position, p.ordinal")
	appendPagination(&query, &args, filter.Limit, 0)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []*furnitron.NameMatch{}
	for rows.Next() {
		var m furnitron.NameMatch
		if err := rows.Scan(&m.RunID, &m.URL, &m.Name); err != nil {
			return nil, err
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

// CountNames returns accepted names by descending frequency, ties broken
// alphabetically. An empty query counts every name.
func (s *ReportService) CountNames(ctx context.Context, filter furnitron.NameFilter) ([]*furnitron.NameCount, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT name, COUNT(*) AS n
		FROM product_names
		WHERE degraded = 0`)
	if filter.Query != "" {
		query.WriteString(` AND name LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Query))
	}
	if filter.RunID != nil {
		query.WriteString(" AND run_id = ?")
		args = append(args, *filter.RunID)
	}
	query.WriteString(" GROUP BY name_hash, name ORDER BY n DESC, name")
	appendPagination(&query, &args, filter.Limit, 0)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []*furnitron.NameCount{}
	for rows.Next() {
		var c furnitron.NameCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, &c)
	}
	return counts, rows.Err()
}
