package dailycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cvdwbi/internal/lead"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func parseDay(day string) (time.Time, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}

func (r *PostgresRepo) GetRun(ctx context.Context, day string) (*Run, error) {
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}

	const sql = `
		SELECT to_char(day, 'YYYY-MM-DD'), status, started_at, finished_at,
			total_records, total_pages, pages_processed, lead_count,
			extra_field_count, skipped_pages, error
		FROM daily_collection_runs
		WHERE day = $1`

	var run Run
	var status string
	err = r.db.QueryRow(ctx, sql, d).Scan(
		&run.Day, &status, &run.StartedAt, &run.FinishedAt,
		&run.TotalRecords, &run.TotalPages, &run.PagesProcessed, &run.LeadCount,
		&run.ExtraFieldCount, &run.SkippedPages, &run.Error,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	return &run, nil
}

// StartRun clears the day's partial rows from an earlier attempt so a
// re-crawl never duplicates leads, then upserts the run.
func (r *PostgresRepo) StartRun(ctx context.Context, run *Run) error {
	d, err := parseDay(run.Day)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM daily_extra_fields WHERE day = $1`, d); err != nil {
		return fmt.Errorf("clear extra fields: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM daily_leads WHERE day = $1`, d); err != nil {
		return fmt.Errorf("clear leads: %w", err)
	}

	const upsert = `
		INSERT INTO daily_collection_runs (day, status, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (day) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			finished_at = NULL,
			total_records = 0,
			total_pages = 0,
			pages_processed = 0,
			lead_count = 0,
			extra_field_count = 0,
			skipped_pages = '{}',
			error = ''`
	if _, err := tx.Exec(ctx, upsert, d, string(run.Status), run.StartedAt); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	d, err := parseDay(run.Day)
	if err != nil {
		return err
	}

	const sql = `
		UPDATE daily_collection_runs SET
			status = $2,
			finished_at = $3,
			total_records = $4,
			total_pages = $5,
			pages_processed = $6,
			lead_count = $7,
			extra_field_count = $8,
			skipped_pages = $9,
			error = $10
		WHERE day = $1`

	skipped := run.SkippedPages
	if skipped == nil {
		skipped = []int{}
	}
	tag, err := r.db.Exec(ctx, sql, d, string(run.Status), run.FinishedAt,
		run.TotalRecords, run.TotalPages, run.PagesProcessed, run.LeadCount,
		run.ExtraFieldCount, skipped, run.Error)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// StorePage inserts a page in one transaction. Leads already stored for the
// day are ignored together with their extra fields.
func (r *PostgresRepo) StorePage(ctx context.Context, day string, leads []lead.Lead) (PageStats, error) {
	var stats PageStats
	if len(leads) == 0 {
		return stats, nil
	}
	d, err := parseDay(day)
	if err != nil {
		return stats, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback(ctx)

	const insertLead = `
		INSERT INTO daily_leads (day, lead_id, lead_data, extra_field_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day, lead_id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, l := range leads {
		data, err := json.Marshal(l)
		if err != nil {
			return stats, fmt.Errorf("encode lead %d: %w", l.ID, err)
		}
		batch.Queue(insertLead, d, l.ID, data, len(l.ExtraFields))
	}

	br := tx.SendBatch(ctx, batch)
	var rows [][]any
	for _, l := range leads {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return stats, fmt.Errorf("insert lead %d: %w", l.ID, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		stats.Leads++
		for _, f := range l.ExtraFields {
			rows = append(rows, []any{d, l.ID, f.FieldID, f.Name, f.Value, f.Type, f.ReferenceDate})
		}
	}
	if err := br.Close(); err != nil {
		return stats, err
	}

	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"daily_extra_fields"},
			[]string{"day", "lead_id", "field_id", "name", "value", "type", "reference_date"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return stats, fmt.Errorf("copy extra fields: %w", err)
		}
		stats.ExtraFields = int(n)
	}

	if err := tx.Commit(ctx); err != nil {
		return PageStats{}, err
	}
	return stats, nil
}

func (r *PostgresRepo) ListLeads(ctx context.Context, day string, limit, offset int) ([]lead.Lead, error) {
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}

	var lim any
	if limit > 0 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}

	const sql = `
		SELECT lead_data
		FROM daily_leads
		WHERE day = $1
		ORDER BY lead_id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, sql, d, lim, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []lead.Lead
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		l, err := lead.Decode(raw)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *PostgresRepo) CountLeads(ctx context.Context, day string) (int, error) {
	d, err := parseDay(day)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM daily_leads WHERE day = $1`, d).Scan(&n)
	return n, err
}

func (r *PostgresRepo) ExtraFieldSummary(ctx context.Context, day string, top int) (*ExtraFieldSummary, error) {
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}

	sum := &ExtraFieldSummary{Day: day, Distribution: []FieldCount{}}

	const totals = `
		SELECT COUNT(*), COUNT(DISTINCT name), COUNT(DISTINCT lead_id)
		FROM daily_extra_fields
		WHERE day = $1`
	if err := r.db.QueryRow(ctx, totals, d).Scan(&sum.Total, &sum.UniqueNames, &sum.LeadsWithExtraFields); err != nil {
		return nil, err
	}

	const dist = `
		SELECT name, COUNT(*) AS n
		FROM daily_extra_fields
		WHERE day = $1
		GROUP BY name
		ORDER BY n DESC, name
		LIMIT $2`
	rows, err := r.db.Query(ctx, dist, d, top)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var fc FieldCount
		if err := rows.Scan(&fc.Name, &fc.Count); err != nil {
			return nil, err
		}
		sum.Distribution = append(sum.Distribution, fc)
	}
	return sum, rows.Err()
}

func (r *PostgresRepo) DeleteExcept(ctx context.Context, day string) (*CleanupResult, error) {
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var res CleanupResult
	tag, err := tx.Exec(ctx, `DELETE FROM daily_extra_fields WHERE day <> $1`, d)
	if err != nil {
		return nil, err
	}
	res.ExtraFieldsRemoved = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM daily_leads WHERE day <> $1`, d)
	if err != nil {
		return nil, err
	}
	res.LeadsRemoved = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM daily_collection_runs WHERE day <> $1`, d)
	if err != nil {
		return nil, err
	}
	res.RunsRemoved = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &res, nil
}
