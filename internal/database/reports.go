package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ohess/newsroom/internal/domain"
)

const reportColumns = `id, country, language, narrative, background, angles,
	dedup_state, duplicate_of, tier, classify_state, created_at, updated_at`

// CreateReport persists a new report together with its source references.
func (db *DB) CreateReport(r *domain.Report) error {
	anglesJSON, err := marshalAngles(r.Angles)
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO reports (id, country, language, narrative, background, angles,
			dedup_state, classify_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Locale.Country, r.Locale.Language, r.Narrative, r.Background, anglesJSON,
		string(r.Dedup), string(r.Classify), formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}

	for i, ref := range r.SourceRefs {
		if _, err := tx.Exec(
			"INSERT INTO report_sources (report_id, source_id, position) VALUES (?, ?, ?)",
			r.ID, ref, i,
		); err != nil {
			return fmt.Errorf("inserting source reference: %w", err)
		}
	}

	return tx.Commit()
}

// GetReport returns a single report by ID, or nil if not found.
func (db *DB) GetReport(id string) (*domain.Report, error) {
	row := db.conn.QueryRow(
		"SELECT "+reportColumns+" FROM reports WHERE id = ?", id,
	)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.SourceRefs, err = db.sourceRefs(r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// FindPendingDedup returns up to limit reports awaiting deduplication for
// a locale, oldest first.
func (db *DB) FindPendingDedup(locale domain.Locale, limit int) ([]domain.Report, error) {
	rows, err := db.conn.Query(
		`SELECT `+reportColumns+` FROM reports
		WHERE dedup_state = 'pending' AND country = ? AND language = ?
		ORDER BY created_at, id LIMIT ?`,
		locale.Country, locale.Language, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.scanReports(rows)
}

// FindRecentSettled returns settled, non-duplicate reports for a locale
// updated since the given time, newest first, excluding the given IDs.
func (db *DB) FindRecentSettled(locale domain.Locale, since time.Time, excludeIDs []string, limit int) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports
		WHERE dedup_state = 'complete' AND duplicate_of IS NULL
		AND country = ? AND language = ? AND updated_at >= ?`
	args := []any{locale.Country, locale.Language, formatTime(since)}

	if len(excludeIDs) > 0 {
		query += " AND id NOT IN (" + placeholders(len(excludeIDs)) + ")"
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY updated_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.scanReports(rows)
}

// AddSourceRefs appends source references to a report as a set union,
// keeping existing order and appending new references at the end.
func (db *DB) AddSourceRefs(id string, refs []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(position), -1) + 1 FROM report_sources WHERE report_id = ?", id,
	).Scan(&next); err != nil {
		return err
	}

	for _, ref := range refs {
		res, err := tx.Exec(
			"INSERT OR IGNORE INTO report_sources (report_id, source_id, position) VALUES (?, ?, ?)",
			id, ref, next,
		)
		if err != nil {
			return fmt.Errorf("appending source reference: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			next++
		}
	}

	_, err = tx.Exec("UPDATE reports SET updated_at = datetime('now') WHERE id = ?", id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// MarkDuplicate links a pending report to the report it duplicates and
// completes its deduplication. Reports that already settled are left
// untouched; deduplication state never moves backward.
func (db *DB) MarkDuplicate(id, duplicateOf string) error {
	_, err := db.conn.Exec(
		`UPDATE reports SET duplicate_of = ?, dedup_state = 'complete', updated_at = datetime('now')
		WHERE id = ? AND dedup_state = 'pending'`,
		duplicateOf, id,
	)
	return err
}

// CompleteDedup advances a pending report to deduplication complete.
func (db *DB) CompleteDedup(id string) error {
	_, err := db.conn.Exec(
		`UPDATE reports SET dedup_state = 'complete', updated_at = datetime('now')
		WHERE id = ? AND dedup_state = 'pending'`,
		id,
	)
	return err
}

// FindPendingClassification returns up to limit settled, non-duplicate
// reports that still await a tier, oldest first.
func (db *DB) FindPendingClassification(limit int) ([]domain.Report, error) {
	rows, err := db.conn.Query(
		`SELECT `+reportColumns+` FROM reports
		WHERE classify_state = 'pending' AND dedup_state = 'complete' AND duplicate_of IS NULL
		ORDER BY created_at, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.scanReports(rows)
}

// SetTier records the classification verdict and completes classification.
func (db *DB) SetTier(id string, tier domain.Tier) error {
	_, err := db.conn.Exec(
		`UPDATE reports SET tier = ?, classify_state = 'complete', updated_at = datetime('now')
		WHERE id = ? AND classify_state = 'pending'`,
		string(tier), id,
	)
	return err
}

// FindPublishable returns classified, settled reports for a locale that
// have not been composed into an article yet. Archived reports are kept
// in storage but never published.
func (db *DB) FindPublishable(locale domain.Locale, limit int) ([]domain.Report, error) {
	rows, err := db.conn.Query(
		`SELECT `+reportColumns+` FROM reports
		WHERE country = ? AND language = ?
		AND dedup_state = 'complete' AND duplicate_of IS NULL
		AND classify_state = 'complete' AND tier IN ('standard', 'niche')
		AND id NOT IN (SELECT report_id FROM article_reports)
		ORDER BY created_at, id LIMIT ?`,
		locale.Country, locale.Language, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.scanReports(rows)
}

// KnownSourceIDs returns every source reference already attached to a
// report for the locale.
func (db *DB) KnownSourceIDs(locale domain.Locale) (map[string]bool, error) {
	rows, err := db.conn.Query(
		`SELECT rs.source_id FROM report_sources rs
		JOIN reports r ON r.id = rs.report_id
		WHERE r.country = ? AND r.language = ?`,
		locale.Country, locale.Language,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		known[id] = true
	}
	return known, rows.Err()
}

func (db *DB) sourceRefs(reportID string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT source_id FROM report_sources WHERE report_id = ? ORDER BY position", reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var r domain.Report
	var background, anglesJSON, duplicateOf, tier *string
	var createdAt, updatedAt string

	err := row.Scan(&r.ID, &r.Locale.Country, &r.Locale.Language, &r.Narrative,
		&background, &anglesJSON, (*string)(&r.Dedup), &duplicateOf, &tier,
		(*string)(&r.Classify), &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if background != nil {
		r.Background = *background
	}
	if anglesJSON != nil {
		if err := json.Unmarshal([]byte(*anglesJSON), &r.Angles); err != nil {
			r.Angles = nil
		}
	}
	r.DuplicateOf = duplicateOf
	if tier != nil {
		t := domain.Tier(*tier)
		r.Tier = &t
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func (db *DB) scanReports(rows *sql.Rows) ([]domain.Report, error) {
	var reports []domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range reports {
		refs, err := db.sourceRefs(reports[i].ID)
		if err != nil {
			return nil, err
		}
		reports[i].SourceRefs = refs
	}
	return reports, nil
}

func marshalAngles(angles []domain.Angle) (*string, error) {
	if angles == nil {
		return nil, nil
	}
	data, err := json.Marshal(angles)
	if err != nil {
		return nil, fmt.Errorf("marshaling angles: %w", err)
	}
	s := string(data)
	return &s, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
