package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    country TEXT NOT NULL,
    language TEXT NOT NULL,
    narrative TEXT NOT NULL,
    background TEXT,
    angles TEXT,
    dedup_state TEXT NOT NULL DEFAULT 'pending' CHECK(dedup_state IN ('pending', 'complete')),
    duplicate_of TEXT REFERENCES reports(id),
    tier TEXT CHECK(tier IN ('standard', 'niche', 'archived')),
    classify_state TEXT NOT NULL DEFAULT 'pending' CHECK(classify_state IN ('pending', 'complete')),
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS report_sources (
    report_id TEXT NOT NULL REFERENCES reports(id),
    source_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (report_id, source_id)
);

CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    country TEXT NOT NULL,
    language TEXT NOT NULL,
    published_at TEXT NOT NULL,
    authenticity TEXT NOT NULL CHECK(authenticity IN ('authentic', 'fabricated')),
    clarification TEXT,
    headline TEXT NOT NULL,
    body TEXT NOT NULL,
    category TEXT,
    frames TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS article_reports (
    article_id TEXT NOT NULL REFERENCES articles(id),
    report_id TEXT NOT NULL REFERENCES reports(id),
    PRIMARY KEY (article_id, report_id)
);

CREATE INDEX IF NOT EXISTS idx_reports_locale ON reports(country, language);
CREATE INDEX IF NOT EXISTS idx_reports_dedup ON reports(dedup_state);
CREATE INDEX IF NOT EXISTS idx_reports_classify ON reports(classify_state);
CREATE INDEX IF NOT EXISTS idx_report_sources_source ON report_sources(source_id);
CREATE INDEX IF NOT EXISTS idx_articles_locale ON articles(country, language, published_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
