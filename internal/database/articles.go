package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ohess/newsroom/internal/domain"
)

// InsertArticles persists a batch of published articles and their report
// links in a single transaction. All or nothing.
func (db *DB) InsertArticles(items []*domain.Article) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range items {
		var clarification, category, framesJSON *string
		if a.Clarification != "" {
			clarification = &a.Clarification
		}
		if a.Category != "" {
			category = &a.Category
		}
		if a.Frames != nil {
			data, err := json.Marshal(a.Frames)
			if err != nil {
				return fmt.Errorf("marshaling frames: %w", err)
			}
			s := string(data)
			framesJSON = &s
		}

		_, err := tx.Exec(
			`INSERT INTO articles (id, country, language, published_at, authenticity,
				clarification, headline, body, category, frames)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Locale.Country, a.Locale.Language, formatTime(a.PublishedAt),
			string(a.Authenticity), clarification, a.Headline, a.Body, category, framesJSON,
		)
		if err != nil {
			return fmt.Errorf("inserting article: %w", err)
		}

		for _, reportID := range a.ReportIDs {
			if _, err := tx.Exec(
				"INSERT INTO article_reports (article_id, report_id) VALUES (?, ?)",
				a.ID, reportID,
			); err != nil {
				return fmt.Errorf("linking article to report: %w", err)
			}
		}
	}

	return tx.Commit()
}

// CountArticles returns the total number of published articles for a locale.
func (db *DB) CountArticles(locale domain.Locale) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM articles WHERE country = ? AND language = ?",
		locale.Country, locale.Language,
	).Scan(&count)
	return count, err
}

// RecentArticles returns the most recently published articles for a
// locale, newest first.
func (db *DB) RecentArticles(locale domain.Locale, limit int) ([]domain.Article, error) {
	rows, err := db.conn.Query(
		`SELECT id, country, language, published_at, authenticity, clarification,
			headline, body, category, frames
		FROM articles WHERE country = ? AND language = ?
		ORDER BY published_at DESC, id LIMIT ?`,
		locale.Country, locale.Language, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range articles {
		ids, err := db.articleReportIDs(articles[i].ID)
		if err != nil {
			return nil, err
		}
		articles[i].ReportIDs = ids
	}
	return articles, nil
}

func (db *DB) articleReportIDs(articleID string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT report_id FROM article_reports WHERE article_id = ?", articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanArticle(rows *sql.Rows) (*domain.Article, error) {
	var a domain.Article
	var publishedAt string
	var clarification, category, framesJSON *string

	err := rows.Scan(&a.ID, &a.Locale.Country, &a.Locale.Language, &publishedAt,
		(*string)(&a.Authenticity), &clarification, &a.Headline, &a.Body,
		&category, &framesJSON)
	if err != nil {
		return nil, err
	}

	a.PublishedAt = parseTime(publishedAt)
	if clarification != nil {
		a.Clarification = *clarification
	}
	if category != nil {
		a.Category = *category
	}
	if framesJSON != nil {
		if err := json.Unmarshal([]byte(*framesJSON), &a.Frames); err != nil {
			a.Frames = nil
		}
	}
	return &a, nil
}
