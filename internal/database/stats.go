package database

// Stats contains aggregate database statistics.
type Stats struct {
	TotalReports       int
	PendingDedup       int
	DuplicateReports   int
	ClassifiedReports  int
	TotalArticles      int
	FabricatedArticles int
}

// GetStats returns aggregate counts across all locales.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM reports", &s.TotalReports},
		{"SELECT COUNT(*) FROM reports WHERE dedup_state = 'pending'", &s.PendingDedup},
		{"SELECT COUNT(*) FROM reports WHERE duplicate_of IS NOT NULL", &s.DuplicateReports},
		{"SELECT COUNT(*) FROM reports WHERE classify_state = 'complete'", &s.ClassifiedReports},
		{"SELECT COUNT(*) FROM articles", &s.TotalArticles},
		{"SELECT COUNT(*) FROM articles WHERE authenticity = 'fabricated'", &s.FabricatedArticles},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
