package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher over the posts table as a fallback when
// Meilisearch is down or not configured.
type PgSearch struct {
	db *sql.DB
}

// NewPgSearch creates a PostgreSQL-backed feed searcher.
func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

// Search runs a case-insensitive substring match over post content and
// author names, newest first.
func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + q.Text + "%"

	var total int
	if err := p.db.QueryRow(
		`SELECT COUNT(*) FROM posts WHERE content ILIKE $1 OR username ILIKE $1`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := p.db.Query(`
		SELECT id, username, content, ts
		FROM posts
		WHERE content ILIKE $1 OR username ILIKE $1
		ORDER BY ts DESC
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search posts: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Username, &r.Snippet, &r.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}
