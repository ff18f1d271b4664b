package content

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the statement surface Queries runs against. Both *sql.DB and the
// connections handed out by the failover resolver implement it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries provides the content-table operations over one connection.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries instance bound to one connection.
func NewQueries(db DBTX) *Queries {
	return &Queries{
		db: db,
	}
}

var (
	insertContentSQL = `
INSERT INTO content (quote, image_filename)
VALUES ($1, $2)
RETURNING id, created_at;`

	listContentSQL = `
SELECT id, quote, image_filename, created_at
FROM content
ORDER BY created_at DESC, id DESC;`

	getFilenameSQL = `
SELECT image_filename
FROM content
WHERE id = $1;`

	deleteContentSQL = `
DELETE FROM content
WHERE id = $1;`

	countContentSQL = `
SELECT COUNT(*)
FROM content;`
)

// Insert adds a content row and returns the stored record.
func (q *Queries) Insert(ctx context.Context, quote, imageFilename string) (*Record, error) {
	var record = Record{
		Quote:         quote,
		ImageFilename: imageFilename,
	}

	var err = q.db.QueryRowContext(ctx, insertContentSQL, quote, imageFilename).
		Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert content: %w", err)
	}

	return &record, nil
}

// List returns all content rows, newest first.
func (q *Queries) List(ctx context.Context) ([]*Record, error) {
	var rows, err = q.db.QueryContext(ctx, listContentSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.ID, &record.Quote, &record.ImageFilename, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// GetFilename returns the image filename for a row, or "" if the row does
// not exist.
func (q *Queries) GetFilename(ctx context.Context, id int) (string, error) {
	var filename string
	var err = q.db.QueryRowContext(ctx, getFilenameSQL, id).Scan(&filename)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content filename: %w", err)
	}

	return filename, nil
}

// Delete removes a content row by id.
func (q *Queries) Delete(ctx context.Context, id int) error {
	if _, err := q.db.ExecContext(ctx, deleteContentSQL, id); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

// Count returns the number of content rows.
func (q *Queries) Count(ctx context.Context) (int, error) {
	var count int
	if err := q.db.QueryRowContext(ctx, countContentSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}
