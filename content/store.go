package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	pgfailover "go-pgfailover"
)

// ErrNotFound is returned when a content id does not exist.
var ErrNotFound = errors.New("content not found")

// Store is the content layer over the failover resolver: each operation
// acquires one connection matching its intent, uses it for one unit of
// work, and releases it on every exit path.
type Store struct {
	db     Acquirer
	files  *FileStore
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger means no logging.
func NewStore(db Acquirer, files *FileStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		db:     db,
		files:  files,
		logger: logger,
	}
}

// Add stores the image artifact, then inserts the referencing row on a
// writable node. If the row cannot be inserted — no writable node, or the
// insert itself fails — the stored artifact is removed before the error is
// surfaced, so a failed add never leaves an orphaned file behind.
func (s *Store) Add(ctx context.Context, quote, imageName string, image io.Reader) (*Record, error) {
	stored, err := s.files.Save(imageName, image)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	conn, err := s.db.Acquire(ctx, pgfailover.Write)
	if err != nil {
		s.discardArtifact(stored)
		return nil, err
	}
	defer conn.Close()

	record, err := NewQueries(conn).Insert(ctx, quote, stored)
	if err != nil {
		s.discardArtifact(stored)
		return nil, err
	}

	return record, nil
}

// List returns all content, newest first. Reads are allowed against any
// reachable node.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	conn, err := s.db.Acquire(ctx, pgfailover.Read)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return NewQueries(conn).List(ctx)
}

// Delete removes a content row and then its image artifact. The artifact
// removal is best effort: once the row is gone the delete has succeeded,
// and a leftover file only costs disk space.
func (s *Store) Delete(ctx context.Context, id int) error {
	conn, err := s.db.Acquire(ctx, pgfailover.Write)
	if err != nil {
		return err
	}
	defer conn.Close()

	var queries = NewQueries(conn)

	filename, err := queries.GetFilename(ctx, id)
	if err != nil {
		return err
	}
	if filename == "" {
		return ErrNotFound
	}

	if err := queries.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.files.Remove(filename); err != nil {
		s.logger.Warn("failed to remove image for deleted content",
			"id", id,
			"filename", filename,
			"error", err)
	}

	return nil
}

// Count returns the number of content rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	conn, err := s.db.Acquire(ctx, pgfailover.Read)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	return NewQueries(conn).Count(ctx)
}

// discardArtifact removes a file stored ahead of a row insert that never
// happened.
func (s *Store) discardArtifact(name string) {
	if err := s.files.Remove(name); err != nil {
		s.logger.Warn("failed to remove orphaned image", "filename", name, "error", err)
	}
}
