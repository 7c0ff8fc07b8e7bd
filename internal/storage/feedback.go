package storage

import (
	"context"
	"fmt"
)

// InsertFeedback stores one rated answer and returns its id.
func (s *Store) InsertFeedback(ctx context.Context, question, response string, rating Rating) (int64, error) {
	if !rating.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, rating)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedbacks (question, response, feedback) VALUES (?, ?, ?)`,
		question, response, string(rating),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting feedback: %w", err)
	}
	return res.LastInsertId()
}

// ListFeedback returns all feedback rows, newest first.
func (s *Store) ListFeedback(ctx context.Context) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, response, feedback FROM feedbacks ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		var rating string
		if err := rows.Scan(&f.ID, &f.Question, &f.Response, &rating); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		f.Rating = Rating(rating)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteAllFeedback empties the feedbacks table and returns the number of
// rows removed.
func (s *Store) DeleteAllFeedback(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feedbacks`)
	if err != nil {
		return 0, fmt.Errorf("deleting feedback: %w", err)
	}
	return res.RowsAffected()
}
