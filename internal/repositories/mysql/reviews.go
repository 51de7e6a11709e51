package mysql

import (
	"context"
	"database/sql"

	"campusride/internal/domain/models"
)

func (s *Store) CreateReview(ctx context.Context, review models.Review) (models.Review, models.RatingSummary, error) {
	var summary models.RatingSummary
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Lock the reviewee so concurrent reviews serialize their recomputation.
		var revieweeID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, review.RevieweeID).Scan(&revieweeID); err != nil {
			return mapErr(err)
		}

		now := s.now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO reviews (ride_id, reviewer_id, reviewee_id, rating, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			review.RideID, review.ReviewerID, review.RevieweeID, review.Rating, nullString(review.Comment), now,
		)
		if err != nil {
			return mapErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		review.ID = id
		review.CreatedAt = now

		var avg float64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE reviewee_id = ?`, review.RevieweeID,
		).Scan(&avg, &summary.ReviewCount); err != nil {
			return err
		}
		summary.Rating = models.RoundRating(avg)
		return updateRating(ctx, tx, review.RevieweeID, summary)
	})
	if err != nil {
		return models.Review{}, models.RatingSummary{}, err
	}
	return review, summary, nil
}

func (s *Store) ListReviewsForUser(ctx context.Context, revieweeID int64) ([]models.Review, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, ride_id, reviewer_id, reviewee_id, rating, COALESCE(comment, ''), created_at
		FROM reviews WHERE reviewee_id = ?
		ORDER BY created_at DESC, id DESC`, revieweeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.RideID, &r.ReviewerID, &r.RevieweeID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
