package memory

import (
	"context"
	"sort"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

func (s *Store) CreateReview(ctx context.Context, review models.Review) (models.Review, models.RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviewee, ok := s.users[review.RevieweeID]
	if !ok {
		return models.Review{}, models.RatingSummary{}, repositories.ErrNotFound
	}
	ratings := []int{}
	for _, r := range s.reviews {
		if r.RideID == review.RideID && r.ReviewerID == review.ReviewerID && r.RevieweeID == review.RevieweeID {
			return models.Review{}, models.RatingSummary{}, repositories.ErrDuplicate
		}
		if r.RevieweeID == review.RevieweeID {
			ratings = append(ratings, r.Rating)
		}
	}

	s.seq.review++
	review.ID = s.seq.review
	review.CreatedAt = s.now()
	s.reviews[review.ID] = review

	summary := models.Summarize(append(ratings, review.Rating))
	reviewee.Rating = summary.Rating
	reviewee.ReviewCount = summary.ReviewCount
	reviewee.UpdatedAt = review.CreatedAt
	s.users[reviewee.ID] = reviewee
	return review, summary, nil
}

func (s *Store) ListReviewsForUser(ctx context.Context, revieweeID int64) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Review{}
	for _, r := range s.reviews {
		if r.RevieweeID == revieweeID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
