package services

import (
	"context"
	"errors"
	"strings"

	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/events"
	"campusride/internal/repositories"

	"go.uber.org/zap"
)

type ReviewInput struct {
	RideID     int64
	RevieweeID int64
	Rating     int
	Comment    string
}

type ReviewService struct {
	Store  repositories.Store
	Events events.Publisher
	Log    *zap.Logger
}

// Create stores a review and refreshes the reviewee's rating aggregate. The
// reviewer must have driven the ride or hold a completed booking on it.
func (s ReviewService) Create(ctx context.Context, reviewer models.User, in ReviewInput) (models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return models.Review{}, domain.ValidationError{Field: "rating", Msg: "must be between 1 and 5"}
	}
	if in.RevieweeID == reviewer.ID {
		return models.Review{}, domain.ValidationError{Field: "revieweeId", Msg: "you cannot review yourself"}
	}

	ride, err := s.Store.GetRide(ctx, in.RideID)
	if err != nil {
		return models.Review{}, translate(err, "ride")
	}
	if _, err := s.Store.GetUser(ctx, in.RevieweeID); err != nil {
		return models.Review{}, translate(err, "reviewee")
	}

	eligible, err := s.tookPart(ctx, reviewer.ID, ride)
	if err != nil {
		return models.Review{}, err
	}
	if !eligible {
		return models.Review{}, domain.ForbiddenError{Msg: "only the driver or passengers with a completed booking can review this ride"}
	}

	review, summary, err := s.Store.CreateReview(ctx, models.Review{
		RideID:     in.RideID,
		ReviewerID: reviewer.ID,
		RevieweeID: in.RevieweeID,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		return models.Review{}, domain.ConflictError{Resource: "review", Msg: "you already reviewed this user for this ride", Err: err}
	}
	if err != nil {
		return models.Review{}, translate(err, "review")
	}

	log := moduleLogger(ctx, s.Log, "reviews")
	log.Info("review created",
		zap.String("action", "create"),
		zap.Int64("review_id", review.ID),
		zap.Int64("reviewee_id", in.RevieweeID),
		zap.Float64("rating", summary.Rating),
		zap.Int("review_count", summary.ReviewCount),
	)
	publish(ctx, s.Events, log, events.New(events.ReviewCreated, map[string]any{
		"reviewId":    review.ID,
		"rideId":      review.RideID,
		"revieweeId":  review.RevieweeID,
		"rating":      summary.Rating,
		"reviewCount": summary.ReviewCount,
	}))
	return review, nil
}

func (s ReviewService) tookPart(ctx context.Context, userID int64, ride models.Ride) (bool, error) {
	if ride.DriverID == userID {
		return true, nil
	}
	bookings, err := s.Store.ListBookingsByRide(ctx, ride.ID)
	if err != nil {
		return false, translate(err, "booking")
	}
	for _, b := range bookings {
		if b.PassengerID == userID && b.Status == models.BookingCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s ReviewService) ListForUser(ctx context.Context, userID int64) ([]models.Review, error) {
	if _, err := s.Store.GetUser(ctx, userID); err != nil {
		return nil, translate(err, "user")
	}
	reviews, err := s.Store.ListReviewsForUser(ctx, userID)
	return reviews, translate(err, "review")
}
