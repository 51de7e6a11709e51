package services

import (
	"context"
	"strings"

	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/repositories"

	"go.uber.org/zap"
)

type UserService struct {
	Store repositories.UserRepository
	Log   *zap.Logger
}

func (s UserService) Get(ctx context.Context, id int64) (models.User, error) {
	if id <= 0 {
		return models.User{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	u, err := s.Store.GetUser(ctx, id)
	return u, translate(err, "user")
}

func (s UserService) UpdateProfile(ctx context.Context, userID int64, patch models.UserUpdate) (models.User, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, translate(err, "user")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.User{}, domain.ValidationError{Field: "name", Msg: "cannot be empty"}
		}
		patch.Name = &name
	}
	if patch.University != nil {
		uni := strings.TrimSpace(*patch.University)
		if uni == "" {
			return models.User{}, domain.ValidationError{Field: "university", Msg: "cannot be empty"}
		}
		patch.University = &uni
	}
	patch.Apply(&user)

	updated, err := s.Store.UpdateUser(ctx, user)
	if err != nil {
		return models.User{}, translate(err, "user")
	}

	moduleLogger(ctx, s.Log, "users").Info("profile updated",
		zap.String("action", "update_profile"),
		zap.Int64("user_id", userID),
	)
	return updated, nil
}
