package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
)

func (s *Store) FindRating(ctx context.Context, jobID, fromUserID uuid.UUID) (*models.Rating, error) {
	var r models.Rating
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND from_user_id = ?", jobID, fromUserID).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "rating not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "loading rating", err)
	}
	return &r, nil
}

func (s *Store) InsertRating(ctx context.Context, r *models.Rating) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if strings.Contains(err.Error(), "idx_ratings_direction") {
			return apperr.New(apperr.KindConflict, "you already rated this job")
		}
		return apperr.Wrap(apperr.KindPersistence, "creating rating", err)
	}
	return nil
}

func (s *Store) FindRatingsForUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	var ratings []models.Rating
	err := s.db.WithContext(ctx).
		Preload("FromUser").
		Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "listing ratings", err)
	}
	return ratings, nil
}
