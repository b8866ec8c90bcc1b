// Package rating handles post-completion ratings between the two parties of
// a job, one per direction.
package rating

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/services/policy"
)

type Store interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FindRating(ctx context.Context, jobID, fromUserID uuid.UUID) (*models.Rating, error)
	InsertRating(ctx context.Context, r *models.Rating) error
	FindRatingsForUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error)
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("engine", "rating").Logger()}
}

type SubmitInput struct {
	JobID    uuid.UUID `json:"job_id"`
	ToUserID uuid.UUID `json:"to_user_id"`
	Value    int       `json:"value"`
	Comment  string    `json:"comment"`
}

func (s *Service) Submit(ctx context.Context, actor policy.Actor, in SubmitInput) (*models.Rating, error) {
	if in.Value < 1 || in.Value > 5 {
		return nil, apperr.New(apperr.KindValidation, "value must be between 1 and 5")
	}

	j, err := s.store.GetJob(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanRate(actor, j, in.ToUserID); err != nil {
		return nil, err
	}

	existing, err := s.store.FindRating(ctx, in.JobID, actor.UserID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.KindConflict, "you already rated this job")
	}

	r := &models.Rating{
		JobID:      in.JobID,
		FromUserID: actor.UserID,
		ToUserID:   in.ToUserID,
		Value:      in.Value,
		Comment:    in.Comment,
	}
	if err := s.store.InsertRating(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info().Str("job_id", in.JobID.String()).Str("to_user_id", in.ToUserID.String()).Msg("rating submitted")
	return r, nil
}

// Summary is a user's received ratings plus their average.
type Summary struct {
	Ratings []models.Rating `json:"ratings"`
	Average float64         `json:"average"`
	Count   int             `json:"count"`
}

func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	ratings, err := s.store.FindRatingsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	out := &Summary{Ratings: ratings, Count: len(ratings)}
	if len(ratings) > 0 {
		out.Average = float64(sum) / float64(len(ratings))
	}
	return out, nil
}
