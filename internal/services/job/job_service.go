// Package job owns the job lifecycle: the status transition table and the
// preconditions on every mutation. All storage access goes through the Store
// interface so the engine can be exercised against fakes.
package job

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/services/policy"
)

// transitions is the only source of truth for legal status moves.
// completed and cancelled are terminal.
var transitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusOpen:       {models.JobStatusInProgress, models.JobStatusCancelled},
	models.JobStatusInProgress: {models.JobStatusCompleted, models.JobStatusCancelled},
	models.JobStatusCompleted:  {},
	models.JobStatusCancelled:  {},
}

// CanTransition reports whether from→to is in the transition table.
func CanTransition(from, to models.JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Filter narrows job listings.
type Filter struct {
	Status       models.JobStatus
	Category     string
	CustomerID   *uuid.UUID
	ContractorID *uuid.UUID
	Page         int
	Limit        int
}

type Store interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FindJobs(ctx context.Context, f Filter) ([]models.Job, int64, error)
	InsertJob(ctx context.Context, j *models.Job) error
	UpdateJob(ctx context.Context, id uuid.UUID, patch map[string]any) (*models.Job, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
	CountBidsForJob(ctx context.Context, jobID uuid.UUID) (int64, error)
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("engine", "job").Logger()}
}

type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Budget      float64  `json:"budget"`
	Images      []string `json:"images"`
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.New(apperr.KindValidation, "title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperr.New(apperr.KindValidation, "description is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return apperr.New(apperr.KindValidation, "category is required")
	}
	if in.Budget <= 0 {
		return apperr.New(apperr.KindValidation, "budget must be positive")
	}
	return nil
}

// Create posts a new job in status open with no contractor.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*models.Job, error) {
	if err := policy.CanCreateJob(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	j := &models.Job{
		CustomerID:  actor.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		Budget:      in.Budget,
		Status:      models.JobStatusOpen,
	}
	if len(in.Images) > 0 {
		raw, err := json.Marshal(in.Images)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "invalid images list", err)
		}
		j.Images = datatypes.JSON(raw)
	}

	if err := s.store.InsertJob(ctx, j); err != nil {
		return nil, err
	}
	s.log.Info().Str("job_id", j.ID.String()).Str("customer_id", actor.UserID.String()).Msg("job created")
	return j, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.store.GetJob(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.Job, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return s.store.FindJobs(ctx, f)
}

// UpdateInput is a sparse patch; nil means "leave unchanged".
type UpdateInput struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Category    *string           `json:"category"`
	Location    *string           `json:"location"`
	Budget      *float64          `json:"budget"`
	Images      *[]string         `json:"images"`
	Status      *models.JobStatus `json:"status"`
}

func (in *UpdateInput) hasFieldEdits() bool {
	return in.Title != nil || in.Description != nil || in.Category != nil ||
		in.Location != nil || in.Budget != nil || in.Images != nil
}

// Update applies field edits (open jobs only) and/or a status transition
// validated against the table. An empty patch is a no-op: nothing is
// written and updated_at keeps its value.
func (s *Service) Update(ctx context.Context, actor policy.Actor, jobID uuid.UUID, in UpdateInput) (*models.Job, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanManageJob(actor, j); err != nil {
		return nil, err
	}

	patch := map[string]any{}

	if in.hasFieldEdits() {
		if j.Status != models.JobStatusOpen {
			return nil, apperr.New(apperr.KindInvalidState, "job fields can only be edited while open")
		}
		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return nil, apperr.New(apperr.KindValidation, "title cannot be empty")
			}
			patch["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			patch["description"] = *in.Description
		}
		if in.Category != nil {
			patch["category"] = *in.Category
		}
		if in.Location != nil {
			patch["location"] = *in.Location
		}
		if in.Budget != nil {
			if *in.Budget <= 0 {
				return nil, apperr.New(apperr.KindValidation, "budget must be positive")
			}
			patch["budget"] = *in.Budget
		}
		if in.Images != nil {
			raw, err := json.Marshal(*in.Images)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindValidation, "invalid images list", err)
			}
			patch["images"] = datatypes.JSON(raw)
		}
	}

	if in.Status != nil {
		to := *in.Status
		if !CanTransition(j.Status, to) {
			return nil, apperr.New(apperr.KindInvalidState,
				"invalid status transition from "+string(j.Status)+" to "+string(to))
		}
		if to == models.JobStatusInProgress && j.ContractorID == nil {
			// Only bid acceptance may assign the contractor; a direct
			// client call can never satisfy this.
			return nil, apperr.New(apperr.KindPrecondition, "cannot start a job without an assigned contractor")
		}
		patch["status"] = to
	}

	if len(patch) == 0 {
		return j, nil
	}

	updated, err := s.store.UpdateJob(ctx, jobID, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("job_id", jobID.String()).Str("status", string(updated.Status)).Msg("job updated")
	return updated, nil
}

// Delete hard-removes an open job with no bids against it.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, jobID uuid.UUID) error {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := policy.CanManageJob(actor, j); err != nil {
		return err
	}
	if j.Status != models.JobStatusOpen {
		return apperr.New(apperr.KindInvalidState, "only open jobs can be deleted")
	}
	n, err := s.store.CountBidsForJob(ctx, jobID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.New(apperr.KindConflict, "jobs with bids cannot be deleted")
	}
	if err := s.store.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	s.log.Info().Str("job_id", jobID.String()).Msg("job deleted")
	return nil
}
