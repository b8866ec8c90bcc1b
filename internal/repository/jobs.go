// Package repository provides the GORM-backed implementations of the store
// interfaces the engines declare. Each engine receives only the narrow
// interface it needs; this one struct satisfies them all.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/services/job"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Contractor").
		First(&j, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "job not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "loading job", err)
	}
	return &j, nil
}

func (s *Store) FindJobs(ctx context.Context, f job.Filter) ([]models.Job, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Job{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.ContractorID != nil {
		q = q.Where("contractor_id = ?", *f.ContractorID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "counting jobs", err)
	}

	var jobs []models.Job
	err := q.Preload("Customer").
		Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, "listing jobs", err)
	}
	return jobs, total, nil
}

func (s *Store) InsertJob(ctx context.Context, j *models.Job) error {
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, "creating job", err)
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, id uuid.UUID, patch map[string]any) (*models.Job, error) {
	res := s.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "updating job", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, "job not found")
	}
	return s.GetJob(ctx, id)
}

func (s *Store) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&models.Job{}, "id = ?", id).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, "deleting job", err)
	}
	return nil
}

func (s *Store) CountBidsForJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Bid{}).Where("job_id = ?", jobID).Count(&n).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "counting bids", err)
	}
	return n, nil
}

// AssignContractorIfOpen is the compare-and-swap write protecting the bid
// acceptance race: the update carries the expected status in its WHERE
// clause, so of two concurrent accepts exactly one sees RowsAffected == 1.
func (s *Store) AssignContractorIfOpen(ctx context.Context, jobID, contractorID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusOpen).
		Updates(map[string]any{
			"contractor_id": contractorID,
			"status":        models.JobStatusInProgress,
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindPersistence, "assigning contractor", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindConflict, "job no longer open")
	}
	return nil
}

func (s *Store) ReopenJob(ctx context.Context, jobID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"contractor_id": nil,
			"status":        models.JobStatusOpen,
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindPersistence, "reopening job", res.Error)
	}
	return nil
}
