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

func (s *Store) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var b models.Bid
	err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "bid not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "loading bid", err)
	}
	return &b, nil
}

func (s *Store) FindBidsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.WithContext(ctx).
		Preload("Contractor").
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&bids).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "listing bids", err)
	}
	return bids, nil
}

func (s *Store) FindBidByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.Bid, error) {
	var b models.Bid
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND contractor_id = ?", jobID, contractorID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "bid not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "loading bid", err)
	}
	return &b, nil
}

func (s *Store) InsertBid(ctx context.Context, b *models.Bid) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		// The unique index on (job_id, contractor_id) backs the
		// one-bid-per-contractor invariant under concurrent inserts.
		if strings.Contains(err.Error(), "idx_bids_job_contractor") {
			return apperr.New(apperr.KindConflict, "you already have a bid on this job, update it instead")
		}
		return apperr.Wrap(apperr.KindPersistence, "creating bid", err)
	}
	return nil
}

func (s *Store) UpdateBid(ctx context.Context, id uuid.UUID, patch map[string]any) (*models.Bid, error) {
	res := s.db.WithContext(ctx).Model(&models.Bid{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "updating bid", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, "bid not found")
	}
	return s.GetBid(ctx, id)
}

func (s *Store) DeleteBid(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&models.Bid{}, "id = ?", id).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, "deleting bid", err)
	}
	return nil
}

func (s *Store) RejectPendingBids(ctx context.Context, jobID, exceptBidID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&models.Bid{}).
		Where("job_id = ? AND id <> ? AND status = ?", jobID, exceptBidID, models.BidStatusPending).
		Update("status", models.BidStatusRejected).Error
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "rejecting sibling bids", err)
	}
	return nil
}
