// Package bid owns the bid lifecycle and the exclusive-acceptance protocol
// that moves a job to in_progress. The storage contract exposes no
// multi-record transaction, so acceptance is a compare-and-swap on the job
// status followed by compensating recovery if the bid write fails.
package bid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/services/policy"
)

type Store interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindBidsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error)
	FindBidByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.Bid, error)
	InsertBid(ctx context.Context, b *models.Bid) error
	UpdateBid(ctx context.Context, id uuid.UUID, patch map[string]any) (*models.Bid, error)
	DeleteBid(ctx context.Context, id uuid.UUID) error

	// AssignContractorIfOpen sets contractor_id and status=in_progress only
	// if the job is still open, returning a conflict error otherwise.
	AssignContractorIfOpen(ctx context.Context, jobID, contractorID uuid.UUID) error
	// ReopenJob reverses AssignContractorIfOpen: status back to open,
	// contractor cleared.
	ReopenJob(ctx context.Context, jobID uuid.UUID) error
	// RejectPendingBids marks every pending bid on the job rejected except
	// the given one.
	RejectPendingBids(ctx context.Context, jobID, exceptBidID uuid.UUID) error
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("engine", "bid").Logger()}
}

type CreateInput struct {
	JobID         uuid.UUID `json:"job_id"`
	Amount        float64   `json:"amount"`
	Proposal      string    `json:"proposal"`
	EstimatedDays *int      `json:"estimated_days"`
}

// Create places a pending bid on an open job. A contractor gets one bid per
// job; repeats are rejected and should go through Update instead.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*models.Bid, error) {
	if in.Amount <= 0 {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}
	if in.EstimatedDays != nil && *in.EstimatedDays <= 0 {
		return nil, apperr.New(apperr.KindValidation, "estimated_days must be positive")
	}

	j, err := s.store.GetJob(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanCreateBid(actor, j); err != nil {
		return nil, err
	}
	if j.Status != models.JobStatusOpen {
		return nil, apperr.New(apperr.KindInvalidState, "job is not open for bidding")
	}

	existing, err := s.store.FindBidByJobAndContractor(ctx, in.JobID, actor.UserID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.KindConflict, "you already have a bid on this job, update it instead")
	}

	b := &models.Bid{
		JobID:         in.JobID,
		ContractorID:  actor.UserID,
		Amount:        in.Amount,
		Proposal:      in.Proposal,
		EstimatedDays: in.EstimatedDays,
		Status:        models.BidStatusPending,
	}
	if err := s.store.InsertBid(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info().Str("bid_id", b.ID.String()).Str("job_id", in.JobID.String()).Msg("bid placed")
	return b, nil
}

type UpdateInput struct {
	Amount        *float64 `json:"amount"`
	Proposal      *string  `json:"proposal"`
	EstimatedDays *int     `json:"estimated_days"`
}

// mutable checks the shared precondition for bid edits and withdrawal:
// caller owns the bid, bid still pending, parent job still open.
func (s *Service) mutable(ctx context.Context, actor policy.Actor, bidID uuid.UUID) (*models.Bid, error) {
	b, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanManageBid(actor, b); err != nil {
		return nil, err
	}
	if b.Status != models.BidStatusPending {
		return nil, apperr.New(apperr.KindInvalidState, "bid is no longer pending")
	}
	j, err := s.store.GetJob(ctx, b.JobID)
	if err != nil {
		return nil, err
	}
	if j.Status != models.JobStatusOpen {
		return nil, apperr.New(apperr.KindInvalidState, "job is no longer open")
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, actor policy.Actor, bidID uuid.UUID, in UpdateInput) (*models.Bid, error) {
	if _, err := s.mutable(ctx, actor, bidID); err != nil {
		return nil, err
	}

	patch := map[string]any{}
	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, apperr.New(apperr.KindValidation, "amount must be positive")
		}
		patch["amount"] = *in.Amount
	}
	if in.Proposal != nil {
		patch["proposal"] = *in.Proposal
	}
	if in.EstimatedDays != nil {
		if *in.EstimatedDays <= 0 {
			return nil, apperr.New(apperr.KindValidation, "estimated_days must be positive")
		}
		patch["estimated_days"] = *in.EstimatedDays
	}
	if len(patch) == 0 {
		return s.store.GetBid(ctx, bidID)
	}
	return s.store.UpdateBid(ctx, bidID, patch)
}

func (s *Service) Delete(ctx context.Context, actor policy.Actor, bidID uuid.UUID) error {
	if _, err := s.mutable(ctx, actor, bidID); err != nil {
		return err
	}
	return s.store.DeleteBid(ctx, bidID)
}

// View is the caller-facing shape of a bid. Commercial fields are nil when
// the viewer is neither the job owner nor the bidding contractor.
type View struct {
	ID            uuid.UUID        `json:"id"`
	JobID         uuid.UUID        `json:"job_id"`
	ContractorID  uuid.UUID        `json:"contractor_id"`
	Status        models.BidStatus `json:"status"`
	Amount        *float64         `json:"amount"`
	Proposal      *string          `json:"proposal"`
	EstimatedDays *int             `json:"estimated_days"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ListForJob returns every bid on the job, redacted per the visibility
// policy for the acting user.
func (s *Service) ListForJob(ctx context.Context, actor policy.Actor, jobID uuid.UUID) ([]View, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.FindBidsByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	out := make([]View, 0, len(bids))
	for i := range bids {
		b := &bids[i]
		v := View{
			ID:           b.ID,
			JobID:        b.JobID,
			ContractorID: b.ContractorID,
			Status:       b.Status,
			CreatedAt:    b.CreatedAt,
			UpdatedAt:    b.UpdatedAt,
		}
		if policy.CanViewBidFull(actor, j, b) {
			amount := b.Amount
			proposal := b.Proposal
			v.Amount = &amount
			v.Proposal = &proposal
			v.EstimatedDays = b.EstimatedDays
		}
		out = append(out, v)
	}
	return out, nil
}

// Accept runs the bid acceptance protocol:
//
//  1. compare-and-swap the job to in_progress with the bid's contractor,
//     failing with a conflict if the job is no longer open;
//  2. mark the accepted bid; if this fails the job is reset to open with
//     the contractor cleared before the error surfaces;
//  3. reject the remaining pending bids, best-effort only.
func (s *Service) Accept(ctx context.Context, actor policy.Actor, jobID, bidID uuid.UUID) (*models.Job, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanManageJob(actor, j); err != nil {
		return nil, err
	}
	if j.Status != models.JobStatusOpen {
		return nil, apperr.New(apperr.KindConflict, "job no longer open")
	}

	b, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if b.JobID != jobID {
		return nil, apperr.New(apperr.KindValidation, "bid does not belong to this job")
	}
	if b.Status != models.BidStatusPending {
		// A concurrent acceptance may have rejected this bid between the job
		// read above and here; report that as the job being taken.
		if cur, jerr := s.store.GetJob(ctx, jobID); jerr == nil && cur.Status != models.JobStatusOpen {
			return nil, apperr.New(apperr.KindConflict, "job no longer open")
		}
		return nil, apperr.New(apperr.KindInvalidState, "bid is no longer pending")
	}

	if err := s.store.AssignContractorIfOpen(ctx, jobID, b.ContractorID); err != nil {
		return nil, err
	}

	if _, err := s.store.UpdateBid(ctx, bidID, map[string]any{"status": models.BidStatusAccepted}); err != nil {
		if rbErr := s.store.ReopenJob(ctx, jobID); rbErr != nil {
			s.log.Error().
				Str("job_id", jobID.String()).
				Str("bid_id", bidID.String()).
				AnErr("rollback_err", rbErr).
				Msg("compensating rollback failed, job left in_progress without accepted bid")
		}
		return nil, err
	}

	// Sibling rejection keeps the UI honest but is not required for job
	// state correctness, so a failure here never fails the acceptance.
	if err := s.store.RejectPendingBids(ctx, jobID, bidID); err != nil {
		s.log.Warn().
			Str("job_id", jobID.String()).
			Str("bid_id", bidID.String()).
			Err(err).
			Msg("rejecting sibling bids failed")
	}

	s.log.Info().
		Str("job_id", jobID.String()).
		Str("bid_id", bidID.String()).
		Str("contractor_id", b.ContractorID.String()).
		Msg("bid accepted")

	return s.store.GetJob(ctx, jobID)
}
