package bid

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/services/policy"
)

// memStore is an in-memory Store double. The job-status compare-and-swap
// runs under the same mutex a real database serializes on, so the accept
// race can be exercised with real goroutines. failUpdateBid and
// failRejectSiblings inject storage failures at protocol steps 2 and 3.
type memStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
	bids map[uuid.UUID]*models.Bid

	failUpdateBid      bool
	failRejectSiblings bool
}

func newMemStore() *memStore {
	return &memStore{
		jobs: map[uuid.UUID]*models.Job{},
		bids: map[uuid.UUID]*models.Bid{},
	}
}

func (m *memStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, found := m.jobs[id]
	if !found {
		return nil, apperr.New(apperr.KindNotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) GetBid(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, found := m.bids[id]
	if !found {
		return nil, apperr.New(apperr.KindNotFound, "bid not found")
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) FindBidsByJob(_ context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bid
	for _, b := range m.bids {
		if b.JobID == jobID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) FindBidByJobAndContractor(_ context.Context, jobID, contractorID uuid.UUID) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bids {
		if b.JobID == jobID && b.ContractorID == contractorID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "bid not found")
}

func (m *memStore) InsertBid(_ context.Context, b *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bids {
		if existing.JobID == b.JobID && existing.ContractorID == b.ContractorID {
			return apperr.New(apperr.KindConflict, "you already have a bid on this job, update it instead")
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	m.bids[b.ID] = &cp
	return nil
}

func (m *memStore) UpdateBid(_ context.Context, id uuid.UUID, patch map[string]any) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdateBid {
		return nil, apperr.Wrap(apperr.KindPersistence, "updating bid", errors.New("storage down"))
	}
	b, found := m.bids[id]
	if !found {
		return nil, apperr.New(apperr.KindNotFound, "bid not found")
	}
	for k, v := range patch {
		switch k {
		case "amount":
			b.Amount = v.(float64)
		case "proposal":
			b.Proposal = v.(string)
		case "estimated_days":
			d := v.(int)
			b.EstimatedDays = &d
		case "status":
			b.Status = v.(models.BidStatus)
		}
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) DeleteBid(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bids, id)
	return nil
}

func (m *memStore) AssignContractorIfOpen(_ context.Context, jobID, contractorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, found := m.jobs[jobID]
	if !found || j.Status != models.JobStatusOpen {
		return apperr.New(apperr.KindConflict, "job no longer open")
	}
	cid := contractorID
	j.ContractorID = &cid
	j.Status = models.JobStatusInProgress
	return nil
}

func (m *memStore) ReopenJob(_ context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, found := m.jobs[jobID]
	if !found {
		return apperr.New(apperr.KindNotFound, "job not found")
	}
	j.ContractorID = nil
	j.Status = models.JobStatusOpen
	return nil
}

func (m *memStore) RejectPendingBids(_ context.Context, jobID, exceptBidID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRejectSiblings {
		return apperr.Wrap(apperr.KindPersistence, "rejecting sibling bids", errors.New("storage down"))
	}
	for _, b := range m.bids {
		if b.JobID == jobID && b.ID != exceptBidID && b.Status == models.BidStatusPending {
			b.Status = models.BidStatusRejected
		}
	}
	return nil
}

func (m *memStore) addOpenJob(customerID uuid.UUID) *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &models.Job{
		ID:         uuid.New(),
		CustomerID: customerID,
		Title:      "Fix kitchen sink",
		Category:   "Plumbing",
		Budget:     100,
		Status:     models.JobStatusOpen,
	}
	m.jobs[j.ID] = j
	return j
}

func customer() policy.Actor {
	return policy.Actor{UserID: uuid.New(), Role: models.RoleCustomer}
}

func contractor() policy.Actor {
	return policy.Actor{UserID: uuid.New(), Role: models.RoleContractor}
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, zerolog.Nop()), store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("NewBidIsPending", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		b, err := svc.Create(ctx, contractor(), CreateInput{JobID: j.ID, Amount: 90})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if b.Status != models.BidStatusPending {
			t.Errorf("status = %s, want pending", b.Status)
		}
	})

	t.Run("SecondBidSameContractorConflicts", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		a := contractor()
		if _, err := svc.Create(ctx, a, CreateInput{JobID: j.ID, Amount: 90}); err != nil {
			t.Fatalf("first bid failed: %v", err)
		}
		if _, err := svc.Create(ctx, a, CreateInput{JobID: j.ID, Amount: 85}); !apperr.IsKind(err, apperr.KindConflict) {
			t.Errorf("err = %v, want conflict", err)
		}
	})

	t.Run("SelfBidForbidden", func(t *testing.T) {
		svc, store := newTestService()
		owner := policy.Actor{UserID: uuid.New(), Role: models.RoleContractor}
		j := store.addOpenJob(owner.UserID)
		if _, err := svc.Create(ctx, owner, CreateInput{JobID: j.ID, Amount: 90}); !apperr.IsKind(err, apperr.KindAuthorization) {
			t.Errorf("err = %v, want authorization error", err)
		}
	})

	t.Run("CustomerRoleForbidden", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		if _, err := svc.Create(ctx, customer(), CreateInput{JobID: j.ID, Amount: 90}); !apperr.IsKind(err, apperr.KindAuthorization) {
			t.Errorf("err = %v, want authorization error", err)
		}
	})

	t.Run("ClosedJobRejected", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		store.mu.Lock()
		store.jobs[j.ID].Status = models.JobStatusCancelled
		store.mu.Unlock()
		if _, err := svc.Create(ctx, contractor(), CreateInput{JobID: j.ID, Amount: 90}); !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Errorf("err = %v, want invalid state", err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		if _, err := svc.Create(ctx, contractor(), CreateInput{JobID: j.ID, Amount: 0}); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("zero amount: err = %v, want validation error", err)
		}
		days := -1
		if _, err := svc.Create(ctx, contractor(), CreateInput{JobID: j.ID, Amount: 10, EstimatedDays: &days}); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("negative days: err = %v, want validation error", err)
		}
	})
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("EditWhilePendingAndOpen", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		a := contractor()
		b, _ := svc.Create(ctx, a, CreateInput{JobID: j.ID, Amount: 90})
		amount := 85.0
		got, err := svc.Update(ctx, a, b.ID, UpdateInput{Amount: &amount})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got.Amount != amount {
			t.Errorf("amount = %v, want %v", got.Amount, amount)
		}
	})

	t.Run("RejectedBidIsImmutable", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		a := contractor()
		b, _ := svc.Create(ctx, a, CreateInput{JobID: j.ID, Amount: 90})
		store.mu.Lock()
		store.bids[b.ID].Status = models.BidStatusRejected
		store.mu.Unlock()
		amount := 85.0
		if _, err := svc.Update(ctx, a, b.ID, UpdateInput{Amount: &amount}); !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Errorf("err = %v, want invalid state", err)
		}
	})

	t.Run("ClosedJobFreezesBid", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		a := contractor()
		b, _ := svc.Create(ctx, a, CreateInput{JobID: j.ID, Amount: 90})
		store.mu.Lock()
		store.jobs[j.ID].Status = models.JobStatusCancelled
		store.mu.Unlock()
		if err := svc.Delete(ctx, a, b.ID); !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Errorf("err = %v, want invalid state", err)
		}
	})

	t.Run("NonOwnerForbidden", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addOpenJob(uuid.New())
		b, _ := svc.Create(ctx, contractor(), CreateInput{JobID: j.ID, Amount: 90})
		if err := svc.Delete(ctx, contractor(), b.ID); !apperr.IsKind(err, apperr.KindAuthorization) {
			t.Errorf("err = %v, want authorization error", err)
		}
	})
}

func TestListForJobRedaction(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	owner := customer()
	j := store.addOpenJob(owner.UserID)

	a := contractor()
	b := contractor()
	days := 3
	bidA, _ := svc.Create(ctx, a, CreateInput{JobID: j.ID, Amount: 90, Proposal: "I can fix it", EstimatedDays: &days})
	bidB, _ := svc.Create(ctx, b, CreateInput{JobID: j.ID, Amount: 80})

	t.Run("OwnerSeesEverything", func(t *testing.T) {
		views, err := svc.ListForJob(ctx, owner, j.ID)
		if err != nil {
			t.Fatalf("ListForJob failed: %v", err)
		}
		if len(views) != 2 {
			t.Fatalf("got %d views, want 2", len(views))
		}
		for _, v := range views {
			if v.Amount == nil {
				t.Errorf("owner should see amount for bid %s", v.ID)
			}
		}
	})

	t.Run("BidderSeesOwnFullOthersRedacted", func(t *testing.T) {
		views, err := svc.ListForJob(ctx, a, j.ID)
		if err != nil {
			t.Fatalf("ListForJob failed: %v", err)
		}
		for _, v := range views {
			switch v.ID {
			case bidA.ID:
				if v.Amount == nil || *v.Amount != 90 || v.EstimatedDays == nil {
					t.Error("bidder should see their own bid in full")
				}
			case bidB.ID:
				if v.Amount != nil || v.Proposal != nil || v.EstimatedDays != nil {
					t.Error("competitor bids must be redacted")
				}
			}
		}
	})
}

func TestAccept(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *memStore, policy.Actor, *models.Job, *models.Bid, *models.Bid) {
		t.Helper()
		svc, store := newTestService()
		owner := customer()
		j := store.addOpenJob(owner.UserID)
		bidA, err := svc.Create(ctx, contractor(), CreateInput{JobID: j.ID, Amount: 90})
		if err != nil {
			t.Fatalf("bid A failed: %v", err)
		}
		bidB, err := svc.Create(ctx, contractor(), CreateInput{JobID: j.ID, Amount: 80})
		if err != nil {
			t.Fatalf("bid B failed: %v", err)
		}
		return svc, store, owner, j, bidA, bidB
	}

	t.Run("HappyPath", func(t *testing.T) {
		svc, store, owner, j, bidA, bidB := setup(t)

		got, err := svc.Accept(ctx, owner, j.ID, bidB.ID)
		if err != nil {
			t.Fatalf("Accept failed: %v", err)
		}
		if got.Status != models.JobStatusInProgress {
			t.Errorf("job status = %s, want in_progress", got.Status)
		}
		if got.ContractorID == nil || *got.ContractorID != bidB.ContractorID {
			t.Error("job contractor should be the accepted bidder")
		}

		accepted, _ := store.GetBid(ctx, bidB.ID)
		if accepted.Status != models.BidStatusAccepted {
			t.Errorf("accepted bid status = %s", accepted.Status)
		}
		sibling, _ := store.GetBid(ctx, bidA.ID)
		if sibling.Status != models.BidStatusRejected {
			t.Errorf("sibling bid status = %s, want rejected", sibling.Status)
		}
	})

	t.Run("NonOwnerForbidden", func(t *testing.T) {
		svc, _, _, j, bidA, _ := setup(t)
		if _, err := svc.Accept(ctx, customer(), j.ID, bidA.ID); !apperr.IsKind(err, apperr.KindAuthorization) {
			t.Errorf("err = %v, want authorization error", err)
		}
	})

	t.Run("WrongJobBid", func(t *testing.T) {
		svc, store, owner, j, _, _ := setup(t)
		other := store.addOpenJob(owner.UserID)
		stray, err := svc.Create(ctx, contractor(), CreateInput{JobID: other.ID, Amount: 50})
		if err != nil {
			t.Fatalf("stray bid failed: %v", err)
		}
		if _, err := svc.Accept(ctx, owner, j.ID, stray.ID); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("err = %v, want validation error", err)
		}
	})

	t.Run("JobNotOpen", func(t *testing.T) {
		svc, store, owner, j, bidA, _ := setup(t)
		store.mu.Lock()
		store.jobs[j.ID].Status = models.JobStatusCancelled
		store.mu.Unlock()
		if _, err := svc.Accept(ctx, owner, j.ID, bidA.ID); !apperr.IsKind(err, apperr.KindConflict) {
			t.Errorf("err = %v, want conflict", err)
		}
	})

	t.Run("Step2FailureRollsBackAssignment", func(t *testing.T) {
		svc, store, owner, j, bidA, _ := setup(t)
		store.failUpdateBid = true

		if _, err := svc.Accept(ctx, owner, j.ID, bidA.ID); err == nil {
			t.Fatal("Accept should surface the step-2 failure")
		}

		cur, _ := store.GetJob(ctx, j.ID)
		if cur.Status != models.JobStatusOpen {
			t.Errorf("job status = %s, want open after rollback", cur.Status)
		}
		if cur.ContractorID != nil {
			t.Error("contractor should be cleared after rollback")
		}
	})

	t.Run("Step3FailureIsNonFatal", func(t *testing.T) {
		svc, store, owner, j, bidA, bidB := setup(t)
		store.failRejectSiblings = true

		got, err := svc.Accept(ctx, owner, j.ID, bidB.ID)
		if err != nil {
			t.Fatalf("Accept should succeed despite sibling rejection failure: %v", err)
		}
		if got.Status != models.JobStatusInProgress {
			t.Errorf("job status = %s, want in_progress", got.Status)
		}
		sibling, _ := store.GetBid(ctx, bidA.ID)
		if sibling.Status != models.BidStatusPending {
			t.Errorf("sibling bid status = %s, want still pending", sibling.Status)
		}
	})

	t.Run("ConcurrentAcceptsHaveOneWinner", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			svc, store, owner, j, bidA, bidB := setup(t)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, errs[0] = svc.Accept(ctx, owner, j.ID, bidA.ID)
			}()
			go func() {
				defer wg.Done()
				_, errs[1] = svc.Accept(ctx, owner, j.ID, bidB.ID)
			}()
			wg.Wait()

			var winners, conflicts int
			for _, err := range errs {
				switch {
				case err == nil:
					winners++
				case apperr.IsKind(err, apperr.KindConflict):
					conflicts++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if winners != 1 || conflicts != 1 {
				t.Fatalf("winners = %d, conflicts = %d, want exactly one of each", winners, conflicts)
			}

			cur, _ := store.GetJob(ctx, j.ID)
			if cur.Status != models.JobStatusInProgress || cur.ContractorID == nil {
				t.Fatal("job must reflect the winner only")
			}
			winner := *cur.ContractorID
			if errs[0] == nil && winner != bidA.ContractorID {
				t.Error("job contractor does not match winning bid A")
			}
			if errs[1] == nil && winner != bidB.ContractorID {
				t.Error("job contractor does not match winning bid B")
			}
		}
	})
}
