package rating

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/services/policy"
)

type memStore struct {
	jobs    map[uuid.UUID]*models.Job
	ratings []models.Rating
}

func newMemStore() *memStore {
	return &memStore{jobs: map[uuid.UUID]*models.Job{}}
}

func (m *memStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	j, found := m.jobs[id]
	if !found {
		return nil, apperr.New(apperr.KindNotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) FindRating(_ context.Context, jobID, fromUserID uuid.UUID) (*models.Rating, error) {
	for i := range m.ratings {
		if m.ratings[i].JobID == jobID && m.ratings[i].FromUserID == fromUserID {
			cp := m.ratings[i]
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "rating not found")
}

func (m *memStore) InsertRating(_ context.Context, r *models.Rating) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.ratings = append(m.ratings, *r)
	return nil
}

func (m *memStore) FindRatingsForUser(_ context.Context, userID uuid.UUID) ([]models.Rating, error) {
	var out []models.Rating
	for _, r := range m.ratings {
		if r.ToUserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) addCompletedJob(customerID, contractorID uuid.UUID) *models.Job {
	cid := contractorID
	j := &models.Job{
		ID:           uuid.New(),
		CustomerID:   customerID,
		ContractorID: &cid,
		Status:       models.JobStatusCompleted,
	}
	m.jobs[j.ID] = j
	return j
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, zerolog.Nop()), store
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()

	t.Run("BothDirections", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addCompletedJob(customerID, contractorID)

		fromCustomer := policy.Actor{UserID: customerID, Role: models.RoleCustomer}
		r, err := svc.Submit(ctx, fromCustomer, SubmitInput{JobID: j.ID, ToUserID: contractorID, Value: 5, Comment: "great work"})
		if err != nil {
			t.Fatalf("customer rating failed: %v", err)
		}
		if r.FromUserID != customerID || r.ToUserID != contractorID {
			t.Error("rating direction mismatch")
		}

		fromContractor := policy.Actor{UserID: contractorID, Role: models.RoleContractor}
		if _, err := svc.Submit(ctx, fromContractor, SubmitInput{JobID: j.ID, ToUserID: customerID, Value: 4}); err != nil {
			t.Fatalf("contractor rating failed: %v", err)
		}
	})

	t.Run("SecondRatingSameDirectionConflicts", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addCompletedJob(customerID, contractorID)
		a := policy.Actor{UserID: customerID, Role: models.RoleCustomer}

		if _, err := svc.Submit(ctx, a, SubmitInput{JobID: j.ID, ToUserID: contractorID, Value: 5}); err != nil {
			t.Fatalf("first rating failed: %v", err)
		}
		if _, err := svc.Submit(ctx, a, SubmitInput{JobID: j.ID, ToUserID: contractorID, Value: 1}); !apperr.IsKind(err, apperr.KindConflict) {
			t.Errorf("err = %v, want conflict", err)
		}
	})

	t.Run("ValueOutOfRange", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addCompletedJob(customerID, contractorID)
		a := policy.Actor{UserID: customerID, Role: models.RoleCustomer}

		for _, v := range []int{0, 6, -1} {
			if _, err := svc.Submit(ctx, a, SubmitInput{JobID: j.ID, ToUserID: contractorID, Value: v}); !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("value %d: err = %v, want validation error", v, err)
			}
		}
	})

	t.Run("WrongTarget", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addCompletedJob(customerID, contractorID)
		a := policy.Actor{UserID: customerID, Role: models.RoleCustomer}

		if _, err := svc.Submit(ctx, a, SubmitInput{JobID: j.ID, ToUserID: uuid.New(), Value: 5}); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("err = %v, want validation error", err)
		}
	})

	t.Run("NonPartyForbidden", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addCompletedJob(customerID, contractorID)
		stranger := policy.Actor{UserID: uuid.New(), Role: models.RoleCustomer}

		if _, err := svc.Submit(ctx, stranger, SubmitInput{JobID: j.ID, ToUserID: contractorID, Value: 5}); !apperr.IsKind(err, apperr.KindAuthorization) {
			t.Errorf("err = %v, want authorization error", err)
		}
	})

	t.Run("JobNotCompleted", func(t *testing.T) {
		svc, store := newTestService()
		j := store.addCompletedJob(customerID, contractorID)
		store.jobs[j.ID].Status = models.JobStatusInProgress
		a := policy.Actor{UserID: customerID, Role: models.RoleCustomer}

		if _, err := svc.Submit(ctx, a, SubmitInput{JobID: j.ID, ToUserID: contractorID, Value: 5}); !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Errorf("err = %v, want invalid state", err)
		}
	})
}

func TestForUser(t *testing.T) {
	ctx := context.Background()
	customerA := uuid.New()
	customerB := uuid.New()
	contractorID := uuid.New()

	svc, store := newTestService()
	j1 := store.addCompletedJob(customerA, contractorID)
	j2 := store.addCompletedJob(customerB, contractorID)

	if _, err := svc.Submit(ctx, policy.Actor{UserID: customerA, Role: models.RoleCustomer}, SubmitInput{JobID: j1.ID, ToUserID: contractorID, Value: 5}); err != nil {
		t.Fatalf("rating on job 1 failed: %v", err)
	}
	if _, err := svc.Submit(ctx, policy.Actor{UserID: customerB, Role: models.RoleCustomer}, SubmitInput{JobID: j2.ID, ToUserID: contractorID, Value: 2}); err != nil {
		t.Fatalf("rating on job 2 failed: %v", err)
	}

	sum, err := svc.ForUser(ctx, contractorID)
	if err != nil {
		t.Fatalf("ForUser failed: %v", err)
	}
	if sum.Count != 2 {
		t.Errorf("count = %d, want 2", sum.Count)
	}
	if sum.Average != 3.5 {
		t.Errorf("average = %v, want 3.5", sum.Average)
	}

	empty, err := svc.ForUser(ctx, uuid.New())
	if err != nil {
		t.Fatalf("ForUser on unrated user failed: %v", err)
	}
	if empty.Count != 0 || empty.Average != 0 {
		t.Errorf("unrated user: count = %d average = %v, want zeroes", empty.Count, empty.Average)
	}
}
