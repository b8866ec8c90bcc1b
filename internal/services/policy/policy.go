// Package policy holds the role- and ownership-based access rules shared by
// the job and bid engines. Every check is a pure function of the acting
// identity and the records involved; no I/O happens here.
package policy

import (
	"github.com/google/uuid"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
)

// Actor is the verified identity attached to a request, as produced by the
// token middleware.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

func (a Actor) IsCustomer() bool   { return a.Role == models.RoleCustomer }
func (a Actor) IsContractor() bool { return a.Role == models.RoleContractor }

// CanCreateJob allows only the customer role to post jobs.
func CanCreateJob(a Actor) error {
	if !a.IsCustomer() {
		return apperr.New(apperr.KindAuthorization, "only customers can create jobs")
	}
	return nil
}

// CanManageJob allows the owning customer to edit, delete or assign a job.
func CanManageJob(a Actor, job *models.Job) error {
	if !a.IsCustomer() || job.CustomerID != a.UserID {
		return apperr.New(apperr.KindAuthorization, "only the job owner can modify this job")
	}
	return nil
}

// CanCreateBid allows contractors to bid on jobs they do not own.
func CanCreateBid(a Actor, job *models.Job) error {
	if !a.IsContractor() {
		return apperr.New(apperr.KindAuthorization, "only contractors can place bids")
	}
	if job.CustomerID == a.UserID {
		return apperr.New(apperr.KindAuthorization, "cannot bid on your own job")
	}
	return nil
}

// CanManageBid allows the owning contractor to edit or withdraw a bid.
func CanManageBid(a Actor, bid *models.Bid) error {
	if !a.IsContractor() || bid.ContractorID != a.UserID {
		return apperr.New(apperr.KindAuthorization, "only the bid owner can modify this bid")
	}
	return nil
}

// CanViewBidFull reports whether the actor may see a bid's commercial
// fields. The owning customer sees every bid in full; a contractor sees only
// their own.
func CanViewBidFull(a Actor, job *models.Job, bid *models.Bid) bool {
	if job.CustomerID == a.UserID {
		return true
	}
	return bid.ContractorID == a.UserID
}

// CanRate checks that the actor is one of the two parties on a completed
// job and is rating the other party.
func CanRate(a Actor, job *models.Job, toUserID uuid.UUID) error {
	if job.Status != models.JobStatusCompleted {
		return apperr.New(apperr.KindInvalidState, "ratings are only allowed on completed jobs")
	}
	if job.ContractorID == nil {
		return apperr.New(apperr.KindInvalidState, "job has no contractor to rate")
	}
	customer, contractor := job.CustomerID, *job.ContractorID
	if a.UserID != customer && a.UserID != contractor {
		return apperr.New(apperr.KindAuthorization, "only the job parties can rate each other")
	}
	var other uuid.UUID
	if a.UserID == customer {
		other = contractor
	} else {
		other = customer
	}
	if toUserID != other {
		return apperr.New(apperr.KindValidation, "ratings must target the other party on the job")
	}
	return nil
}
