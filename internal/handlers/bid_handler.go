package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	bidsvc "github.com/tukangku-app/tukangku_be/internal/services/bid"
)

type BidHandler struct {
	Bids *bidsvc.Service
}

func NewBidHandler(bids *bidsvc.Service) *BidHandler {
	return &BidHandler{Bids: bids}
}

func (h *BidHandler) Create(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	var in bidsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	if in.JobID == uuid.Nil {
		return fail(c, apperr.New(apperr.KindValidation, "job_id is required"))
	}

	b, err := h.Bids.Create(c.Context(), actor, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, b)
}

func (h *BidHandler) ListForJob(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid job id"))
	}

	views, err := h.Bids.ListForJob(c.Context(), actor, jobID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, views)
}

func (h *BidHandler) Update(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid bid id"))
	}

	var in bidsvc.UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}

	b, err := h.Bids.Update(c.Context(), actor, id, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, b)
}

func (h *BidHandler) Delete(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid bid id"))
	}

	if err := h.Bids.Delete(c.Context(), actor, id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

type assignReq struct {
	JobID uuid.UUID `json:"jobId"`
	BidID uuid.UUID `json:"bidId"`
}

// Assign accepts a bid on behalf of the job's customer. This is the only
// path that moves a job into in_progress.
func (h *BidHandler) Assign(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	var req assignReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	if req.JobID == uuid.Nil || req.BidID == uuid.Nil {
		return fail(c, apperr.New(apperr.KindValidation, "jobId and bidId are required"))
	}

	j, err := h.Bids.Accept(c.Context(), actor, req.JobID, req.BidID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, j)
}
