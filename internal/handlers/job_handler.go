package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	jobsvc "github.com/tukangku-app/tukangku_be/internal/services/job"
)

type JobHandler struct {
	Jobs *jobsvc.Service
}

func NewJobHandler(jobs *jobsvc.Service) *JobHandler {
	return &JobHandler{Jobs: jobs}
}

func (h *JobHandler) Create(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	var in jobsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}

	j, err := h.Jobs.Create(c.Context(), actor, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, j)
}

func (h *JobHandler) List(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	f := jobsvc.Filter{
		Status:   models.JobStatus(c.Query("status")),
		Category: c.Query("category"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 20),
	}
	switch c.Query("mine") {
	case "customer":
		uid := actor.UserID
		f.CustomerID = &uid
	case "contractor":
		uid := actor.UserID
		f.ContractorID = &uid
	}

	jobs, total, err := h.Jobs.List(c.Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"jobs":  jobs,
		"total": total,
		"page":  f.Page,
		"limit": f.Limit,
	})
}

func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid job id"))
	}

	j, err := h.Jobs.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, j)
}

func (h *JobHandler) Update(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid job id"))
	}

	var in jobsvc.UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}

	j, err := h.Jobs.Update(c.Context(), actor, id, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, j)
}

func (h *JobHandler) Delete(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid job id"))
	}

	if err := h.Jobs.Delete(c.Context(), actor, id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
