package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	ratingsvc "github.com/tukangku-app/tukangku_be/internal/services/rating"
)

type RatingHandler struct {
	Ratings *ratingsvc.Service
}

func NewRatingHandler(ratings *ratingsvc.Service) *RatingHandler {
	return &RatingHandler{Ratings: ratings}
}

func (h *RatingHandler) Create(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	var in ratingsvc.SubmitInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	if in.JobID == uuid.Nil || in.ToUserID == uuid.Nil {
		return fail(c, apperr.New(apperr.KindValidation, "job_id and to_user_id are required"))
	}

	r, err := h.Ratings.Submit(c.Context(), actor, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, r)
}

func (h *RatingHandler) ListForUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid user id"))
	}

	summary, err := h.Ratings.ForUser(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, summary)
}
