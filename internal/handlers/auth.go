package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // customer / contractor, fixed after signup
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)
	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	if name == "" {
		return fail(c, apperr.New(apperr.KindValidation, "name is required"))
	}
	if email == "" || !strings.Contains(email, "@") {
		return fail(c, apperr.New(apperr.KindValidation, "a valid email is required"))
	}
	if len(password) < 6 {
		return fail(c, apperr.New(apperr.KindValidation, "password must be at least 6 characters"))
	}
	if !models.ValidRole(role) {
		return fail(c, apperr.New(apperr.KindValidation, "role must be customer or contractor"))
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return fail(c, apperr.New(apperr.KindConflict, "email already registered"))
	} else if err != gorm.ErrRecordNotFound {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "checking email", err))
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "processing password", err))
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Phone:    strings.TrimSpace(req.Phone),
		Password: pw,
		Role:     role,
		IsActive: true,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "creating account", err))
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), u.Email, string(u.Role), h.Expires)
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "issuing token", err))
	}
	h.setSessionCookie(c, token)

	return ok(c, fiber.StatusCreated, fiber.Map{
		"token": token,
		"user":  userPayload(&u),
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)
	if email == "" || password == "" {
		return fail(c, apperr.New(apperr.KindValidation, "email and password are required"))
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err != nil {
		return fail(c, apperr.New(apperr.KindAuthentication, "invalid email or password"))
	}
	if !u.IsActive {
		return fail(c, apperr.New(apperr.KindAuthorization, "account is deactivated"))
	}
	if !utils.CheckPassword(u.Password, password) {
		return fail(c, apperr.New(apperr.KindAuthentication, "invalid email or password"))
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), u.Email, string(u.Role), h.Expires)
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "issuing token", err))
	}
	h.setSessionCookie(c, token)

	return ok(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  userPayload(&u),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "tk_token",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		MaxAge:   -1,
	})
	return ok(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	var u models.User
	if err := h.DB.First(&u, "id = ?", actor.UserID).Error; err != nil {
		return fail(c, apperr.New(apperr.KindNotFound, "user not found"))
	}
	return ok(c, fiber.StatusOK, userPayload(&u))
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "tk_token",
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
}

func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"phone": u.Phone,
		"role":  u.Role,
	}
}
