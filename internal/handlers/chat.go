package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/cache"
	"github.com/tukangku-app/tukangku_be/internal/models"
)

// ChatHandler is a pull-based chat surface: clients poll the conversation
// and message listings, Redis counters keep unread badges cheap.
type ChatHandler struct {
	DB    *gorm.DB
	Cache *cache.ChatCache
	Log   zerolog.Logger
}

func NewChatHandler(db *gorm.DB, chatCache *cache.ChatCache, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{DB: db, Cache: chatCache, Log: log.With().Str("handler", "chat").Logger()}
}

// CreateOrGetConversation returns the single conversation for the unordered
// (caller, other) pair, creating it on first contact.
func (h *ChatHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid user_id"))
	}
	if otherID == actor.UserID {
		return fail(c, apperr.New(apperr.KindValidation, "cannot start a conversation with yourself"))
	}

	var other models.User
	if err := h.DB.First(&other, "id = ?", otherID).Error; err != nil {
		return fail(c, apperr.New(apperr.KindNotFound, "user not found"))
	}

	a, b := models.NormalizePair(actor.UserID, otherID)

	var conv models.Conversation
	err = h.DB.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&conv).Error
	if err == gorm.ErrRecordNotFound {
		conv = models.Conversation{UserAID: a, UserBID: b, LastMessageAt: time.Now()}
		if createErr := h.DB.Create(&conv).Error; createErr != nil {
			// A concurrent first-contact may have won the unique index;
			// fall back to the existing row.
			if err := h.DB.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&conv).Error; err != nil {
				return fail(c, apperr.Wrap(apperr.KindPersistence, "creating conversation", createErr))
			}
		}
	} else if err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "loading conversation", err))
	}

	return ok(c, fiber.StatusOK, conv)
}

func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}

	var convs []models.Conversation
	err = h.DB.
		Preload("UserA").
		Preload("UserB").
		Where("user_a_id = ? OR user_b_id = ?", actor.UserID, actor.UserID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "listing conversations", err))
	}

	type convWithUnread struct {
		models.Conversation
		Unread int64 `json:"unread"`
	}
	out := make([]convWithUnread, 0, len(convs))
	for _, conv := range convs {
		unread, err := h.Cache.Unread(c.Context(), conv.ID, actor.UserID)
		if err != nil {
			h.Log.Warn().Str("conversation_id", conv.ID.String()).Err(err).Msg("reading unread counter failed")
			unread = 0
		}
		out = append(out, convWithUnread{Conversation: conv, Unread: unread})
	}
	return ok(c, fiber.StatusOK, out)
}

// loadMemberConversation fetches a conversation and checks membership.
func (h *ChatHandler) loadMemberConversation(c *fiber.Ctx, userID uuid.UUID) (*models.Conversation, error) {
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid conversation id")
	}
	var conv models.Conversation
	if err := h.DB.First(&conv, "id = ?", convID).Error; err != nil {
		return nil, apperr.New(apperr.KindNotFound, "conversation not found")
	}
	if !conv.HasMember(userID) {
		return nil, apperr.New(apperr.KindAuthorization, "not a member of this conversation")
	}
	return &conv, nil
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	conv, err := h.loadMemberConversation(c, actor.UserID)
	if err != nil {
		return fail(c, err)
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var msgs []models.Message
	err = h.DB.
		Where("conversation_id = ?", conv.ID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "listing messages", err))
	}
	return ok(c, fiber.StatusOK, msgs)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	conv, err := h.loadMemberConversation(c, actor.UserID)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Text  string  `json:"text"`
		JobID *string `json:"job_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	if req.Text == "" {
		return fail(c, apperr.New(apperr.KindValidation, "text is required"))
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       actor.UserID,
		Text:           req.Text,
	}
	if req.JobID != nil {
		jobID, err := uuid.Parse(*req.JobID)
		if err != nil {
			return fail(c, apperr.New(apperr.KindValidation, "invalid job_id"))
		}
		msg.JobID = &jobID
	}

	if err := h.DB.Create(&msg).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "sending message", err))
	}

	// Preview bump and unread counter are side effects; the message is
	// already committed, so their failures are warnings only.
	err = h.DB.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Update("last_message_at", msg.CreatedAt).Error
	if err != nil {
		h.Log.Warn().Str("conversation_id", conv.ID.String()).Err(err).Msg("updating last_message_at failed")
	}
	if err := h.Cache.IncrUnread(c.Context(), conv.ID, conv.Other(actor.UserID)); err != nil {
		h.Log.Warn().Str("conversation_id", conv.ID.String()).Err(err).Msg("bumping unread counter failed")
	}

	return ok(c, fiber.StatusCreated, msg)
}

func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fail(c, err)
	}
	conv, err := h.loadMemberConversation(c, actor.UserID)
	if err != nil {
		return fail(c, err)
	}

	err = h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conv.ID, actor.UserID, false).
		Update("is_read", true).Error
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindPersistence, "marking messages read", err))
	}
	if err := h.Cache.ResetUnread(c.Context(), conv.ID, actor.UserID); err != nil {
		h.Log.Warn().Str("conversation_id", conv.ID.String()).Err(err).Msg("resetting unread counter failed")
	}
	return ok(c, fiber.StatusOK, fiber.Map{"read": true})
}
