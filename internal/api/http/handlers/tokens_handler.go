package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notifier/internal/api/dto"
	"github.com/spec-kit/ticket-notifier/internal/repository"
	apperrors "github.com/spec-kit/ticket-notifier/pkg/util/errorutil"
)

// TokensHandler manages device token registrations.
type TokensHandler struct {
	tokens repository.TokenRepository
}

// NewTokensHandler constructs handler.
func NewTokensHandler(tokens repository.TokenRepository) *TokensHandler {
	return &TokensHandler{tokens: tokens}
}

// Register handles POST /api/tokens/register.
func (h *TokensHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.DeviceToken = strings.TrimSpace(req.DeviceToken)
	if req.UserID == "" || req.DeviceToken == "" {
		return apperrors.NewValidationError("userId and deviceToken required", nil)
	}

	if err := h.tokens.Register(c.UserContext(), req.UserID, req.DeviceToken); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.TokenResponse{UserID: req.UserID, DeviceToken: req.DeviceToken},
	})
}

// Unregister handles DELETE /api/tokens/unregister?token=.
func (h *TokensHandler) Unregister(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return apperrors.NewValidationError("token query parameter required", nil)
	}

	removed, err := h.tokens.Delete(c.UserContext(), token)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !removed {
		return apperrors.NewNotFound("token", map[string]any{"token": token})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

// ForUser handles GET /api/tokens/user/:userId.
func (h *TokensHandler) ForUser(c *fiber.Ctx) error {
	userID := c.Params("userId")
	tokens, err := h.tokens.TokensForUser(c.UserContext(), userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if tokens == nil {
		tokens = []string{}
	}
	return c.JSON(fiber.Map{
		"data": dto.UserTokensResponse{UserID: userID, Tokens: tokens, Count: len(tokens)},
	})
}

// Owner handles GET /api/tokens/owner?token=.
func (h *TokensHandler) Owner(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return apperrors.NewValidationError("token query parameter required", nil)
	}

	owner, err := h.tokens.OwnerOf(c.UserContext(), token)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.TokenOwnerResponse{DeviceToken: token, UserID: owner}})
}

// Stats handles GET /api/tokens/stats.
func (h *TokensHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tokens.Stats(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": stats})
}
