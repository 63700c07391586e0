package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notifier/internal/api/dto"
	"github.com/spec-kit/ticket-notifier/internal/events"
	"github.com/spec-kit/ticket-notifier/internal/push"
	"github.com/spec-kit/ticket-notifier/internal/service"
	apperrors "github.com/spec-kit/ticket-notifier/pkg/util/errorutil"
)

// NotificationsHandler exposes manual sends and event ingestion.
type NotificationsHandler struct {
	notifications *service.NotificationService
	queue         events.Publisher
	subject       string
}

// NewNotificationsHandler constructs handler. A nil queue disables
// asynchronous ingestion.
func NewNotificationsHandler(notifications *service.NotificationService, queue events.Publisher, subject string) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, queue: queue, subject: subject}
}

// Send handles POST /api/notifications/send for an explicit token list.
func (h *NotificationsHandler) Send(c *fiber.Ctx) error {
	var req dto.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Tokens) == 0 {
		return apperrors.NewValidationError("tokens required", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}

	report, err := h.notifications.Send(c.UserContext(), req.Tokens, req.Title, req.Body, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, push.ErrNoTokens):
			return apperrors.NewValidationError("tokens required", nil)
		case errors.Is(err, service.ErrGatewayFailure):
			return apperrors.NewUnavailable("push gateway unavailable", err)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": report})
}

// SendToUser handles POST /api/notifications/send-to-user.
func (h *NotificationsHandler) SendToUser(c *fiber.Ctx) error {
	var req dto.SendToUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("userId and title required", nil)
	}

	report, err := h.notifications.SendToUser(c.UserContext(), req.UserID, req.Title, req.Body, req.Data)
	if err != nil {
		if errors.Is(err, service.ErrGatewayFailure) {
			return apperrors.NewUnavailable("push gateway unavailable", err)
		}
		return apperrors.MapError(err)
	}
	if report.Empty() {
		return apperrors.NewNotFound("device token", map[string]any{"userId": req.UserID})
	}
	return c.JSON(fiber.Map{"data": report})
}

// Ingest handles POST /api/events, running the pipeline on the request body.
// With ?async=true the body is handed to the event stream instead and the
// request returns 202 without waiting for delivery.
func (h *NotificationsHandler) Ingest(c *fiber.Ctx) error {
	if c.QueryBool("async") {
		return h.enqueue(c)
	}

	out := h.notifications.Process(c.UserContext(), c.Body())

	switch out.Status {
	case service.StatusMalformed:
		return apperrors.NewValidationError("malformed ticket event", map[string]any{
			"eventId": out.EventID,
			"reason":  out.Err.Error(),
		})
	case service.StatusFailed:
		de := apperrors.NewDomainError("DISPATCH_FAILED", "event processing failed", fiber.StatusBadGateway,
			map[string]any{"eventId": out.EventID, "ticketId": out.TicketID})
		de.Err = out.Err
		return de
	}
	return c.JSON(fiber.Map{"data": out})
}

func (h *NotificationsHandler) enqueue(c *fiber.Ctx) error {
	if h.queue == nil {
		return apperrors.NewValidationError("async ingestion not configured", nil)
	}
	body := c.Body()
	if len(body) == 0 {
		return apperrors.NewValidationError("empty event body", nil)
	}
	if err := h.queue.Publish(h.subject, append([]byte(nil), body...)); err != nil {
		return apperrors.NewUnavailable("event stream unavailable", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"queued": true, "subject": h.subject}})
}
