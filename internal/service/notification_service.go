package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/ticket-notifier/internal/domain"
	"github.com/spec-kit/ticket-notifier/internal/events"
	"github.com/spec-kit/ticket-notifier/internal/observability"
	"github.com/spec-kit/ticket-notifier/internal/push"
	"github.com/spec-kit/ticket-notifier/internal/repository"
)

// Status is the terminal state of processing one event.
type Status string

const (
	StatusSkippedSchema Status = "skipped_schema"
	StatusMalformed     Status = "malformed"
	StatusSkippedOrigin Status = "skipped_origin"
	StatusIrrelevant    Status = "irrelevant"
	StatusNoRecipients  Status = "no_recipients"
	StatusNoTokens      Status = "no_tokens"
	StatusDispatched    Status = "dispatched"
	StatusFailed        Status = "failed"
)

// Outcome describes what happened to one event.
type Outcome struct {
	EventID    string                 `json:"eventId"`
	Status     Status                 `json:"status"`
	TicketID   string                 `json:"ticketId,omitempty"`
	EventType  string                 `json:"eventType,omitempty"`
	Category   domain.Category        `json:"category,omitempty"`
	Content    *domain.Content        `json:"content,omitempty"`
	Recipients int                    `json:"recipients"`
	Report     *domain.DeliveryReport `json:"report,omitempty"`
	Pruned     int                    `json:"pruned"`
	Err        error                  `json:"-"`
}

// Explanation is the dry evaluation of an event, without store or gateway.
type Explanation struct {
	Skipped        bool                   `json:"skipped"`
	Schema         string                 `json:"schema"`
	Notifiable     bool                   `json:"notifiable"`
	Event          *domain.TicketEvent    `json:"event,omitempty"`
	Classification *domain.Classification `json:"classification,omitempty"`
	Content        *domain.Content        `json:"content,omitempty"`
}

// NotificationDependencies bundles collaborators of the notification pipeline.
type NotificationDependencies struct {
	Tokens      repository.TokenRepository
	Memberships repository.MembershipRepository
	Gateway     push.Gateway
	PruneMode   string
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NotificationService runs the per-event pipeline: classify, resolve
// recipients, resolve content, dispatch and prune.
type NotificationService struct {
	resolver   *RecipientResolver
	dispatcher *NotificationDispatcher
	pruner     *TokenPruner
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		resolver:   NewRecipientResolver(deps.Memberships, logger),
		dispatcher: NewNotificationDispatcher(deps.Tokens, deps.Gateway, deps.Metrics, logger),
		pruner:     NewTokenPruner(deps.Tokens, deps.PruneMode, deps.Metrics, logger),
		metrics:    deps.Metrics,
		logger:     logger.Named("notifications"),
	}
}

// Process handles one raw stream message. It never panics on bad input; every
// stop condition is reported through the returned Outcome.
func (s *NotificationService) Process(ctx context.Context, payload []byte) Outcome {
	out := s.process(ctx, payload)
	s.metrics.RecordOutcome(string(out.Status))
	s.logOutcome(out)
	return out
}

func (s *NotificationService) process(ctx context.Context, payload []byte) Outcome {
	out := Outcome{EventID: uuid.NewString()}

	parsed, err := events.Parse(payload)
	if err != nil {
		out.Status, out.Err = StatusMalformed, err
		return out
	}
	if parsed.Skipped {
		out.Status = StatusSkippedSchema
		return out
	}
	event := parsed.Event
	out.TicketID, out.EventType = event.Ticket.ID, event.EventType

	if !strings.EqualFold(event.Ticket.Origin, domain.NotifiableOrigin) {
		out.Status = StatusSkippedOrigin
		return out
	}

	classification := Classify(event.Changes, event.Ticket)
	out.Category = classification.Category
	if !classification.Relevant {
		out.Status = StatusIrrelevant
		return out
	}

	recipients, err := s.resolver.Resolve(ctx, event.Ticket, event.PerformedBy)
	if err != nil {
		out.Status, out.Err = StatusFailed, fmt.Errorf("resolve recipients: %w", err)
		return out
	}
	out.Recipients = len(recipients)
	if len(recipients) == 0 {
		out.Status = StatusNoRecipients
		return out
	}

	content := ResolveContent(event.EventType, classification.Category)
	content.Summary = Summarize(classification)
	out.Content = &content

	report, err := s.dispatcher.Dispatch(ctx, recipients, content, EventData(event))
	if err != nil {
		out.Status, out.Err = StatusFailed, err
		return out
	}
	if report.Empty() {
		out.Status = StatusNoTokens
		return out
	}
	out.Report = &report

	if report.FailureCount > 0 {
		out.Pruned = s.pruner.Prune(ctx, report)
	}
	out.Status = StatusDispatched
	return out
}

func (s *NotificationService) logOutcome(out Outcome) {
	fields := []zap.Field{
		zap.String("event_id", out.EventID),
		zap.String("ticket_id", out.TicketID),
		zap.String("outcome", string(out.Status)),
	}
	if out.Category != "" {
		fields = append(fields, zap.String("category", string(out.Category)))
	}
	if out.Report != nil {
		fields = append(fields,
			zap.Int("success", out.Report.SuccessCount),
			zap.Int("failure", out.Report.FailureCount),
			zap.Int("pruned", out.Pruned))
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
	}
	s.logger.Check(outcomeLevel(out), "event processed").Write(fields...)
}

func outcomeLevel(out Outcome) zapcore.Level {
	switch out.Status {
	case StatusMalformed:
		return zapcore.WarnLevel
	case StatusFailed:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Explain evaluates an event without touching the store or the gateway.
func Explain(payload []byte) (Explanation, error) {
	parsed, err := events.Parse(payload)
	if err != nil {
		return Explanation{}, err
	}
	exp := Explanation{Skipped: parsed.Skipped, Schema: parsed.Schema}
	if parsed.Skipped {
		return exp, nil
	}
	event := parsed.Event
	exp.Event = event
	classification := Classify(event.Changes, event.Ticket)
	exp.Classification = &classification

	originOK := strings.EqualFold(event.Ticket.Origin, domain.NotifiableOrigin)
	exp.Notifiable = originOK && classification.Relevant
	if exp.Notifiable {
		content := ResolveContent(event.EventType, classification.Category)
		content.Summary = Summarize(classification)
		exp.Content = &content
	}
	return exp, nil
}

// SendToUser pushes a display notification to one user's devices.
func (s *NotificationService) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) (domain.DeliveryReport, error) {
	report, err := s.dispatcher.SendToUser(ctx, userID, title, body, data)
	if err != nil {
		return report, err
	}
	if report.FailureCount > 0 {
		s.pruner.Prune(ctx, report)
	}
	return report, nil
}

// Send pushes a display notification to the given device tokens and prunes
// the ones that failed.
func (s *NotificationService) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (domain.DeliveryReport, error) {
	report, err := s.dispatcher.SendToTokens(ctx, tokens, title, body, data)
	if err != nil {
		return report, err
	}
	if report.FailureCount > 0 {
		s.pruner.Prune(ctx, report)
	}
	return report, nil
}
