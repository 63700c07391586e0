package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifier/internal/domain"
	"github.com/spec-kit/ticket-notifier/internal/observability"
	"github.com/spec-kit/ticket-notifier/internal/push"
	"github.com/spec-kit/ticket-notifier/internal/repository"
)

// ErrGatewayFailure marks a batch the push gateway could not send at all.
var ErrGatewayFailure = errors.New("push gateway failure")

// Data payload keys.
const (
	DataTicketID       = "ticketId"
	DataTicketName     = "ticketName"
	DataCreatedBy      = "createdBy"
	DataActionUsername = "actionUsername"
	DataEventType      = "eventType"
	DataTitleKey       = "titleKey"
	DataBodyKey        = "bodyKey"
	DataSummary        = "summary"
	DataChanges        = "changes"
)

const emptyChanges = "[]"

// NotificationDispatcher expands recipients to device tokens and sends one
// batched push per event.
type NotificationDispatcher struct {
	tokens  repository.TokenRepository
	gateway push.Gateway
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewNotificationDispatcher creates the dispatcher.
func NewNotificationDispatcher(tokens repository.TokenRepository, gateway push.Gateway, metrics *observability.Metrics, logger *zap.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		tokens:  tokens,
		gateway: gateway,
		metrics: metrics,
		logger:  logger.Named("dispatcher"),
	}
}

// Dispatch sends a data-only message carrying content and data to every
// device of recipients. No tokens means an empty report and no gateway call.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, recipients domain.RecipientSet, content domain.Content, data map[string]string) (domain.DeliveryReport, error) {
	tokens, err := d.expand(ctx, recipients.Sorted())
	if err != nil {
		return domain.DeliveryReport{}, err
	}
	if len(tokens) == 0 {
		return domain.DeliveryReport{}, nil
	}

	payload := make(map[string]string, len(data)+3)
	for k, v := range data {
		payload[k] = v
	}
	payload[DataTitleKey] = content.TitleKey
	payload[DataBodyKey] = content.BodyKey
	payload[DataSummary] = content.Summary

	return d.send(ctx, &push.Message{
		Tokens: tokens,
		Data:   payload,
		Hints:  push.Hints{AndroidPriority: push.PriorityHigh, ContentAvailable: true},
	})
}

// SendToUser delivers a display notification to every device of one user.
func (d *NotificationDispatcher) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) (domain.DeliveryReport, error) {
	tokens, err := d.expand(ctx, []string{userID})
	if err != nil {
		return domain.DeliveryReport{}, err
	}
	if len(tokens) == 0 {
		return domain.DeliveryReport{}, nil
	}
	return d.send(ctx, &push.Message{
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data:   data,
		Hints:  push.Hints{AndroidPriority: push.PriorityHigh},
	})
}

// SendToTokens delivers a display notification to an explicit token list.
// Blank and repeated tokens are dropped before sending.
func (d *NotificationDispatcher) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (domain.DeliveryReport, error) {
	tokens = uniqueTokens(tokens)
	if len(tokens) == 0 {
		return domain.DeliveryReport{}, push.ErrNoTokens
	}
	return d.send(ctx, &push.Message{
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data:   data,
		Hints:  push.Hints{AndroidPriority: push.PriorityHigh},
	})
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// expand flattens the users' tokens, dropping duplicates and keeping the
// first-seen order.
func (d *NotificationDispatcher) expand(ctx context.Context, userIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var tokens []string
	for _, userID := range userIDs {
		userTokens, err := d.tokens.TokensForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("tokens for user %s: %w", userID, err)
		}
		for _, token := range userTokens {
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func (d *NotificationDispatcher) send(ctx context.Context, msg *push.Message) (domain.DeliveryReport, error) {
	began := time.Now()
	results, err := d.gateway.SendMulticast(ctx, msg)
	latency := time.Since(began)
	if err != nil {
		d.metrics.RecordDeliveries(0, 0, latency)
		return domain.DeliveryReport{}, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	if len(results) != len(msg.Tokens) {
		d.metrics.RecordDeliveries(0, 0, latency)
		return domain.DeliveryReport{}, fmt.Errorf("%w: %d results for %d tokens", ErrGatewayFailure, len(results), len(msg.Tokens))
	}

	report := domain.DeliveryReport{Results: make([]domain.DeliveryResult, len(results))}
	for i, r := range results {
		res := domain.DeliveryResult{Token: msg.Tokens[i], Success: r.Success}
		if r.Success {
			res.MessageID = r.MessageID
			report.SuccessCount++
		} else {
			res.ErrorCode = r.ErrorCode
			if res.ErrorCode == "" {
				res.ErrorCode = push.CodeUnknown
			}
			if r.Err != nil {
				res.Error = r.Err.Error()
			} else {
				res.Error = res.ErrorCode
			}
			report.FailureCount++
			d.logger.Warn("delivery failed",
				zap.String("token", res.Token),
				zap.String("code", res.ErrorCode),
				zap.String("error", res.Error))
		}
		report.Results[i] = res
	}

	d.metrics.RecordDeliveries(report.SuccessCount, report.FailureCount, latency)
	d.logger.Info("batch sent",
		zap.Int("tokens", len(msg.Tokens)),
		zap.Int("success", report.SuccessCount),
		zap.Int("failure", report.FailureCount),
		zap.Duration("took", latency))
	return report, nil
}

// EventData builds the data payload fields that describe the event itself.
func EventData(event *domain.TicketEvent) map[string]string {
	return map[string]string{
		DataTicketID:       event.Ticket.ID,
		DataTicketName:     event.Ticket.Name,
		DataCreatedBy:      event.Ticket.CreatedBy,
		DataActionUsername: event.PerformedBy,
		DataEventType:      event.EventType,
		DataChanges:        serializeChanges(event.RawChanges),
	}
}

// serializeChanges compacts the raw change list, falling back to an empty
// list when it is absent or not a JSON array.
func serializeChanges(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return emptyChanges
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return emptyChanges
	}
	return buf.String()
}
