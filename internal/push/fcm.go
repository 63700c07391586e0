package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/spec-kit/ticket-notifier/internal/config"
)

// fcmMaxBatch is the per-call token limit of SendEachForMulticast.
const fcmMaxBatch = 500

// DefaultAndroidChannel is the channel display notifications are posted to.
const DefaultAndroidChannel = "sigo_default_channel"

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway delivers through Firebase Cloud Messaging.
type FCMGateway struct {
	client multicastSender
	logger *zap.Logger
}

// NewFCMGateway initializes the Firebase app from a service account file.
func NewFCMGateway(ctx context.Context, cfg config.PushConfig, logger *zap.Logger) (*FCMGateway, error) {
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	logger.Info("firebase messaging ready", zap.String("project_id", cfg.ProjectID))
	return newFCMGateway(client, logger), nil
}

func newFCMGateway(client multicastSender, logger *zap.Logger) *FCMGateway {
	return &FCMGateway{client: client, logger: logger.Named("push.fcm")}
}

// SendMulticast sends msg in chunks of at most 500 tokens. Any chunk failing
// at the transport level fails the whole call.
func (g *FCMGateway) SendMulticast(ctx context.Context, msg *Message) ([]Result, error) {
	if msg == nil || len(msg.Tokens) == 0 {
		return nil, ErrNoTokens
	}

	results := make([]Result, 0, len(msg.Tokens))
	for start := 0; start < len(msg.Tokens); start += fcmMaxBatch {
		end := min(start+fcmMaxBatch, len(msg.Tokens))
		chunk := msg.Tokens[start:end]

		began := time.Now()
		resp, err := g.client.SendEachForMulticast(ctx, buildMulticast(msg, chunk))
		if err != nil {
			return nil, fmt.Errorf("fcm multicast (%d tokens): %w", len(chunk), err)
		}
		if len(resp.Responses) != len(chunk) {
			return nil, fmt.Errorf("fcm multicast: got %d responses for %d tokens", len(resp.Responses), len(chunk))
		}
		g.logger.Debug("fcm batch sent",
			zap.Int("tokens", len(chunk)),
			zap.Int("success", resp.SuccessCount),
			zap.Int("failure", resp.FailureCount),
			zap.Duration("took", time.Since(began)))

		for i, r := range resp.Responses {
			results = append(results, toResult(chunk[i], r))
		}
	}
	return results, nil
}

func buildMulticast(msg *Message, tokens []string) *messaging.MulticastMessage {
	out := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data,
	}

	android := &messaging.AndroidConfig{}
	if msg.Hints.AndroidPriority != "" {
		android.Priority = string(msg.Hints.AndroidPriority)
	}
	aps := &messaging.Aps{ContentAvailable: msg.Hints.ContentAvailable}

	if !msg.DataOnly() {
		out.Notification = &messaging.Notification{Title: msg.Title, Body: msg.Body}
		android.Notification = &messaging.AndroidNotification{ChannelID: DefaultAndroidChannel}
		aps.Sound = "default"
	}
	out.Android = android
	out.APNS = &messaging.APNSConfig{Payload: &messaging.APNSPayload{Aps: aps}}
	return out
}

func toResult(token string, r *messaging.SendResponse) Result {
	if r == nil {
		return Result{Token: token, ErrorCode: CodeUnknown, Err: fmt.Errorf("missing response")}
	}
	if r.Success {
		return Result{Token: token, Success: true, MessageID: r.MessageID}
	}
	return Result{Token: token, ErrorCode: errorCode(r.Error), Err: r.Error}
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return CodeUnknown
	case messaging.IsUnregistered(err):
		return CodeUnregistered
	case messaging.IsInvalidArgument(err):
		return CodeInvalidArgument
	case messaging.IsSenderIDMismatch(err):
		return CodeSenderIDMismatch
	case messaging.IsQuotaExceeded(err):
		return CodeQuotaExceeded
	case messaging.IsUnavailable(err):
		return CodeUnavailable
	case messaging.IsInternal(err):
		return CodeInternal
	default:
		return CodeUnknown
	}
}
