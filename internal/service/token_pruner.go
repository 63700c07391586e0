package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifier/internal/config"
	"github.com/spec-kit/ticket-notifier/internal/domain"
	"github.com/spec-kit/ticket-notifier/internal/observability"
	"github.com/spec-kit/ticket-notifier/internal/push"
	"github.com/spec-kit/ticket-notifier/internal/repository"
)

// TokenPruner removes device tokens whose delivery failed.
type TokenPruner struct {
	tokens  repository.TokenRepository
	mode    string
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTokenPruner creates the pruner. Mode "unregistered" only prunes tokens
// the provider reported as permanently invalid; any other mode prunes every
// failed token.
func NewTokenPruner(tokens repository.TokenRepository, mode string, metrics *observability.Metrics, logger *zap.Logger) *TokenPruner {
	if mode == "" {
		mode = config.PruneModeAll
	}
	return &TokenPruner{tokens: tokens, mode: mode, metrics: metrics, logger: logger.Named("pruner")}
}

// Prune deletes the failed tokens of report and returns how many were
// removed. A failed delete is logged and does not stop the rest.
func (p *TokenPruner) Prune(ctx context.Context, report domain.DeliveryReport) int {
	pruned := 0
	for _, res := range report.Failed() {
		if p.mode == config.PruneModeUnregistered && !push.IsPermanent(res.ErrorCode) {
			p.logger.Debug("keeping token after transient failure",
				zap.String("token", res.Token), zap.String("code", res.ErrorCode))
			continue
		}
		removed, err := p.tokens.Delete(ctx, res.Token)
		if err != nil {
			p.logger.Error("prune token failed", zap.String("token", res.Token), zap.Error(err))
			continue
		}
		if removed {
			pruned++
			p.logger.Info("pruned stale token", zap.String("token", res.Token), zap.String("code", res.ErrorCode))
		}
	}
	p.metrics.RecordPruned(pruned)
	return pruned
}
