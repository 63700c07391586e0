package push

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogGateway is a dry-run gateway: it logs every send and reports success.
type LogGateway struct {
	logger *zap.Logger
}

// NewLogGateway builds a dry-run gateway.
func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger.Named("push.log")}
}

// SendMulticast logs the message and reports success for every token.
func (g *LogGateway) SendMulticast(ctx context.Context, msg *Message) ([]Result, error) {
	if msg == nil || len(msg.Tokens) == 0 {
		return nil, ErrNoTokens
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.logger.Info("dry-run multicast",
		zap.Int("tokens", len(msg.Tokens)),
		zap.Bool("data_only", msg.DataOnly()),
		zap.String("title", msg.Title),
		zap.Any("data", msg.Data))

	results := make([]Result, len(msg.Tokens))
	for i, token := range msg.Tokens {
		results[i] = Result{Token: token, Success: true, MessageID: "dry-run/" + uuid.NewString()}
	}
	return results, nil
}
