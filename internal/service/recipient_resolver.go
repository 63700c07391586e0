package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-notifier/internal/domain"
	"github.com/spec-kit/ticket-notifier/internal/repository"
)

// RecipientResolver computes who should hear about a ticket event.
type RecipientResolver struct {
	memberships repository.MembershipRepository
	logger      *zap.Logger
}

// NewRecipientResolver creates the resolver.
func NewRecipientResolver(memberships repository.MembershipRepository, logger *zap.Logger) *RecipientResolver {
	return &RecipientResolver{memberships: memberships, logger: logger.Named("recipients")}
}

// Resolve returns the union of the members of every assigned team, the
// creator and the assigned users, minus performedBy. Team lookups run
// concurrently, one per distinct team.
func (r *RecipientResolver) Resolve(ctx context.Context, ticket domain.Ticket, performedBy string) (domain.RecipientSet, error) {
	recipients := domain.NewRecipientSet()

	teams := distinct(ticket.AssignedTeams)
	if len(teams) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, teamID := range teams {
			g.Go(func() error {
				members, err := r.memberships.UsersInTeam(gctx, teamID)
				if err != nil {
					return fmt.Errorf("members of team %s: %w", teamID, err)
				}
				mu.Lock()
				for _, userID := range members {
					recipients.Add(userID)
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			r.logger.Error("team lookup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			return nil, err
		}
	}

	recipients.Add(ticket.CreatedBy)
	for _, userID := range ticket.AssignedUsers {
		recipients.Add(userID)
	}
	if recipients.Contains(performedBy) {
		delete(recipients, performedBy)
		r.logger.Debug("performer excluded from recipients", zap.String("ticket_id", ticket.ID), zap.String("user_id", performedBy))
	}
	return recipients, nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
