package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

// ErrNotFound is returned when a lookup by key matches nothing.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument is returned for empty keys on writes.
var ErrInvalidArgument = errors.New("invalid argument")

// TokenRepository persists device-token ownership. A token belongs to exactly
// one user; registering it again under another user reassigns it.
type TokenRepository interface {
	Register(ctx context.Context, userID, token string) error
	Delete(ctx context.Context, token string) (bool, error)
	TokensForUser(ctx context.Context, userID string) ([]string, error)
	OwnerOf(ctx context.Context, token string) (string, error)
	Stats(ctx context.Context) (domain.TokenStats, error)
}

// MembershipRepository persists user-to-team associations.
type MembershipRepository interface {
	AddUserToTeam(ctx context.Context, userID, teamID string) error
	AddUsersToTeam(ctx context.Context, userIDs []string, teamID string) error
	RemoveUserFromTeam(ctx context.Context, userID, teamID string) (bool, error)
	UsersInTeam(ctx context.Context, teamID string) ([]string, error)
	UsersInTeams(ctx context.Context, teamIDs []string) ([]string, error)
	TeamsForUser(ctx context.Context, userID string) ([]string, error)
	Stats(ctx context.Context) (domain.MembershipStats, error)
}

// Store bundles both repositories of one backend.
type Store struct {
	Tokens      TokenRepository
	Memberships MembershipRepository
	// Close releases backend resources.
	Close func() error
	// Ping verifies backend connectivity.
	Ping func(ctx context.Context) error
}

func requireKeys(keys ...string) error {
	for _, k := range keys {
		if k == "" {
			return ErrInvalidArgument
		}
	}
	return nil
}

// unionUsers merges per-team member lists, keeping first-seen order.
func unionUsers(ctx context.Context, repo MembershipRepository, teamIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, teamID := range teamIDs {
		if teamID == "" {
			continue
		}
		users, err := repo.UsersInTeam(ctx, teamID)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out, nil
}
