package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/spec-kit/ticket-notifier/internal/domain"
	"github.com/spec-kit/ticket-notifier/internal/push"
	"github.com/spec-kit/ticket-notifier/internal/repository"
)

type memTokens struct {
	mu        sync.Mutex
	owners    map[string]string
	deleted   []string
	deleteErr map[string]error
}

func newMemTokens(byUser map[string][]string) *memTokens {
	m := &memTokens{owners: map[string]string{}, deleteErr: map[string]error{}}
	for user, tokens := range byUser {
		for _, t := range tokens {
			m.owners[t] = user
		}
	}
	return m
}

func (m *memTokens) Register(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[token] = userID
	return nil
}

func (m *memTokens) Delete(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[token]; err != nil {
		return false, err
	}
	if _, ok := m.owners[token]; !ok {
		return false, nil
	}
	delete(m.owners, token)
	m.deleted = append(m.deleted, token)
	return true, nil
}

func (m *memTokens) TokensForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for token, owner := range m.owners {
		if owner == userID {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memTokens) OwnerOf(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[token]
	if !ok {
		return "", repository.ErrNotFound
	}
	return owner, nil
}

func (m *memTokens) Stats(context.Context) (domain.TokenStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := map[string]struct{}{}
	for _, owner := range m.owners {
		users[owner] = struct{}{}
	}
	return domain.TokenStats{TotalUsers: len(users), TotalTokens: len(m.owners)}, nil
}

type memTeams struct {
	mu      sync.Mutex
	members map[string][]string
	lookups []string
	err     error
}

func (m *memTeams) AddUserToTeam(ctx context.Context, userID, teamID string) error {
	return m.AddUsersToTeam(ctx, []string{userID}, teamID)
}

func (m *memTeams) AddUsersToTeam(_ context.Context, userIDs []string, teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[teamID] = append(m.members[teamID], userIDs...)
	return nil
}

func (m *memTeams) RemoveUserFromTeam(context.Context, string, string) (bool, error) {
	return false, errors.New("not implemented")
}

func (m *memTeams) UsersInTeam(_ context.Context, teamID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, teamID)
	if m.err != nil {
		return nil, m.err
	}
	return append([]string(nil), m.members[teamID]...), nil
}

func (m *memTeams) UsersInTeams(ctx context.Context, teamIDs []string) ([]string, error) {
	var out []string
	for _, id := range teamIDs {
		users, err := m.UsersInTeam(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, users...)
	}
	return out, nil
}

func (m *memTeams) TeamsForUser(context.Context, string) ([]string, error) { return nil, nil }

func (m *memTeams) Stats(context.Context) (domain.MembershipStats, error) {
	return domain.MembershipStats{}, nil
}

// recordingGateway fails the tokens at the configured indices.
type recordingGateway struct {
	mu         sync.Mutex
	calls      []*push.Message
	failAt     map[int]string
	err        error
	shortByOne bool
}

func (g *recordingGateway) SendMulticast(_ context.Context, msg *push.Message) ([]push.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, msg)
	if g.err != nil {
		return nil, g.err
	}
	results := make([]push.Result, len(msg.Tokens))
	for i, token := range msg.Tokens {
		if code, ok := g.failAt[i]; ok {
			results[i] = push.Result{Token: token, ErrorCode: code, Err: errors.New(code)}
			continue
		}
		results[i] = push.Result{Token: token, Success: true, MessageID: "msg-" + token}
	}
	if g.shortByOne {
		results = results[:len(results)-1]
	}
	return results, nil
}

func (g *recordingGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
