package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

const redisMaxTxRetries = 32

// redisKeys builds the key layout shared by both Redis repositories:
//
//	<prefix>:token:<token>        string, owning user id
//	<prefix>:user:<id>:tokens     set of tokens
//	<prefix>:team:<id>:users      set of user ids
//	<prefix>:user:<id>:teams      set of team ids
type redisKeys struct {
	prefix string
}

func (k redisKeys) token(token string) string       { return k.prefix + ":token:" + token }
func (k redisKeys) userTokens(userID string) string { return k.prefix + ":user:" + userID + ":tokens" }
func (k redisKeys) teamUsers(teamID string) string  { return k.prefix + ":team:" + teamID + ":users" }
func (k redisKeys) userTeams(userID string) string  { return k.prefix + ":user:" + userID + ":teams" }

// watch runs fn as an optimistic transaction, retrying when a watched key changed.
func watch(ctx context.Context, client *redis.Client, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < redisMaxTxRetries; i++ {
		err := client.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %v: too much contention", keys)
}

func countKeys(ctx context.Context, client *redis.Client, pattern string) (int, []string, error) {
	var keys []string
	iter := client.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return len(keys), keys, iter.Err()
}

func sortedMembers(ctx context.Context, client *redis.Client, key string) ([]string, error) {
	members, err := client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

type redisTokenRepository struct {
	client *redis.Client
	keys   redisKeys
}

// NewRedisTokenRepository returns a Redis-backed implementation.
func NewRedisTokenRepository(client *redis.Client, prefix string) TokenRepository {
	return &redisTokenRepository{client: client, keys: redisKeys{prefix: prefix}}
}

func (r *redisTokenRepository) Register(ctx context.Context, userID, token string) error {
	if err := requireKeys(userID, token); err != nil {
		return err
	}
	key := r.keys.token(token)
	return watch(ctx, r.client, func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if prev != "" && prev != userID {
				pipe.SRem(ctx, r.keys.userTokens(prev), token)
			}
			pipe.Set(ctx, key, userID, 0)
			pipe.SAdd(ctx, r.keys.userTokens(userID), token)
			return nil
		})
		return err
	}, key)
}

func (r *redisTokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	key := r.keys.token(token)
	removed := false
	err := watch(ctx, r.client, func(tx *redis.Tx) error {
		owner, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			removed = false
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, r.keys.userTokens(owner), token)
			return nil
		})
		removed = err == nil
		return err
	}, key)
	return removed, err
}

func (r *redisTokenRepository) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	return sortedMembers(ctx, r.client, r.keys.userTokens(userID))
}

func (r *redisTokenRepository) OwnerOf(ctx context.Context, token string) (string, error) {
	owner, err := r.client.Get(ctx, r.keys.token(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return owner, err
}

func (r *redisTokenRepository) Stats(ctx context.Context) (domain.TokenStats, error) {
	tokens, _, err := countKeys(ctx, r.client, r.keys.token("*"))
	if err != nil {
		return domain.TokenStats{}, err
	}
	users, _, err := countKeys(ctx, r.client, r.keys.userTokens("*"))
	if err != nil {
		return domain.TokenStats{}, err
	}
	return domain.TokenStats{TotalUsers: users, TotalTokens: tokens}, nil
}

type redisMembershipRepository struct {
	client *redis.Client
	keys   redisKeys
}

// NewRedisMembershipRepository returns a Redis-backed implementation.
func NewRedisMembershipRepository(client *redis.Client, prefix string) MembershipRepository {
	return &redisMembershipRepository{client: client, keys: redisKeys{prefix: prefix}}
}

func (r *redisMembershipRepository) AddUserToTeam(ctx context.Context, userID, teamID string) error {
	return r.AddUsersToTeam(ctx, []string{userID}, teamID)
}

func (r *redisMembershipRepository) AddUsersToTeam(ctx context.Context, userIDs []string, teamID string) error {
	if err := requireKeys(teamID); err != nil {
		return err
	}
	if err := requireKeys(userIDs...); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, userID := range userIDs {
			pipe.SAdd(ctx, r.keys.teamUsers(teamID), userID)
			pipe.SAdd(ctx, r.keys.userTeams(userID), teamID)
		}
		return nil
	})
	return err
}

func (r *redisMembershipRepository) RemoveUserFromTeam(ctx context.Context, userID, teamID string) (bool, error) {
	if userID == "" || teamID == "" {
		return false, nil
	}
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.SRem(ctx, r.keys.teamUsers(teamID), userID)
		pipe.SRem(ctx, r.keys.userTeams(userID), teamID)
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed.Val() > 0, nil
}

func (r *redisMembershipRepository) UsersInTeam(ctx context.Context, teamID string) ([]string, error) {
	if teamID == "" {
		return nil, nil
	}
	return sortedMembers(ctx, r.client, r.keys.teamUsers(teamID))
}

func (r *redisMembershipRepository) UsersInTeams(ctx context.Context, teamIDs []string) ([]string, error) {
	var keys []string
	for _, teamID := range teamIDs {
		if teamID != "" {
			keys = append(keys, r.keys.teamUsers(teamID))
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	users, err := r.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}

func (r *redisMembershipRepository) TeamsForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	return sortedMembers(ctx, r.client, r.keys.userTeams(userID))
}

func (r *redisMembershipRepository) Stats(ctx context.Context) (domain.MembershipStats, error) {
	teams, keys, err := countKeys(ctx, r.client, r.keys.teamUsers("*"))
	if err != nil {
		return domain.MembershipStats{}, err
	}
	stats := domain.MembershipStats{TotalTeams: teams}
	for _, key := range keys {
		n, err := r.client.SCard(ctx, key).Result()
		if err != nil {
			return domain.MembershipStats{}, err
		}
		stats.TotalMemberships += int(n)
	}
	return stats, nil
}
