package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository returns a Postgres-backed implementation.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

const upsertMembership = `
        INSERT INTO user_teams (user_id, team_id, added_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id, team_id) DO UPDATE SET added_at = EXCLUDED.added_at`

func (r *membershipRepository) AddUserToTeam(ctx context.Context, userID, teamID string) error {
	if err := requireKeys(userID, teamID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, upsertMembership, userID, teamID)
	return err
}

func (r *membershipRepository) AddUsersToTeam(ctx context.Context, userIDs []string, teamID string) error {
	if err := requireKeys(teamID); err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := requireKeys(userID); err != nil {
			return err
		}
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, userID := range userIDs {
			batch.Queue(upsertMembership, userID, teamID)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *membershipRepository) RemoveUserFromTeam(ctx context.Context, userID, teamID string) (bool, error) {
	if userID == "" || teamID == "" {
		return false, nil
	}
	const query = `DELETE FROM user_teams WHERE user_id=$1 AND team_id=$2`
	cmd, err := r.pool.Exec(ctx, query, userID, teamID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *membershipRepository) UsersInTeam(ctx context.Context, teamID string) ([]string, error) {
	if teamID == "" {
		return nil, nil
	}
	const query = `SELECT user_id FROM user_teams WHERE team_id=$1 ORDER BY user_id`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *membershipRepository) UsersInTeams(ctx context.Context, teamIDs []string) ([]string, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT user_id FROM user_teams WHERE team_id = ANY($1) ORDER BY user_id`
	rows, err := r.pool.Query(ctx, query, teamIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *membershipRepository) TeamsForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	const query = `SELECT team_id FROM user_teams WHERE user_id=$1 ORDER BY team_id`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *membershipRepository) Stats(ctx context.Context) (domain.MembershipStats, error) {
	const query = `SELECT COUNT(DISTINCT team_id), COUNT(*) FROM user_teams`
	var stats domain.MembershipStats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.TotalTeams, &stats.TotalMemberships)
	return stats, err
}
