package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

type sqliteTokenRepository struct {
	db *sql.DB
}

// NewSQLiteTokenRepository returns a SQLite-backed implementation. The schema
// is created by persistence.NewSQLite.
func NewSQLiteTokenRepository(db *sql.DB) TokenRepository {
	return &sqliteTokenRepository{db: db}
}

func (r *sqliteTokenRepository) Register(ctx context.Context, userID, token string) error {
	if err := requireKeys(userID, token); err != nil {
		return err
	}
	const query = `
        INSERT INTO tokens (token, user_id, saved_at) VALUES (?, ?, ?)
        ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, saved_at = excluded.saved_at`
	_, err := r.db.ExecContext(ctx, query, token, userID, time.Now().UnixNano())
	return err
}

func (r *sqliteTokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sqliteTokenRepository) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	return queryStrings(ctx, r.db, `SELECT token FROM tokens WHERE user_id = ? ORDER BY saved_at, token`, userID)
}

func (r *sqliteTokenRepository) OwnerOf(ctx context.Context, token string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM tokens WHERE token = ?`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return userID, err
}

func (r *sqliteTokenRepository) Stats(ctx context.Context) (domain.TokenStats, error) {
	var stats domain.TokenStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id), COUNT(*) FROM tokens`).
		Scan(&stats.TotalUsers, &stats.TotalTokens)
	return stats, err
}

type sqliteMembershipRepository struct {
	db *sql.DB
}

// NewSQLiteMembershipRepository returns a SQLite-backed implementation.
func NewSQLiteMembershipRepository(db *sql.DB) MembershipRepository {
	return &sqliteMembershipRepository{db: db}
}

const sqliteUpsertMembership = `
        INSERT INTO user_teams (user_id, team_id, added_at) VALUES (?, ?, ?)
        ON CONFLICT(user_id, team_id) DO UPDATE SET added_at = excluded.added_at`

func (r *sqliteMembershipRepository) AddUserToTeam(ctx context.Context, userID, teamID string) error {
	if err := requireKeys(userID, teamID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, sqliteUpsertMembership, userID, teamID, time.Now().UnixNano())
	return err
}

func (r *sqliteMembershipRepository) AddUsersToTeam(ctx context.Context, userIDs []string, teamID string) error {
	if err := requireKeys(teamID); err != nil {
		return err
	}
	if err := requireKeys(userIDs...); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UnixNano()
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, sqliteUpsertMembership, userID, teamID, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *sqliteMembershipRepository) RemoveUserFromTeam(ctx context.Context, userID, teamID string) (bool, error) {
	if userID == "" || teamID == "" {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_teams WHERE user_id = ? AND team_id = ?`, userID, teamID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sqliteMembershipRepository) UsersInTeam(ctx context.Context, teamID string) ([]string, error) {
	if teamID == "" {
		return nil, nil
	}
	return queryStrings(ctx, r.db, `SELECT user_id FROM user_teams WHERE team_id = ? ORDER BY user_id`, teamID)
}

func (r *sqliteMembershipRepository) UsersInTeams(ctx context.Context, teamIDs []string) ([]string, error) {
	return unionUsers(ctx, r, teamIDs)
}

func (r *sqliteMembershipRepository) TeamsForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	return queryStrings(ctx, r.db, `SELECT team_id FROM user_teams WHERE user_id = ? ORDER BY team_id`, userID)
}

func (r *sqliteMembershipRepository) Stats(ctx context.Context) (domain.MembershipStats, error) {
	var stats domain.MembershipStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT team_id), COUNT(*) FROM user_teams`).
		Scan(&stats.TotalTeams, &stats.TotalMemberships)
	return stats, err
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
