package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Osman8a/TDAH-REST-API/internal/models"
)

// SessionRepository edits the tokens column of a user row in place, so two
// concurrent logins never overwrite each other's token.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) AppendToken(ctx context.Context, userID string, token models.Token) error {
	const query = `
		UPDATE users
		SET tokens = tokens || jsonb_build_array(jsonb_build_object('access', $2::text, 'token', $3::text)),
		    updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, userID, token.Access, token.Token)
	if err != nil {
		return fmt.Errorf("append token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RemoveToken drops token from the user's list. Nothing happens when the
// token is not there.
func (r *SessionRepository) RemoveToken(ctx context.Context, userID string, token string) error {
	const query = `
		UPDATE users
		SET tokens = COALESCE((
				SELECT jsonb_agg(elem ORDER BY ord)
				FROM jsonb_array_elements(tokens) WITH ORDINALITY AS t(elem, ord)
				WHERE elem->>'token' <> $2
			), '[]'::jsonb),
		    updated_at = NOW()
		WHERE id = $1
		  AND tokens @> jsonb_build_array(jsonb_build_object('token', $2::text))
	`
	if _, err := r.pool.Exec(ctx, query, userID, token); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
