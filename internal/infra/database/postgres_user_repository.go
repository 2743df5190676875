package database

import (
	"context"
	"database/sql"
	"fmt"

	"habit_reminder_service/internal/domain/user"

	"github.com/google/uuid"
)

const userColumns = `id, email, timezone, default_tone, telegram_chat_id, telegram_username,
       telegram_connect_token, telegram_connect_token_expires_at, created_at, updated_at`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg any) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Timezone, &u.DefaultTone, &u.TelegramChatID, &u.TelegramUsername,
		&u.ConnectToken, &u.ConnectTokenExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresUserRepository) GetByChatID(ctx context.Context, chatID int64) (*user.User, error) {
	return r.getOne(ctx, "telegram_chat_id = $1", chatID)
}

func (r *PostgresUserRepository) GetByConnectToken(ctx context.Context, token string) (*user.User, error) {
	return r.getOne(ctx, "telegram_connect_token = $1", token)
}

func (r *PostgresUserRepository) LinkTelegram(ctx context.Context, userID uuid.UUID, token string, chatID int64, username string) error {
	query := `UPDATE users
SET telegram_chat_id = $1, telegram_username = $2, telegram_connect_token = NULL,
    telegram_connect_token_expires_at = NULL, updated_at = NOW()
WHERE id = $3 AND telegram_connect_token = $4`

	res, err := r.db.ExecContext(ctx, query, chatID, sql.NullString{String: username, Valid: username != ""}, userID, token)
	if err != nil {
		if isUniqueViolation(err, "users_telegram_chat_id_key") {
			return user.ErrChatAlreadyLinked
		}
		return fmt.Errorf("error linking telegram chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		// Redeemed by a concurrent /start, or the user is gone.
		return user.ErrConnectTokenExpired
	}
	return nil
}
