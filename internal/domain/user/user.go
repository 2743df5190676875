// internal/domain/user/user.go
package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"habit_reminder_service/internal/domain/reminder"

	"github.com/google/uuid"
)

var ErrNotFound = fmt.Errorf("user not found")
var ErrConnectTokenExpired = fmt.Errorf("telegram connect token expired")
var ErrChatAlreadyLinked = fmt.Errorf("telegram chat is already linked to another account")

// User corresponds to the 'users' table. The scheduler only reads it.
type User struct {
	ID                    uuid.UUID
	Email                 string
	Timezone              string // IANA name, empty means UTC
	DefaultTone           reminder.Tone
	TelegramChatID        sql.NullInt64
	TelegramUsername      sql.NullString
	ConnectToken          sql.NullString
	ConnectTokenExpiresAt sql.NullTime
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Owner projects the fields the dispatcher needs.
func (u *User) Owner() reminder.Owner {
	return reminder.Owner{
		Timezone:    u.Timezone,
		ChatID:      u.TelegramChatID,
		Email:       u.Email,
		DefaultTone: u.DefaultTone,
	}
}

// ConnectTokenValid reports whether the connect token can still be redeemed at now.
func (u *User) ConnectTokenValid(now time.Time) bool {
	if !u.ConnectToken.Valid {
		return false
	}
	return !u.ConnectTokenExpiresAt.Valid || now.Before(u.ConnectTokenExpiresAt.Time)
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByChatID(ctx context.Context, chatID int64) (*User, error)
	GetByConnectToken(ctx context.Context, token string) (*User, error)
	// LinkTelegram stores the chat identity and clears the connect token, provided the
	// user still holds token. Otherwise it returns ErrConnectTokenExpired.
	LinkTelegram(ctx context.Context, userID uuid.UUID, token string, chatID int64, username string) error
}
