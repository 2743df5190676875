package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"habit_reminder_service/internal/domain/user"
)

var ErrConnectTokenMissing = fmt.Errorf("telegram connect token is missing")

// ConnectService links a Telegram chat to a user account via a one-time connect token.
type ConnectService struct {
	users user.Repository
	now   func() time.Time
}

func NewConnectService(users user.Repository) *ConnectService {
	return &ConnectService{users: users, now: time.Now}
}

// LinkTelegram redeems token for chatID. The token is cleared on success.
func (s *ConnectService) LinkTelegram(ctx context.Context, token string, chatID int64, username string) (*user.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrConnectTokenMissing
	}

	u, err := s.users.GetByConnectToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up connect token: %w", err)
	}
	if !u.ConnectTokenValid(s.now()) {
		return nil, user.ErrConnectTokenExpired
	}

	if err := s.users.LinkTelegram(ctx, u.ID, token, chatID, username); err != nil {
		if errors.Is(err, user.ErrChatAlreadyLinked) || errors.Is(err, user.ErrConnectTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to link telegram chat: %w", err)
	}
	u.TelegramChatID.Int64, u.TelegramChatID.Valid = chatID, true
	u.TelegramUsername.String, u.TelegramUsername.Valid = username, username != ""
	u.ConnectToken.Valid = false
	u.ConnectTokenExpiresAt.Valid = false
	return u, nil
}

// UserForChat resolves the account linked to a chat.
func (s *ConnectService) UserForChat(ctx context.Context, chatID int64) (*user.User, error) {
	return s.users.GetByChatID(ctx, chatID)
}
