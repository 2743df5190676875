package app

import (
	"context"
	"fmt"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// AdminService exposes operator actions to the configured admin chat.
type AdminService struct {
	sweeper         SweepRunner
	adminTelegramID int64
}

func NewAdminService(sweeper SweepRunner, adminID int64) *AdminService {
	return &AdminService{
		sweeper:         sweeper,
		adminTelegramID: adminID,
	}
}

// IsAdmin reports whether the sender is the configured admin. An unset admin id matches nobody.
func (s *AdminService) IsAdmin(senderID int64) bool {
	return s.adminTelegramID != 0 && senderID == s.adminTelegramID
}

// RunSweep triggers a sweep on behalf of the admin.
func (s *AdminService) RunSweep(ctx context.Context, performingAdminID int64) (*SweepSummary, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	summary, err := s.sweeper.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run sweep: %w", err)
	}
	return summary, nil
}
