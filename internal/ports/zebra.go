package ports

import (
	"context"
	"time"

	"tempora/internal/domain"
)

// TimesheetQuery bounds a remote fetch to an inclusive calendar-day range in
// the business timezone.
type TimesheetQuery struct {
	From time.Time
	To   *time.Time
}

// ZebraGateway is the remote system-of-record contract for timesheets. Every
// operation surfaces transport or protocol failures as *domain.SyncError;
// FetchTimesheet distinguishes a missing record (domain.IsRemoteNotFound)
// from other failures.
type ZebraGateway interface {
	CreateTimesheet(ctx context.Context, sheet domain.Timesheet) (domain.Timesheet, error)
	UpdateTimesheet(ctx context.Context, zebraID int, sheet domain.Timesheet) (domain.Timesheet, error)
	DeleteTimesheet(ctx context.Context, zebraID int) error
	FetchTimesheets(ctx context.Context, query TimesheetQuery) (map[int]domain.Timesheet, error)
	FetchTimesheet(ctx context.Context, zebraID int) (domain.Timesheet, error)
}

// RoleSource resolves the caller's default role when a frame is started
// without an explicit one.
type RoleSource interface {
	// CurrentUserDefaultRole returns the configured default role, or nil
	// when none is configured.
	CurrentUserDefaultRole(ctx context.Context) (*domain.Role, error)
}
