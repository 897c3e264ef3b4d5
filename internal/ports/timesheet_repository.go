package ports

import (
	"context"
	"time"

	"tempora/internal/domain"
)

// TimesheetRepository persists local timesheets. Save creates, Update
// replaces an existing sheet; the sync engine relies on the distinction so
// remote-driven updates can never silently create duplicates.
type TimesheetRepository interface {
	Get(ctx context.Context, uuid string) (domain.Timesheet, error)
	// GetByZebraID returns the local sheet linked to a Zebra record, or
	// domain.ErrNotFound.
	GetByZebraID(ctx context.Context, zebraID int) (domain.Timesheet, error)
	// All returns every stored sheet; undecodable records are skipped and
	// counted.
	All(ctx context.Context) (sheets []domain.Timesheet, skipped int, err error)
	// ByDateRange returns sheets whose calendar day falls in [from, to],
	// compared as business-timezone dates.
	ByDateRange(ctx context.Context, from, to time.Time) ([]domain.Timesheet, error)
	Save(ctx context.Context, sheet domain.Timesheet) error
	Update(ctx context.Context, sheet domain.Timesheet) error
	Remove(ctx context.Context, uuid string) error
}
