package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day wire format for timesheet dates.
const DateLayout = "2006-01-02"

var (
	quarterHour = decimal.RequireFromString("0.25")
	// hoursEpsilon absorbs floating-point noise from remote payloads when
	// checking quarter-hour granularity.
	hoursEpsilon = decimal.RequireFromString("0.0001")
)

// ValidateHours checks that hours is non-negative and a multiple of a quarter
// hour, tolerating floating-point noise up to 1e-4.
func ValidateHours(hours decimal.Decimal) error {
	if hours.IsNegative() {
		return fmt.Errorf("%w: time must not be negative, got %s", ErrValidation, hours)
	}

	rem := hours.Mod(quarterHour)
	if rem.GreaterThan(hoursEpsilon) && quarterHour.Sub(rem).GreaterThan(hoursEpsilon) {
		return fmt.Errorf("%w: time must be a multiple of 0.25 hours, got %s", ErrValidation, hours)
	}
	return nil
}

// ParseBusinessDate parses a "YYYY-MM-DD" string as midnight in the remote
// system's business timezone. The date is deliberately not converted from UTC.
func ParseBusinessDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return d, nil
}

// Timesheet is one billable day-entry, eventually synced to Zebra. A nil
// ZebraID means the sheet was never pushed. Timesheets are replaced wholesale;
// remote-driven replacements go through ApplyRemote so UUID, FrameUUIDs, and
// DoNotSync survive.
type Timesheet struct {
	UUID              string
	Activity          Activity
	Description       string
	ClientDescription string
	Time              decimal.Decimal
	Date              time.Time // midnight in the business timezone
	Role              *Role
	IndividualAction  bool
	FrameUUIDs        []string
	ZebraID           *int
	UpdatedAt         time.Time
	DoNotSync         bool
}

// NewTimesheet builds a local timesheet (no Zebra id yet). The activity and
// its project must be Zebra-sourced, hours must land on a quarter hour, and a
// sheet without a role must be an individual action.
func NewTimesheet(activity Activity, date time.Time, hours decimal.Decimal, description string, individualAction bool, role *Role) (Timesheet, error) {
	if !activity.Key.IsZebra() {
		return Timesheet{}, fmt.Errorf("%w: timesheet activity must be zebra-sourced", ErrValidation)
	}
	if !activity.ProjectKey.IsZebra() {
		return Timesheet{}, fmt.Errorf("%w: timesheet activity project must be zebra-sourced", ErrValidation)
	}
	if err := ValidateHours(hours); err != nil {
		return Timesheet{}, err
	}
	if role == nil && !individualAction {
		return Timesheet{}, fmt.Errorf("%w: a timesheet without a role must be an individual action", ErrValidation)
	}

	return Timesheet{
		UUID:             uuid.New().String(),
		Activity:         activity,
		Description:      description,
		Time:             hours,
		Date:             date,
		Role:             role,
		IndividualAction: individualAction,
		UpdatedAt:        time.Now().UTC(),
	}, nil
}

// DateString returns the calendar day in wire form.
func (t Timesheet) DateString() string { return t.Date.Format(DateLayout) }

// Pushed reports whether the sheet already exists in Zebra.
func (t Timesheet) Pushed() bool { return t.ZebraID != nil }

// ApplyRemote returns a copy carrying every remote-owned field from remote
// while preserving the local UUID, FrameUUIDs, and DoNotSync.
func (t Timesheet) ApplyRemote(remote Timesheet) Timesheet {
	merged := remote
	merged.UUID = t.UUID
	merged.FrameUUIDs = t.FrameUUIDs
	merged.DoNotSync = t.DoNotSync
	return merged
}
