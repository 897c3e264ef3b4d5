package services

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tempora/internal/domain"
)

var consolidateQuarter = decimal.RequireFromString("0.25")

// RoundToQuarterHours converts a tracked duration to billable hours on the
// quarter-hour grid, rounding half up. Any non-zero duration bills at least
// one quarter hour.
func RoundToQuarterHours(d time.Duration) decimal.Decimal {
	if d <= 0 {
		return decimal.Zero
	}

	hours := decimal.NewFromFloat(d.Hours())
	quarters := hours.Div(consolidateQuarter).Round(0)
	if quarters.IsZero() {
		quarters = decimal.NewFromInt(1)
	}
	return quarters.Mul(consolidateQuarter)
}

// ConsolidateFrames reduces completed frames into daily timesheets: one sheet
// per (business-timezone day, activity, role, individual flag), with the
// summed duration rounded to quarter hours and the source frame uuids
// recorded for traceability. Frames on non-Zebra activities are skipped;
// only Zebra work is billable.
func ConsolidateFrames(frames []domain.Frame, loc *time.Location) ([]domain.Timesheet, error) {
	type bucketKey struct {
		day        string
		activity   string
		roleID     int
		individual bool
	}
	type bucket struct {
		frames   []domain.Frame
		duration time.Duration
	}

	buckets := map[bucketKey]*bucket{}
	order := []bucketKey{}
	for _, frame := range frames {
		if !frame.Completed() {
			continue
		}
		if !frame.Activity.Key.IsZebra() || !frame.Activity.ProjectKey.IsZebra() {
			continue
		}

		key := bucketKey{
			day:        frame.Start.In(loc).Format(domain.DateLayout),
			activity:   frame.Activity.Key.String(),
			individual: frame.IsIndividual,
		}
		if frame.Role != nil {
			key.roleID = frame.Role.ID
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.frames = append(b.frames, frame)
		b.duration += frame.Stop.Sub(frame.Start)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].day != order[j].day {
			return order[i].day < order[j].day
		}
		if order[i].activity != order[j].activity {
			return order[i].activity < order[j].activity
		}
		if order[i].individual != order[j].individual {
			return !order[i].individual
		}
		return order[i].roleID < order[j].roleID
	})

	sheets := make([]domain.Timesheet, 0, len(buckets))
	for _, key := range order {
		b := buckets[key]
		first := b.frames[0]

		date, err := domain.ParseBusinessDate(key.day, loc)
		if err != nil {
			return nil, err
		}

		descriptions := make([]string, 0, len(b.frames))
		uuids := make([]string, 0, len(b.frames))
		seen := map[string]bool{}
		for _, frame := range b.frames {
			uuids = append(uuids, frame.UUID)
			if frame.Description != "" && !seen[frame.Description] {
				seen[frame.Description] = true
				descriptions = append(descriptions, frame.Description)
			}
		}

		sheet, err := domain.NewTimesheet(
			first.Activity,
			date,
			RoundToQuarterHours(b.duration),
			strings.Join(descriptions, ", "),
			first.IsIndividual,
			first.Role,
		)
		if err != nil {
			return nil, err
		}
		sheet.FrameUUIDs = uuids
		sheets = append(sheets, sheet)
	}

	return sheets, nil
}
