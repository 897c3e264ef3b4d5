package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tempora/internal/domain"
	"tempora/internal/logging"
	"tempora/internal/ports"
)

// TimesheetStore persists local timesheets. Save upserts, Update requires the
// sheet to exist already; the sync engine relies on the distinction.
type TimesheetStore struct {
	records ports.RecordBackend
	loc     *time.Location
}

// NewTimesheetStore creates a timesheet store over the record backend. loc is
// the business timezone sheet dates are parsed in.
func NewTimesheetStore(records ports.RecordBackend, loc *time.Location) *TimesheetStore {
	return &TimesheetStore{records: records, loc: loc}
}

// Get returns the sheet with the given uuid.
func (s *TimesheetStore) Get(ctx context.Context, uuid string) (domain.Timesheet, error) {
	records, err := s.records.Read()
	if err != nil {
		return domain.Timesheet{}, err
	}

	raw, ok := records[uuid]
	if !ok {
		return domain.Timesheet{}, fmt.Errorf("timesheet %s: %w", uuid, domain.ErrNotFound)
	}
	sheet, err := decodeTimesheet(raw, s.loc)
	if err != nil {
		return domain.Timesheet{}, fmt.Errorf("failed to decode timesheet %s: %w", uuid, err)
	}
	return sheet, nil
}

// GetByZebraID returns the local sheet linked to a Zebra record.
func (s *TimesheetStore) GetByZebraID(ctx context.Context, zebraID int) (domain.Timesheet, error) {
	sheets, _, err := s.All(ctx)
	if err != nil {
		return domain.Timesheet{}, err
	}
	for _, sheet := range sheets {
		if sheet.ZebraID != nil && *sheet.ZebraID == zebraID {
			return sheet, nil
		}
	}
	return domain.Timesheet{}, fmt.Errorf("timesheet with zebra id %d: %w", zebraID, domain.ErrNotFound)
}

// All returns every stored sheet ordered by date. Undecodable records are
// skipped and counted.
func (s *TimesheetStore) All(ctx context.Context) ([]domain.Timesheet, int, error) {
	records, err := s.records.Read()
	if err != nil {
		return nil, 0, err
	}

	sheets := make([]domain.Timesheet, 0, len(records))
	skipped := 0
	for id, raw := range records {
		sheet, err := decodeTimesheet(raw, s.loc)
		if err != nil {
			skipped++
			logging.Logger.Warn("skipping undecodable timesheet record", "id", id, "error", err)
			continue
		}
		sheets = append(sheets, sheet)
	}

	sort.Slice(sheets, func(i, j int) bool {
		if sheets[i].Date.Equal(sheets[j].Date) {
			return sheets[i].UUID < sheets[j].UUID
		}
		return sheets[i].Date.Before(sheets[j].Date)
	})
	return sheets, skipped, nil
}

// ByDateRange returns sheets whose calendar day falls in [from, to],
// compared as business-timezone dates.
func (s *TimesheetStore) ByDateRange(ctx context.Context, from, to time.Time) ([]domain.Timesheet, error) {
	sheets, _, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	fromDay := from.In(s.loc).Format(domain.DateLayout)
	toDay := to.In(s.loc).Format(domain.DateLayout)

	matched := make([]domain.Timesheet, 0, len(sheets))
	for _, sheet := range sheets {
		day := sheet.DateString()
		if day >= fromDay && day <= toDay {
			matched = append(matched, sheet)
		}
	}
	return matched, nil
}

// Save upserts a sheet keyed by uuid.
func (s *TimesheetStore) Save(ctx context.Context, sheet domain.Timesheet) error {
	records, err := s.records.Read()
	if err != nil {
		return err
	}

	raw, err := encodeTimesheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to encode timesheet %s: %w", sheet.UUID, err)
	}
	records[sheet.UUID] = raw
	return s.records.Write(records)
}

// Update replaces an existing sheet; it fails with domain.ErrNotFound when
// the uuid was never saved.
func (s *TimesheetStore) Update(ctx context.Context, sheet domain.Timesheet) error {
	records, err := s.records.Read()
	if err != nil {
		return err
	}

	if _, ok := records[sheet.UUID]; !ok {
		return fmt.Errorf("timesheet %s: %w", sheet.UUID, domain.ErrNotFound)
	}

	raw, err := encodeTimesheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to encode timesheet %s: %w", sheet.UUID, err)
	}
	records[sheet.UUID] = raw
	return s.records.Write(records)
}

// Remove deletes a sheet.
func (s *TimesheetStore) Remove(ctx context.Context, uuid string) error {
	records, err := s.records.Read()
	if err != nil {
		return err
	}

	if _, ok := records[uuid]; !ok {
		return fmt.Errorf("timesheet %s: %w", uuid, domain.ErrNotFound)
	}
	delete(records, uuid)
	return s.records.Write(records)
}
