package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"tempora/internal/domain"
	"tempora/internal/logging"
	"tempora/internal/ports"
)

// SyncService reconciles the local timesheet store against Zebra. Conflicts
// resolve last-writer-wins on updatedAt; local wins ties. Failures abort the
// operation in progress without rolling back already-written records
// (at-least-once semantics); callers needing atomicity snapshot first.
type SyncService struct {
	sheets  ports.TimesheetRepository
	gateway ports.ZebraGateway
}

// NewSyncService creates the sync engine.
func NewSyncService(sheets ports.TimesheetRepository, gateway ports.ZebraGateway) *SyncService {
	return &SyncService{sheets: sheets, gateway: gateway}
}

// PendingUpdate is a remote update awaiting explicit confirmation. Updates
// are never silent: dropping the descriptor (or calling Cancel) leaves both
// sides untouched, only Confirm executes the update.
type PendingUpdate struct {
	service *SyncService
	sheet   domain.Timesheet
}

// Timesheet returns the sheet the update would push.
func (p *PendingUpdate) Timesheet() domain.Timesheet { return p.sheet }

// Confirm executes the remote update, merges the remote response into the
// local record, and updates the local store.
func (p *PendingUpdate) Confirm(ctx context.Context) (domain.Timesheet, error) {
	remote, err := p.service.gateway.UpdateTimesheet(ctx, *p.sheet.ZebraID, p.sheet)
	if err != nil {
		return domain.Timesheet{}, err
	}

	merged := p.sheet.ApplyRemote(remote)
	if err := p.service.sheets.Update(ctx, merged); err != nil {
		return domain.Timesheet{}, err
	}

	logging.Logger.Info("timesheet updated in zebra", "uuid", merged.UUID, "zebra_id", *merged.ZebraID)
	return merged, nil
}

// Cancel abandons the update. Nothing was mutated on either side.
func (p *PendingUpdate) Cancel() {
	logging.Logger.Info("timesheet update cancelled", "uuid", p.sheet.UUID)
}

// Push sends a local sheet to Zebra. A never-pushed sheet (nil ZebraID) is
// created immediately and the merged result returned. A sheet that already
// exists remotely returns a PendingUpdate instead; the caller must Confirm.
func (s *SyncService) Push(ctx context.Context, sheet domain.Timesheet) (*domain.Timesheet, *PendingUpdate, error) {
	if sheet.Pushed() {
		return nil, &PendingUpdate{service: s, sheet: sheet}, nil
	}

	remote, err := s.gateway.CreateTimesheet(ctx, sheet)
	if err != nil {
		return nil, nil, err
	}

	merged := sheet.ApplyRemote(remote)
	if err := s.sheets.Save(ctx, merged); err != nil {
		return nil, nil, err
	}

	logging.Logger.Info("timesheet created in zebra", "uuid", merged.UUID, "zebra_id", *merged.ZebraID)
	return &merged, nil, nil
}

// Pull fetches the remote records for the inclusive business-timezone date
// range and reconciles them into the local store. It returns only the sheets
// that were actually created or updated.
func (s *SyncService) Pull(ctx context.Context, from time.Time, to *time.Time) ([]domain.Timesheet, error) {
	remote, err := s.gateway.FetchTimesheets(ctx, ports.TimesheetQuery{From: from, To: to})
	if err != nil {
		return nil, err
	}

	// Deterministic order so partial failures are reproducible
	ids := make([]int, 0, len(remote))
	for id := range remote {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var changed []domain.Timesheet
	for _, id := range ids {
		record := remote[id]

		local, err := s.sheets.GetByZebraID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			if err := s.sheets.Save(ctx, record); err != nil {
				return changed, err
			}
			logging.Logger.Debug("pulled new timesheet", "zebra_id", id, "date", record.DateString())
			changed = append(changed, record)
			continue
		}
		if err != nil {
			return changed, err
		}

		// Last-writer-wins at second resolution; local wins ties
		remoteAt := record.UpdatedAt.Truncate(time.Second)
		localAt := local.UpdatedAt.Truncate(time.Second)
		if !remoteAt.After(localAt) {
			continue
		}

		merged := local.ApplyRemote(record)
		if err := s.sheets.Update(ctx, merged); err != nil {
			return changed, err
		}
		logging.Logger.Debug("pulled updated timesheet", "zebra_id", id, "date", merged.DateString())
		changed = append(changed, merged)
	}

	return changed, nil
}

// DropRemote deletes the sheet's remote record and clears the local Zebra
// linkage, turning the sheet back into a never-pushed local one.
func (s *SyncService) DropRemote(ctx context.Context, sheet domain.Timesheet) (domain.Timesheet, error) {
	if !sheet.Pushed() {
		return sheet, nil
	}

	if err := s.gateway.DeleteTimesheet(ctx, *sheet.ZebraID); err != nil {
		return domain.Timesheet{}, err
	}

	sheet.ZebraID = nil
	sheet.UpdatedAt = time.Now().UTC()
	if err := s.sheets.Update(ctx, sheet); err != nil {
		return domain.Timesheet{}, err
	}
	return sheet, nil
}
