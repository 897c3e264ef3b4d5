package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tempora/internal/domain"
	"tempora/internal/ports"
	"tempora/internal/services"
)

// TimesheetCmd groups the timesheet operations
type TimesheetCmd struct {
	Generate TimesheetGenerateCmd `cmd:"" help:"Consolidate a day's frames into timesheets"`
	List     TimesheetListCmd     `cmd:"" help:"List local timesheets"`
	Push     TimesheetPushCmd     `cmd:"" help:"Push local timesheets to Zebra"`
	Pull     TimesheetPullCmd     `cmd:"" help:"Pull timesheets from Zebra"`
}

// TimesheetGenerateCmd consolidates frames into timesheets
type TimesheetGenerateCmd struct {
	Date string `help:"Day to consolidate (YYYY-MM-DD, business timezone)" required:""`
}

// Run executes timesheet generate
func (r *TimesheetGenerateCmd) Run(cli *CLI) error {
	ctx := context.Background()
	loc := cli.Container.Location

	day, err := parseDateFlag(r.Date, loc)
	if err != nil {
		return err
	}
	from := day
	to := day.AddDate(0, 0, 1)

	frames, err := cli.Container.Frames.Filter(ctx, ports.FrameFilter{From: &from, To: &to})
	if err != nil {
		return err
	}

	sheets, err := services.ConsolidateFrames(frames, loc)
	if err != nil {
		return err
	}

	for _, sheet := range sheets {
		if err := cli.Container.Sheets.Save(ctx, sheet); err != nil {
			return err
		}
		fmt.Printf("%s  %s  %sh\n", sheet.DateString(), sheet.Activity.Name, sheet.Time)
	}
	fmt.Printf("%d timesheet(s) generated\n", len(sheets))
	return nil
}

// TimesheetListCmd lists local timesheets
type TimesheetListCmd struct{}

// Run executes timesheet list
func (r *TimesheetListCmd) Run(cli *CLI) error {
	sheets, skipped, err := cli.Container.Sheets.All(context.Background())
	if err != nil {
		return err
	}

	for _, sheet := range sheets {
		pushed := "local"
		if sheet.Pushed() {
			pushed = fmt.Sprintf("zebra:%d", *sheet.ZebraID)
		}
		fmt.Printf("%s  %s  %sh  %s  %s\n",
			sheet.DateString(), sheet.UUID[:8], sheet.Time, pushed, sheet.Description)
	}
	if skipped > 0 {
		fmt.Printf("Warning: %d unreadable record(s) skipped\n", skipped)
	}
	return nil
}

// TimesheetPushCmd pushes local timesheets to Zebra
type TimesheetPushCmd struct {
	UUID string `arg:"" optional:"" help:"Push a single timesheet by uuid (default: every unsynced one)"`
	Yes  bool   `help:"Confirm updates to timesheets that already exist in Zebra" short:"y"`
}

// Run executes timesheet push
func (r *TimesheetPushCmd) Run(cli *CLI) error {
	ctx := context.Background()

	var sheets []domain.Timesheet
	if r.UUID != "" {
		sheet, err := cli.Container.Sheets.Get(ctx, r.UUID)
		if err != nil {
			return err
		}
		sheets = []domain.Timesheet{sheet}
	} else {
		all, _, err := cli.Container.Sheets.All(ctx)
		if err != nil {
			return err
		}
		sheets = all
	}

	for _, sheet := range sheets {
		if sheet.DoNotSync {
			continue
		}

		pushed, pending, err := cli.Container.Sync.Push(ctx, sheet)
		if err != nil {
			return err
		}
		if pending != nil {
			// Updating an existing remote record requires an explicit go-ahead
			if !r.Yes {
				pending.Cancel()
				fmt.Printf("%s  skipped: already in Zebra, re-run with --yes to update\n", sheet.UUID[:8])
				continue
			}
			updated, err := pending.Confirm(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s  updated as zebra:%d\n", updated.UUID[:8], *updated.ZebraID)
			continue
		}
		fmt.Printf("%s  created as zebra:%d\n", pushed.UUID[:8], *pushed.ZebraID)
	}
	return nil
}

// TimesheetPullCmd pulls timesheets from Zebra
type TimesheetPullCmd struct {
	From string `help:"Range start (YYYY-MM-DD, business timezone)" required:""`
	To   string `help:"Range end (YYYY-MM-DD, inclusive)" default:""`
}

// Run executes timesheet pull
func (r *TimesheetPullCmd) Run(cli *CLI) error {
	loc := cli.Container.Location

	from, err := parseDateFlag(r.From, loc)
	if err != nil {
		return err
	}
	var to *time.Time
	if r.To != "" {
		parsed, err := parseDateFlag(r.To, loc)
		if err != nil {
			return err
		}
		to = &parsed
	}

	changed, err := cli.Container.Sync.Pull(context.Background(), from, to)
	if err != nil {
		var syncErr *domain.SyncError
		if errors.As(err, &syncErr) {
			return fmt.Errorf("sync aborted: %w", err)
		}
		return err
	}

	for _, sheet := range changed {
		fmt.Printf("%s  %s  %sh\n", sheet.DateString(), sheet.Activity.Name, sheet.Time)
	}
	fmt.Printf("%d timesheet(s) pulled\n", len(changed))
	return nil
}
