// Package cmd wires the CLI surface. The commands are a thin collaborator
// layer over the services; parsing and display live here, the engine's rules
// do not.
package cmd

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"tempora/internal/config"
	"tempora/internal/logging"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version   kong.VersionFlag `help:"Show version information"`
	Debug     bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile string           `help:"Custom path for debug log file"`

	Start     StartCmd     `cmd:"" help:"Start tracking a frame"`
	Stop      StopCmd      `cmd:"" help:"Stop the running frame"`
	Cancel    CancelCmd    `cmd:"" help:"Discard the running frame"`
	Status    StatusCmd    `cmd:"" help:"Show the running frame"`
	Add       AddCmd       `cmd:"" help:"Record an already-finished frame"`
	Log       LogCmd       `cmd:"" help:"List tracked frames"`
	Report    ReportCmd    `cmd:"" help:"Aggregate tracked time per project, activity, and issue key"`
	Timesheet TimesheetCmd `cmd:"" help:"Manage timesheets (generate, push, pull)"`

	// Internal fields (not flags)
	Container *Container       `kong:"-"`
	settings  *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// AfterApply initializes logging and the dependency container after parsing
func (c *CLI) AfterApply() error {
	if c.settings != nil && c.settings.Debug {
		c.Debug = true
	}

	if _, err := logging.Initialize(c.Debug, c.DebugFile); err != nil {
		return err
	}

	container, err := NewContainer(c.settings)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container
	return nil
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	if c.Container != nil {
		return c.Container.Close()
	}
	return nil
}

// timeLayouts are the formats accepted for --at/--from/--to flags, tried in
// order. Values without a zone are read in the local timezone.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"15:04",
}

// parseTimeFlag parses a user-supplied timestamp. The bare "15:04" form is
// anchored to today.
func parseTimeFlag(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, value, time.Local)
		if err != nil {
			continue
		}
		if layout == "15:04" {
			now := time.Now()
			t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (try \"15:04\" or \"2006-01-02 15:04\")", value)
}

// parseDateFlag parses a "YYYY-MM-DD" flag in the business timezone.
func parseDateFlag(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q (expected YYYY-MM-DD)", value)
	}
	return t, nil
}

// formatDuration renders a duration as "3h 25m" for display.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
