package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tempora/internal/domain"
	"tempora/internal/services"
)

// activityFlags identify the activity a frame is booked against.
type activityFlags struct {
	ActivityID int    `help:"Zebra activity id" required:""`
	ProjectID  int    `help:"Zebra project id" required:""`
	Name       string `help:"Activity name for display" default:""`
	Alias      string `help:"Activity alias" default:""`
}

func (f activityFlags) activity() (domain.Activity, error) {
	key, err := domain.NewZebraKey(f.ActivityID)
	if err != nil {
		return domain.Activity{}, err
	}
	projectKey, err := domain.NewZebraKey(f.ProjectID)
	if err != nil {
		return domain.Activity{}, err
	}
	return domain.Activity{
		Key:        key,
		Name:       f.Name,
		ProjectKey: projectKey,
		Alias:      f.Alias,
	}, nil
}

// roleFlags override the configured default role.
type roleFlags struct {
	Individual bool   `help:"Book as individual action (no role)"`
	RoleID     int    `help:"Role id to book under (overrides the default role)" default:"0"`
	RoleName   string `help:"Role name for display" default:""`
}

func (f roleFlags) role() *domain.Role {
	if f.RoleID == 0 {
		return nil
	}
	return &domain.Role{ID: f.RoleID, Name: f.RoleName}
}

// StartCmd starts tracking a frame
type StartCmd struct {
	activityFlags
	roleFlags
	Description []string `arg:"" optional:"" help:"Frame description; issue keys like ABC-123 are extracted from it"`
	At          string   `help:"Start time (default: now)" default:""`
	NoGap       bool     `help:"Start at the previous frame's stop time"`
}

// Run executes start
func (r *StartCmd) Run(cli *CLI) error {
	activity, err := r.activity()
	if err != nil {
		return err
	}

	params := services.StartParams{
		Activity:     activity,
		Description:  strings.Join(r.Description, " "),
		NoGap:        r.NoGap,
		IsIndividual: r.Individual,
		Role:         r.role(),
	}
	if r.At != "" {
		at, err := parseTimeFlag(r.At)
		if err != nil {
			return err
		}
		params.StartAt = &at
	}

	frame, err := cli.Container.Track.Start(context.Background(), params)
	if err != nil {
		return err
	}

	fmt.Printf("Started %s at %s\n", describeFrame(frame), frame.Start.Local().Format("15:04"))
	return nil
}

// StopCmd stops the running frame
type StopCmd struct {
	At string `help:"Stop time (default: now)" default:""`
}

// Run executes stop
func (r *StopCmd) Run(cli *CLI) error {
	var stopAt *time.Time
	if r.At != "" {
		at, err := parseTimeFlag(r.At)
		if err != nil {
			return err
		}
		stopAt = &at
	}

	frame, err := cli.Container.Track.Stop(context.Background(), stopAt)
	if err != nil {
		return err
	}

	fmt.Printf("Stopped %s after %s\n", describeFrame(frame), formatDuration(frame.Stop.Sub(frame.Start)))
	return nil
}

// CancelCmd discards the running frame
type CancelCmd struct{}

// Run executes cancel
func (r *CancelCmd) Run(cli *CLI) error {
	frame, err := cli.Container.Track.Cancel(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Cancelled %s (started %s ago)\n", describeFrame(frame), formatDuration(time.Since(frame.Start)))
	return nil
}

// StatusCmd shows the running frame
type StatusCmd struct{}

// Run executes status
func (r *StatusCmd) Run(cli *CLI) error {
	frame, err := cli.Container.Track.Current(context.Background())
	if err != nil {
		if started, _ := cli.Container.Track.IsStarted(context.Background()); !started {
			fmt.Println("No frame started")
			return nil
		}
		return err
	}

	fmt.Printf("Tracking %s for %s\n", describeFrame(frame), formatDuration(time.Since(frame.Start)))
	return nil
}

// AddCmd records an already-finished frame
type AddCmd struct {
	activityFlags
	roleFlags
	From        string   `help:"Start time" required:""`
	To          string   `help:"Stop time" required:""`
	Description []string `arg:"" optional:"" help:"Frame description"`
}

// Run executes add
func (r *AddCmd) Run(cli *CLI) error {
	activity, err := r.activity()
	if err != nil {
		return err
	}
	from, err := parseTimeFlag(r.From)
	if err != nil {
		return err
	}
	to, err := parseTimeFlag(r.To)
	if err != nil {
		return err
	}

	frame, err := cli.Container.Track.Add(context.Background(), services.AddParams{
		Activity:     activity,
		From:         from,
		To:           to,
		Description:  strings.Join(r.Description, " "),
		IsIndividual: r.Individual,
		Role:         r.role(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Added %s (%s)\n", describeFrame(frame), formatDuration(frame.Stop.Sub(frame.Start)))
	return nil
}

func describeFrame(frame domain.Frame) string {
	name := frame.Activity.Name
	if name == "" {
		name = frame.Activity.Alias
	}
	if name == "" {
		name = "activity " + frame.Activity.Key.String()
	}
	if frame.Description != "" {
		return fmt.Sprintf("%s (%s)", name, frame.Description)
	}
	return name
}
