package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tempora/internal/ports"
	"tempora/internal/services"
)

// ReportCmd aggregates tracked time
type ReportCmd struct {
	From       string `help:"Range start (default: start of current week)" default:""`
	To         string `help:"Range end (default: now)" default:""`
	ByIssueKey bool   `help:"Group by whole issue-key set and activity instead of project/activity/key"`
}

// Run executes report
func (r *ReportCmd) Run(cli *CLI) error {
	now := time.Now()
	from := startOfWeek(now)
	to := now
	var err error
	if r.From != "" {
		if from, err = parseTimeFlag(r.From); err != nil {
			return err
		}
	}
	if r.To != "" {
		if to, err = parseTimeFlag(r.To); err != nil {
			return err
		}
	}

	frames, err := cli.Container.Frames.Filter(context.Background(), ports.FrameFilter{
		From: &from,
		To:   &to,
	})
	if err != nil {
		return err
	}

	if r.ByIssueKey {
		groups := services.GenerateReportByIssueKey(frames, from, to)
		for _, group := range groups {
			fmt.Printf("%s  %s  %s\n",
				strings.Join(group.IssueKeys, ", "),
				group.Activity,
				formatDuration(group.Total),
			)
		}
		return nil
	}

	report := services.GenerateReport(frames, from, to)
	for _, project := range report.Projects {
		fmt.Printf("%s  %s\n", project.Name, formatDuration(project.Total))
		for _, activity := range project.Activities {
			fmt.Printf("  %s  %s\n", activity.Name, formatDuration(activity.Total))
			for _, key := range activity.IssueKeys {
				fmt.Printf("    %s  %s\n", key.Key, formatDuration(key.Total))
			}
		}
	}
	fmt.Printf("Total: %s\n", formatDuration(report.Total))
	return nil
}

func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the previous Monday
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}
