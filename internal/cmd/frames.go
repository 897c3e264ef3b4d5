package cmd

import (
	"context"
	"fmt"
	"strings"

	"tempora/internal/ports"
)

// LogCmd lists tracked frames
type LogCmd struct {
	From           string   `help:"Only frames starting at or after this time" default:""`
	To             string   `help:"Only frames ending at or before this time" default:""`
	Project        []int    `help:"Only frames on these Zebra project ids"`
	Issue          []string `help:"Only frames carrying any of these issue keys"`
	IgnoreProject  []int    `help:"Exclude frames on these Zebra project ids"`
	IgnoreIssue    []string `help:"Exclude frames carrying any of these issue keys"`
	IncludePartial bool     `help:"Include frames that only partially overlap the range (returned whole, not clipped)"`
}

// Run executes log
func (r *LogCmd) Run(cli *CLI) error {
	filter := ports.FrameFilter{
		ProjectIDs:       r.Project,
		IssueKeys:        r.Issue,
		IgnoreProjectIDs: r.IgnoreProject,
		IgnoreIssueKeys:  r.IgnoreIssue,
		IncludePartial:   r.IncludePartial,
	}
	if r.From != "" {
		from, err := parseTimeFlag(r.From)
		if err != nil {
			return err
		}
		filter.From = &from
	}
	if r.To != "" {
		to, err := parseTimeFlag(r.To)
		if err != nil {
			return err
		}
		filter.To = &to
	}

	frames, err := cli.Container.Frames.Filter(context.Background(), filter)
	if err != nil {
		return err
	}

	for _, frame := range frames {
		stop := "..."
		if frame.Stop != nil {
			stop = frame.Stop.Local().Format("15:04")
		}
		keys := ""
		if len(frame.IssueKeys) > 0 {
			keys = "  [" + strings.Join(frame.IssueKeys, ", ") + "]"
		}
		fmt.Printf("%s  %s - %s  %s%s\n",
			frame.Start.Local().Format("2006-01-02"),
			frame.Start.Local().Format("15:04"),
			stop,
			describeFrame(frame),
			keys,
		)
	}
	fmt.Printf("%d frame(s)\n", len(frames))
	return nil
}
