package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// issueKeyPattern matches ticket references like "ABC-123" embedded in a
// frame description: 2-6 uppercase letters, a hyphen, 1-5 digits.
var issueKeyPattern = regexp.MustCompile(`[A-Z]{2,6}-[0-9]{1,5}`)

// ExtractIssueKeys returns the unique issue keys found in text, in order of
// first occurrence.
func ExtractIssueKeys(text string) []string {
	matches := issueKeyPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		keys = append(keys, m)
	}
	return keys
}

// Frame is one tracked time interval against an activity. Frames are built
// through the constructors and replaced rather than mutated; a nil Stop means
// the frame is still running.
type Frame struct {
	UUID         string
	Start        time.Time
	Stop         *time.Time
	Activity     Activity
	IsIndividual bool
	Role         *Role
	Description  string
	IssueKeys    []string
	UpdatedAt    time.Time
}

// NewFrame builds a completed frame. Stop must not precede start, and exactly
// one of isIndividual / role must be set.
func NewFrame(activity Activity, start, stop time.Time, description string, isIndividual bool, role *Role) (Frame, error) {
	f, err := newFrame(activity, start, description, isIndividual, role)
	if err != nil {
		return Frame{}, err
	}

	stop = stop.UTC()
	if stop.Before(f.Start) {
		return Frame{}, fmt.Errorf("%w: stop %s precedes start %s",
			ErrInvalidTime, stop.Format(time.RFC3339), f.Start.Format(time.RFC3339))
	}
	f.Stop = &stop
	return f, nil
}

// NewActiveFrame builds a running frame (no stop time yet).
func NewActiveFrame(activity Activity, start time.Time, description string, isIndividual bool, role *Role) (Frame, error) {
	return newFrame(activity, start, description, isIndividual, role)
}

func newFrame(activity Activity, start time.Time, description string, isIndividual bool, role *Role) (Frame, error) {
	if isIndividual && role != nil {
		return Frame{}, fmt.Errorf("%w: an individual frame cannot carry a role", ErrValidation)
	}
	if !isIndividual && role == nil {
		return Frame{}, fmt.Errorf("%w: a non-individual frame requires a role", ErrValidation)
	}

	return Frame{
		UUID:         uuid.New().String(),
		Start:        start.UTC(),
		Activity:     activity,
		IsIndividual: isIndividual,
		Role:         role,
		Description:  description,
		IssueKeys:    ExtractIssueKeys(description),
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// Completed reports whether the frame has a stop time.
func (f Frame) Completed() bool { return f.Stop != nil }

// EffectiveStop returns the stop time, or now for a running frame.
func (f Frame) EffectiveStop(now time.Time) time.Time {
	if f.Stop != nil {
		return *f.Stop
	}
	return now.UTC()
}

// Duration returns the tracked duration, measured up to now for a running
// frame.
func (f Frame) Duration(now time.Time) time.Duration {
	return f.EffectiveStop(now).Sub(f.Start)
}

// WithStop returns a completed copy of the frame with the given stop time and
// a refreshed UpdatedAt. It fails if stop precedes the frame's start.
func (f Frame) WithStop(stop time.Time) (Frame, error) {
	stop = stop.UTC()
	if stop.Before(f.Start) {
		return Frame{}, fmt.Errorf("%w: stop %s precedes start %s",
			ErrInvalidTime, stop.Format(time.RFC3339), f.Start.Format(time.RFC3339))
	}

	f.Stop = &stop
	f.UpdatedAt = time.Now().UTC()
	return f, nil
}
