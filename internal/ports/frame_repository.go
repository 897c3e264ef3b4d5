package ports

import (
	"context"
	"time"

	"tempora/internal/domain"
)

// FrameFilter is a combinable predicate over the frame store. Zero values
// mean "no constraint".
type FrameFilter struct {
	// ProjectIDs restricts matches to frames whose activity belongs to one of
	// these Zebra project ids. Locally-sourced projects never match: as soon
	// as a project filter is present, local frames are excluded.
	ProjectIDs []int
	// IssueKeys matches frames carrying any of these keys.
	IssueKeys []string
	// IgnoreProjectIDs and IgnoreIssueKeys exclude instead of include.
	IgnoreProjectIDs []int
	IgnoreIssueKeys  []string
	// From/To bound the frame in time. Without IncludePartial a frame must be
	// fully contained in [From, To]; with it, any overlap of
	// [start, effective end] with [From, To] is enough.
	From *time.Time
	To   *time.Time
	// IncludePartial switches the date bounds from full containment to
	// half-open overlap. A partially overlapping frame is returned whole,
	// never clipped to the range, so duration consumers see the full frame.
	IncludePartial bool
}

// FrameReader reads frames and the current-frame slot.
type FrameReader interface {
	Get(ctx context.Context, uuid string) (domain.Frame, error)
	// All returns every stored frame. Records that fail to decode are
	// skipped and counted, not surfaced as errors.
	All(ctx context.Context) (frames []domain.Frame, skipped int, err error)
	Filter(ctx context.Context, filter FrameFilter) ([]domain.Frame, error)
	// Current returns the running frame, or domain.ErrNotFound.
	Current(ctx context.Context) (domain.Frame, error)
	// LastCompleted returns the completed frame with the greatest stop time,
	// or domain.ErrNotFound when no frame was ever completed.
	LastCompleted(ctx context.Context) (domain.Frame, error)
	// LastUsedRoleForActivity returns the role of the most recently started
	// completed, non-individual frame booked on the activity, or nil.
	LastUsedRoleForActivity(ctx context.Context, activity domain.Activity) (*domain.Role, error)
	// LastActivityForIssueKeys returns the activity of the most recently
	// started completed frame whose issue-key set equals keys exactly
	// (order-independent), or nil. An empty key set yields nil immediately.
	LastActivityForIssueKeys(ctx context.Context, keys []string) (*domain.Activity, error)
}

// FrameWriter mutates frames and the current-frame slot.
type FrameWriter interface {
	// Save upserts a completed frame. Active frames are rejected with
	// domain.ErrValidation: only the current slot may hold one.
	Save(ctx context.Context, frame domain.Frame) error
	// Remove deletes a frame, vacating the current slot too when it holds
	// the same uuid.
	Remove(ctx context.Context, uuid string) error
	// SaveCurrent places an active frame in the current slot. It fails when
	// the frame is completed, starts in the future, or a different frame
	// already occupies the slot; re-saving the same uuid is allowed.
	SaveCurrent(ctx context.Context, frame domain.Frame) error
	// ClearCurrent vacates the slot without persisting its frame.
	ClearCurrent(ctx context.Context) error
	// CompleteCurrent stops the running frame at stop, persists it, vacates
	// the slot, and returns the completed frame. A nil stop means now.
	CompleteCurrent(ctx context.Context, stop *time.Time) (domain.Frame, error)
}

// FrameRepository is the composite frame store contract.
type FrameRepository interface {
	FrameReader
	FrameWriter
}
