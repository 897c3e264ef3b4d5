package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"tempora/internal/domain"
	"tempora/internal/logging"
	"tempora/internal/ports"
)

// currentSlotID is the fixed record id used inside the current-frame bucket.
const currentSlotID = "current"

// FrameStore persists frames and owns the single current-frame slot. The
// slot is a store-level contract: at most one active frame exists, and only
// completed frames enter permanent storage.
type FrameStore struct {
	frames  ports.RecordBackend
	current ports.RecordBackend
	now     func() time.Time
}

// NewFrameStore creates a frame store over the two record backends.
func NewFrameStore(frames, current ports.RecordBackend) *FrameStore {
	return &FrameStore{
		frames:  frames,
		current: current,
		now:     time.Now,
	}
}

// Save upserts a completed frame, keyed by uuid. Active frames belong in the
// current slot, never in permanent storage.
func (s *FrameStore) Save(ctx context.Context, frame domain.Frame) error {
	if !frame.Completed() {
		return fmt.Errorf("%w: cannot save an active frame, stop it first", domain.ErrValidation)
	}

	records, err := s.frames.Read()
	if err != nil {
		return err
	}

	raw, err := encodeFrame(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame %s: %w", frame.UUID, err)
	}
	records[frame.UUID] = raw
	return s.frames.Write(records)
}

// Get returns the frame with the given uuid.
func (s *FrameStore) Get(ctx context.Context, uuid string) (domain.Frame, error) {
	records, err := s.frames.Read()
	if err != nil {
		return domain.Frame{}, err
	}

	raw, ok := records[uuid]
	if !ok {
		return domain.Frame{}, fmt.Errorf("frame %s: %w", uuid, domain.ErrNotFound)
	}
	frame, err := decodeFrame(raw)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("failed to decode frame %s: %w", uuid, err)
	}
	return frame, nil
}

// All returns every stored frame ordered by start time. Records that fail to
// decode are skipped and counted so one corrupt entry cannot block the rest
// of the store.
func (s *FrameStore) All(ctx context.Context) ([]domain.Frame, int, error) {
	records, err := s.frames.Read()
	if err != nil {
		return nil, 0, err
	}

	frames := make([]domain.Frame, 0, len(records))
	skipped := 0
	for id, raw := range records {
		frame, err := decodeFrame(raw)
		if err != nil {
			skipped++
			logging.Logger.Warn("skipping undecodable frame record", "id", id, "error", err)
			continue
		}
		frames = append(frames, frame)
	}

	sort.Slice(frames, func(i, j int) bool {
		if frames[i].Start.Equal(frames[j].Start) {
			return frames[i].UUID < frames[j].UUID
		}
		return frames[i].Start.Before(frames[j].Start)
	})
	return frames, skipped, nil
}

// Remove deletes a frame. When the current slot holds the same uuid it is
// vacated as well.
func (s *FrameStore) Remove(ctx context.Context, uuid string) error {
	records, err := s.frames.Read()
	if err != nil {
		return err
	}

	if _, ok := records[uuid]; !ok {
		// The uuid may name the running frame instead
		if cur, curErr := s.Current(ctx); curErr == nil && cur.UUID == uuid {
			return s.ClearCurrent(ctx)
		}
		return fmt.Errorf("frame %s: %w", uuid, domain.ErrNotFound)
	}

	delete(records, uuid)
	if err := s.frames.Write(records); err != nil {
		return err
	}

	if cur, curErr := s.Current(ctx); curErr == nil && cur.UUID == uuid {
		return s.ClearCurrent(ctx)
	}
	return nil
}

// Current returns the running frame, or domain.ErrNotFound when the slot is
// empty.
func (s *FrameStore) Current(ctx context.Context) (domain.Frame, error) {
	records, err := s.current.Read()
	if err != nil {
		return domain.Frame{}, err
	}

	raw, ok := records[currentSlotID]
	if !ok {
		return domain.Frame{}, fmt.Errorf("current frame: %w", domain.ErrNotFound)
	}
	frame, err := decodeFrame(raw)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("failed to decode current frame: %w", err)
	}
	return frame, nil
}

// SaveCurrent places an active frame in the current slot. Re-saving the same
// uuid is allowed so retries stay idempotent.
func (s *FrameStore) SaveCurrent(ctx context.Context, frame domain.Frame) error {
	if frame.Completed() {
		return fmt.Errorf("%w: only an active frame can be current", domain.ErrValidation)
	}
	if frame.Start.After(s.now().UTC()) {
		return fmt.Errorf("%w: current frame cannot start in the future", domain.ErrInvalidTime)
	}
	if cur, err := s.Current(ctx); err == nil && cur.UUID != frame.UUID {
		return fmt.Errorf("%w: frame %s is running", domain.ErrCurrentFrameMismatch, cur.UUID)
	}

	raw, err := encodeFrame(frame)
	if err != nil {
		return fmt.Errorf("failed to encode current frame: %w", err)
	}
	return s.current.Write(map[string]json.RawMessage{currentSlotID: raw})
}

// ClearCurrent vacates the slot without persisting its frame.
func (s *FrameStore) ClearCurrent(ctx context.Context) error {
	return s.current.Write(map[string]json.RawMessage{})
}

// CompleteCurrent stops the running frame, persists it, and vacates the slot.
// A nil stop means now.
func (s *FrameStore) CompleteCurrent(ctx context.Context, stop *time.Time) (domain.Frame, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return domain.Frame{}, err
	}

	now := s.now().UTC()
	resolved := now
	if stop != nil {
		resolved = stop.UTC()
	}
	if resolved.After(now) {
		return domain.Frame{}, fmt.Errorf("%w: stop time cannot be in the future", domain.ErrInvalidTime)
	}

	completed, err := cur.WithStop(resolved)
	if err != nil {
		return domain.Frame{}, err
	}
	if err := s.Save(ctx, completed); err != nil {
		return domain.Frame{}, err
	}
	if err := s.ClearCurrent(ctx); err != nil {
		return domain.Frame{}, err
	}
	return completed, nil
}

// Filter evaluates the combinable predicate over all stored frames. A frame
// that cannot be evaluated is skipped, never fatal.
func (s *FrameStore) Filter(ctx context.Context, filter ports.FrameFilter) ([]domain.Frame, error) {
	frames, _, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	matched := make([]domain.Frame, 0, len(frames))
	for _, frame := range frames {
		ok, err := matchFrame(frame, filter, now)
		if err != nil {
			logging.Logger.Warn("skipping frame during filter", "uuid", frame.UUID, "error", err)
			continue
		}
		if ok {
			matched = append(matched, frame)
		}
	}
	return matched, nil
}

func matchFrame(frame domain.Frame, filter ports.FrameFilter, now time.Time) (bool, error) {
	projectID, isZebraProject := frame.Activity.ProjectKey.ZebraID()

	// Project filters only ever match Zebra project ids; a local frame is
	// excluded as soon as an include filter is present.
	if len(filter.ProjectIDs) > 0 {
		if !isZebraProject || !containsInt(filter.ProjectIDs, projectID) {
			return false, nil
		}
	}
	if isZebraProject && containsInt(filter.IgnoreProjectIDs, projectID) {
		return false, nil
	}

	if len(filter.IssueKeys) > 0 && !anyKeyIn(frame.IssueKeys, filter.IssueKeys) {
		return false, nil
	}
	if anyKeyIn(frame.IssueKeys, filter.IgnoreIssueKeys) {
		return false, nil
	}

	effectiveEnd := frame.EffectiveStop(now)
	if filter.IncludePartial {
		// Overlap check; the matching frame is returned whole, not clipped.
		if filter.From != nil && effectiveEnd.Before(*filter.From) {
			return false, nil
		}
		if filter.To != nil && frame.Start.After(*filter.To) {
			return false, nil
		}
	} else {
		// Full containment
		if filter.From != nil && frame.Start.Before(*filter.From) {
			return false, nil
		}
		if filter.To != nil && effectiveEnd.After(*filter.To) {
			return false, nil
		}
	}

	return true, nil
}

// LastCompleted returns the completed frame with the greatest stop time.
func (s *FrameStore) LastCompleted(ctx context.Context) (domain.Frame, error) {
	frames, _, err := s.All(ctx)
	if err != nil {
		return domain.Frame{}, err
	}

	var last *domain.Frame
	for i := range frames {
		f := frames[i]
		if !f.Completed() {
			continue
		}
		if last == nil || f.Stop.After(*last.Stop) {
			last = &frames[i]
		}
	}
	if last == nil {
		return domain.Frame{}, fmt.Errorf("no completed frame: %w", domain.ErrNotFound)
	}
	return *last, nil
}

// LastUsedRoleForActivity returns the role of the most recently started
// completed, non-individual frame booked on the given activity.
func (s *FrameStore) LastUsedRoleForActivity(ctx context.Context, activity domain.Activity) (*domain.Role, error) {
	frames, _, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	var best *domain.Frame
	for i := range frames {
		f := frames[i]
		if !f.Completed() || f.IsIndividual || f.Role == nil {
			continue
		}
		if !f.Activity.Key.Equal(activity.Key) {
			continue
		}
		if best == nil || f.Start.After(best.Start) {
			best = &frames[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	role := *best.Role
	return &role, nil
}

// LastActivityForIssueKeys returns the activity of the most recently started
// completed frame whose issue-key set equals keys exactly.
func (s *FrameStore) LastActivityForIssueKeys(ctx context.Context, keys []string) (*domain.Activity, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	frames, _, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	want := keySet(keys)
	var best *domain.Frame
	for i := range frames {
		f := frames[i]
		if !f.Completed() {
			continue
		}
		if !sameKeySet(keySet(f.IssueKeys), want) {
			continue
		}
		if best == nil || f.Start.After(best.Start) {
			best = &frames[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	activity := best.Activity
	return &activity, nil
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func anyKeyIn(keys, requested []string) bool {
	if len(requested) == 0 {
		return false
	}
	set := keySet(requested)
	for _, k := range keys {
		if set[k] {
			return true
		}
	}
	return false
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func sameKeySet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
