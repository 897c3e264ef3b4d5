package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempora/internal/domain"
	"tempora/internal/ports"
)

func newTestFrameStore(t *testing.T) *FrameStore {
	t.Helper()
	dir := t.TempDir()
	return NewFrameStore(
		NewJSONBackend(filepath.Join(dir, "frames.json")),
		NewJSONBackend(filepath.Join(dir, "current.json")),
	)
}

func zebraActivity(t *testing.T, activityID, projectID int, name string) domain.Activity {
	t.Helper()
	key, err := domain.NewZebraKey(activityID)
	require.NoError(t, err)
	project, err := domain.NewZebraKey(projectID)
	require.NoError(t, err)
	return domain.Activity{Key: key, Name: name, ProjectKey: project}
}

func completedFrame(t *testing.T, activity domain.Activity, start, stop time.Time, description string) domain.Frame {
	t.Helper()
	f, err := domain.NewFrame(activity, start, stop, description, true, nil)
	require.NoError(t, err)
	return f
}

func TestFrameStore_SaveRejectsActiveFrame(t *testing.T) {
	store := newTestFrameStore(t)
	activity := zebraActivity(t, 10, 20, "Development")

	active, err := domain.NewActiveFrame(activity, time.Now().UTC().Add(-time.Hour), "", true, nil)
	require.NoError(t, err)

	err = store.Save(context.Background(), active)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFrameStore_SaveGetRoundTrip(t *testing.T) {
	store := newTestFrameStore(t)
	activity := zebraActivity(t, 10, 20, "Development")
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	frame := completedFrame(t, activity, start, start.Add(time.Hour), "working on ABC-123")

	require.NoError(t, store.Save(context.Background(), frame))

	got, err := store.Get(context.Background(), frame.UUID)
	require.NoError(t, err)
	assert.Equal(t, frame.UUID, got.UUID)
	assert.True(t, got.Start.Equal(frame.Start))
	assert.True(t, got.Stop.Equal(*frame.Stop))
	assert.Equal(t, []string{"ABC-123"}, got.IssueKeys)
	assert.True(t, got.Activity.Key.Equal(activity.Key))

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFrameStore_AllSortsAndSkipsCorruptRecords(t *testing.T) {
	dir := t.TempDir()
	frames := NewJSONBackend(filepath.Join(dir, "frames.json"))
	store := NewFrameStore(frames, NewJSONBackend(filepath.Join(dir, "current.json")))
	activity := zebraActivity(t, 10, 20, "Development")

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	second := completedFrame(t, activity, base.Add(2*time.Hour), base.Add(3*time.Hour), "")
	first := completedFrame(t, activity, base, base.Add(time.Hour), "")
	require.NoError(t, store.Save(context.Background(), second))
	require.NoError(t, store.Save(context.Background(), first))

	records, err := frames.Read()
	require.NoError(t, err)
	records["broken"] = json.RawMessage(`{"uuid":""}`)
	require.NoError(t, frames.Write(records))

	all, skipped, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, all, 2)
	assert.Equal(t, first.UUID, all[0].UUID)
	assert.Equal(t, second.UUID, all[1].UUID)
}

func TestFrameStore_CurrentSlotLifecycle(t *testing.T) {
	store := newTestFrameStore(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	activity := zebraActivity(t, 10, 20, "Development")

	_, err := store.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	active, err := domain.NewActiveFrame(activity, now.Add(-time.Hour), "", true, nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveCurrent(context.Background(), active))

	got, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, active.UUID, got.UUID)

	// Re-saving the same frame stays idempotent
	require.NoError(t, store.SaveCurrent(context.Background(), active))

	other, err := domain.NewActiveFrame(activity, now.Add(-time.Minute), "", true, nil)
	require.NoError(t, err)
	err = store.SaveCurrent(context.Background(), other)
	assert.ErrorIs(t, err, domain.ErrCurrentFrameMismatch)

	require.NoError(t, store.ClearCurrent(context.Background()))
	_, err = store.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFrameStore_SaveCurrentGuards(t *testing.T) {
	store := newTestFrameStore(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	activity := zebraActivity(t, 10, 20, "Development")

	future, err := domain.NewActiveFrame(activity, now.Add(time.Minute), "", true, nil)
	require.NoError(t, err)
	err = store.SaveCurrent(context.Background(), future)
	assert.ErrorIs(t, err, domain.ErrInvalidTime)

	done := completedFrame(t, activity, now.Add(-2*time.Hour), now.Add(-time.Hour), "")
	err = store.SaveCurrent(context.Background(), done)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFrameStore_CompleteCurrent(t *testing.T) {
	store := newTestFrameStore(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	activity := zebraActivity(t, 10, 20, "Development")

	_, err := store.CompleteCurrent(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	active, err := domain.NewActiveFrame(activity, now.Add(-time.Hour), "", true, nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveCurrent(context.Background(), active))

	future := now.Add(time.Minute)
	_, err = store.CompleteCurrent(context.Background(), &future)
	assert.ErrorIs(t, err, domain.ErrInvalidTime)

	completed, err := store.CompleteCurrent(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, completed.Stop.Equal(now))

	_, err = store.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := store.Get(context.Background(), active.UUID)
	require.NoError(t, err)
	assert.True(t, stored.Completed())
}

func TestFrameStore_RemoveVacatesMatchingCurrentSlot(t *testing.T) {
	store := newTestFrameStore(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	activity := zebraActivity(t, 10, 20, "Development")

	err := store.Remove(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	frame := completedFrame(t, activity, now.Add(-3*time.Hour), now.Add(-2*time.Hour), "")
	require.NoError(t, store.Save(context.Background(), frame))
	require.NoError(t, store.Remove(context.Background(), frame.UUID))
	_, err = store.Get(context.Background(), frame.UUID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	active, err := domain.NewActiveFrame(activity, now.Add(-time.Hour), "", true, nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveCurrent(context.Background(), active))

	require.NoError(t, store.Remove(context.Background(), active.UUID))
	_, err = store.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFrameStore_FilterTimeWindows(t *testing.T) {
	store := newTestFrameStore(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	activity := zebraActivity(t, 10, 20, "Development")

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	frame := completedFrame(t, activity, start, start.Add(time.Hour), "")
	require.NoError(t, store.Save(context.Background(), frame))

	from := start.Add(30 * time.Minute)

	contained, err := store.Filter(context.Background(), ports.FrameFilter{From: &from})
	require.NoError(t, err)
	assert.Empty(t, contained, "frame starting before the window is not contained")

	partial, err := store.Filter(context.Background(), ports.FrameFilter{From: &from, IncludePartial: true})
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.True(t, partial[0].Start.Equal(start), "partial matches return the whole frame")

	// Every contained frame also matches the partial window
	wholeFrom := start.Add(-time.Minute)
	wholeTo := start.Add(2 * time.Hour)
	contained, err = store.Filter(context.Background(), ports.FrameFilter{From: &wholeFrom, To: &wholeTo})
	require.NoError(t, err)
	assert.Len(t, contained, 1)
}

func TestFrameStore_FilterProjectsAndIssueKeys(t *testing.T) {
	store := newTestFrameStore(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	devActivity := zebraActivity(t, 10, 20, "Development")
	opsActivity := zebraActivity(t, 11, 30, "Operations")
	localActivity := domain.Activity{Key: domain.NewRandomLocalKey(), Name: "Scratch", ProjectKey: domain.NewRandomLocalKey()}

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	tagged := completedFrame(t, devActivity, base, base.Add(time.Hour), "fixing ABC-123")
	untagged := completedFrame(t, opsActivity, base.Add(time.Hour), base.Add(2*time.Hour), "maintenance")
	localFrame := completedFrame(t, localActivity, base.Add(2*time.Hour), base.Add(3*time.Hour), "notes")
	for _, f := range []domain.Frame{tagged, untagged, localFrame} {
		require.NoError(t, store.Save(context.Background(), f))
	}

	got, err := store.Filter(context.Background(), ports.FrameFilter{IssueKeys: []string{"ABC-123"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tagged.UUID, got[0].UUID)

	got, err = store.Filter(context.Background(), ports.FrameFilter{IgnoreIssueKeys: []string{"ABC-123"}})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// A project include filter never matches locally sourced activities
	got, err = store.Filter(context.Background(), ports.FrameFilter{ProjectIDs: []int{20, 30}})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = store.Filter(context.Background(), ports.FrameFilter{IgnoreProjectIDs: []int{20}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, f := range got {
		assert.NotEqual(t, tagged.UUID, f.UUID)
	}
}

func TestFrameStore_LastCompleted(t *testing.T) {
	store := newTestFrameStore(t)
	activity := zebraActivity(t, 10, 20, "Development")

	_, err := store.LastCompleted(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	early := completedFrame(t, activity, base, base.Add(time.Hour), "")
	late := completedFrame(t, activity, base.Add(2*time.Hour), base.Add(3*time.Hour), "")
	require.NoError(t, store.Save(context.Background(), early))
	require.NoError(t, store.Save(context.Background(), late))

	got, err := store.LastCompleted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, late.UUID, got.UUID)
}

func TestFrameStore_LastUsedRoleForActivity(t *testing.T) {
	store := newTestFrameStore(t)
	activity := zebraActivity(t, 10, 20, "Development")
	other := zebraActivity(t, 11, 20, "Review")

	role, err := store.LastUsedRoleForActivity(context.Background(), activity)
	require.NoError(t, err)
	assert.Nil(t, role)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	devRole := &domain.Role{ID: 5, Name: "dev"}
	leadRole := &domain.Role{ID: 6, Name: "lead"}

	f1, err := domain.NewFrame(activity, base, base.Add(time.Hour), "", false, devRole)
	require.NoError(t, err)
	f2, err := domain.NewFrame(activity, base.Add(2*time.Hour), base.Add(3*time.Hour), "", false, leadRole)
	require.NoError(t, err)
	f3, err := domain.NewFrame(other, base.Add(4*time.Hour), base.Add(5*time.Hour), "", false, devRole)
	require.NoError(t, err)
	individual := completedFrame(t, activity, base.Add(6*time.Hour), base.Add(7*time.Hour), "")
	for _, f := range []domain.Frame{f1, f2, f3, individual} {
		require.NoError(t, store.Save(context.Background(), f))
	}

	role, err = store.LastUsedRoleForActivity(context.Background(), activity)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, 6, role.ID, "most recently started non-individual frame wins")
}

func TestFrameStore_LastActivityForIssueKeys(t *testing.T) {
	store := newTestFrameStore(t)
	dev := zebraActivity(t, 10, 20, "Development")
	ops := zebraActivity(t, 11, 30, "Operations")

	got, err := store.LastActivityForIssueKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	exact := completedFrame(t, dev, base, base.Add(time.Hour), "ABC-123 and XY-9")
	superset := completedFrame(t, ops, base.Add(2*time.Hour), base.Add(3*time.Hour), "ABC-123 XY-9 ZZ-1")
	for _, f := range []domain.Frame{exact, superset} {
		require.NoError(t, store.Save(context.Background(), f))
	}

	got, err = store.LastActivityForIssueKeys(context.Background(), []string{"XY-9", "ABC-123"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Key.Equal(dev.Key), "only an exact key-set match counts")

	got, err = store.LastActivityForIssueKeys(context.Background(), []string{"ABC-123"})
	require.NoError(t, err)
	assert.Nil(t, got)
}
