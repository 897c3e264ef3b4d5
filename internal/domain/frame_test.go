package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIssueKeys(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "fixing the build", nil},
		{"single", "working on ABC-123 today", []string{"ABC-123"}},
		{"duplicates keep first occurrence", "ABC-123 then XY-9 then ABC-123 again", []string{"ABC-123", "XY-9"}},
		{"too short prefix ignored", "A-123 is not a key", nil},
		{"too long prefix ignored", "ABCDEFG-123", []string{"BCDEFG-123"}},
		{"digit bounds", "LONGKEY-123456 overflows", []string{"ONGKEY-12345"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractIssueKeys(tt.text))
		})
	}
}

func TestNewFrame_RoleIndividualInvariant(t *testing.T) {
	activity := testActivity(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)
	role := &Role{ID: 5, Name: "dev"}

	_, err := NewFrame(activity, start, stop, "x", true, role)
	assert.ErrorIs(t, err, ErrValidation, "individual frame cannot carry a role")

	_, err = NewFrame(activity, start, stop, "x", false, nil)
	assert.ErrorIs(t, err, ErrValidation, "non-individual frame requires a role")

	f, err := NewFrame(activity, start, stop, "x", false, role)
	require.NoError(t, err)
	assert.NotEmpty(t, f.UUID)
	assert.True(t, f.Completed())

	f, err = NewFrame(activity, start, stop, "x", true, nil)
	require.NoError(t, err)
	assert.True(t, f.IsIndividual)
	assert.Nil(t, f.Role)
}

func TestNewFrame_StopBeforeStart(t *testing.T) {
	activity := testActivity(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := NewFrame(activity, start, start.Add(-time.Minute), "", true, nil)
	assert.ErrorIs(t, err, ErrInvalidTime)

	f, err := NewFrame(activity, start, start, "", true, nil)
	require.NoError(t, err, "zero-length frames are allowed")
	assert.Equal(t, time.Duration(0), f.Duration(start.Add(time.Hour)))
}

func TestNewFrame_NormalizesToUTC(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, loc)
	f, err := NewActiveFrame(testActivity(t), start, "ABC-123 work", true, nil)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, f.Start.Location())
	assert.True(t, f.Start.Equal(start))
	assert.Equal(t, []string{"ABC-123"}, f.IssueKeys)
	assert.False(t, f.Completed())
}

func TestFrame_DurationOfActiveFrame(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f, err := NewActiveFrame(testActivity(t), start, "", true, nil)
	require.NoError(t, err)

	now := start.Add(90 * time.Minute)
	assert.Equal(t, now, f.EffectiveStop(now))
	assert.Equal(t, 90*time.Minute, f.Duration(now))
}

func TestFrame_WithStop(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f, err := NewActiveFrame(testActivity(t), start, "", true, nil)
	require.NoError(t, err)

	_, err = f.WithStop(start.Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidTime)

	done, err := f.WithStop(start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, done.Completed())
	assert.Equal(t, f.UUID, done.UUID)
	assert.Equal(t, time.Hour, done.Duration(start))
}

func testActivity(t *testing.T) Activity {
	t.Helper()
	return Activity{
		Key:        mustZebraKey(t, 10),
		Name:       "Development",
		ProjectKey: mustZebraKey(t, 20),
	}
}
