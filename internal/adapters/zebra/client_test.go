package zebra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempora/internal/domain"
	"tempora/internal/ports"
)

func businessLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)
	return loc
}

func localSheet(t *testing.T) domain.Timesheet {
	t.Helper()
	activityKey, err := domain.NewZebraKey(10)
	require.NoError(t, err)
	projectKey, err := domain.NewZebraKey(20)
	require.NoError(t, err)
	date, err := domain.ParseBusinessDate("2026-03-02", businessLocation(t))
	require.NoError(t, err)

	sheet, err := domain.NewTimesheet(
		domain.Activity{Key: activityKey, Name: "Development", ProjectKey: projectKey},
		date,
		decimal.RequireFromString("1.75"),
		"fixing ABC-123",
		false,
		&domain.Role{ID: 5, Name: "dev"},
	)
	require.NoError(t, err)
	return sheet
}

func TestClient_CreateTimesheet(t *testing.T) {
	var gotAuth string
	var gotPayload timesheetPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/timesheets", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		resp := gotPayload
		resp.ID = 901
		resp.UpdatedAt = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC).Unix()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", businessLocation(t))
	created, err := client.CreateTimesheet(context.Background(), localSheet(t))
	require.NoError(t, err)

	assert.Equal(t, "Token secret-token", gotAuth)
	assert.Equal(t, 10, gotPayload.ActivityID)
	assert.Equal(t, 20, gotPayload.ProjectID)
	assert.Equal(t, "2026-03-02", gotPayload.Date)
	assert.InDelta(t, 1.75, gotPayload.Time, 1e-9)
	require.NotNil(t, gotPayload.RoleID)
	assert.Equal(t, 5, *gotPayload.RoleID)

	require.NotNil(t, created.ZebraID)
	assert.Equal(t, 901, *created.ZebraID)
	assert.NotEmpty(t, created.UUID)
	assert.Equal(t, "2026-03-02", created.DateString())
	assert.True(t, created.Time.Equal(decimal.RequireFromString("1.75")))
}

func TestClient_FetchTimesheetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such timesheet", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", businessLocation(t))
	_, err := client.FetchTimesheet(context.Background(), 404404)
	require.Error(t, err)

	assert.True(t, domain.IsRemoteNotFound(err))
	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "fetch", syncErr.Op)
	assert.Equal(t, http.StatusNotFound, syncErr.Status)
}

func TestClient_ServerErrorSurfacesAsSyncError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", businessLocation(t))
	err := client.DeleteTimesheet(context.Background(), 1)
	require.Error(t, err)

	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, http.StatusInternalServerError, syncErr.Status)
	assert.False(t, domain.IsRemoteNotFound(err))
	assert.Contains(t, syncErr.Error(), "delete")
}

func TestClient_FetchTimesheets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/timesheets", r.URL.Path)
		assert.Equal(t, "2026-03-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-03-07", r.URL.Query().Get("to"))

		resp := timesheetListResponse{Timesheets: []timesheetPayload{
			{
				ID: 901, ActivityID: 10, ProjectID: 20,
				Description: "remote one", Time: 2, Date: "2026-03-02",
				IndividualAction: true,
				UpdatedAt:        time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC).Unix(),
			},
			{
				ID: 902, ActivityID: 11, ProjectID: 20,
				Description: "remote two", Time: 0.5, Date: "2026-03-03",
				IndividualAction: true,
				UpdatedAt:        time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC).Unix(),
			},
		}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", businessLocation(t))
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, businessLocation(t))
	to := time.Date(2026, 3, 7, 0, 0, 0, 0, businessLocation(t))

	sheets, err := client.FetchTimesheets(context.Background(), ports.TimesheetQuery{From: from, To: &to})
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	first := sheets[901]
	require.NotNil(t, first.ZebraID)
	assert.Equal(t, 901, *first.ZebraID)
	assert.Equal(t, "remote one", first.Description)
	assert.Equal(t, "2026-03-02", first.DateString())
	assert.True(t, first.IndividualAction)
	assert.Nil(t, first.Role)

	second := sheets[902]
	assert.True(t, second.Time.Equal(decimal.RequireFromString("0.5")))
}

func TestClient_UpdateTimesheet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/timesheets/901", r.URL.Path)

		var payload timesheetPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		payload.ID = 901
		payload.UpdatedAt = time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC).Unix()
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", businessLocation(t))
	updated, err := client.UpdateTimesheet(context.Background(), 901, localSheet(t))
	require.NoError(t, err)

	require.NotNil(t, updated.ZebraID)
	assert.Equal(t, 901, *updated.ZebraID)
	assert.Equal(t, time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC), updated.UpdatedAt)
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", businessLocation(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.DeleteTimesheet(ctx, 1)
	require.Error(t, err)
	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.True(t, errors.Is(syncErr.Err, context.Canceled))
}
