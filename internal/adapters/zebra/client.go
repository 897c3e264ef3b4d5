// Package zebra implements the remote timesheet gateway over Zebra's HTTP
// API.
package zebra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tempora/internal/domain"
	"tempora/internal/logging"
	"tempora/internal/ports"
)

// Client talks to the Zebra timesheet API. Calls either complete or fail
// outright as *domain.SyncError; there is no internal retry.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	loc        *time.Location
}

// NewClient creates a gateway client. loc is the business timezone timesheet
// dates are expressed in.
func NewClient(baseURL, token string, loc *time.Location) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		loc:        loc,
	}
}

// timesheetPayload is the wire shape of a Zebra timesheet record.
type timesheetPayload struct {
	ID                int     `json:"id,omitempty"`
	ActivityID        int     `json:"activity_id"`
	ActivityName      string  `json:"activity_name,omitempty"`
	ProjectID         int     `json:"project_id"`
	ProjectName       string  `json:"project_name,omitempty"`
	Description       string  `json:"description"`
	ClientDescription string  `json:"client_description,omitempty"`
	Time              float64 `json:"time"`
	Date              string  `json:"date"`
	RoleID            *int    `json:"role_id"`
	RoleName          string  `json:"role_name,omitempty"`
	IndividualAction  bool    `json:"individual_action"`
	UpdatedAt         int64   `json:"updated_at"`
}

type timesheetListResponse struct {
	Timesheets []timesheetPayload `json:"timesheets"`
}

func encodePayload(sheet domain.Timesheet) timesheetPayload {
	activityID, _ := sheet.Activity.Key.ZebraID()
	projectID, _ := sheet.Activity.ProjectKey.ZebraID()

	payload := timesheetPayload{
		ActivityID:        activityID,
		ActivityName:      sheet.Activity.Name,
		ProjectID:         projectID,
		Description:       sheet.Description,
		ClientDescription: sheet.ClientDescription,
		Time:              sheet.Time.InexactFloat64(),
		Date:              sheet.DateString(),
		IndividualAction:  sheet.IndividualAction,
	}
	if sheet.Role != nil {
		roleID := sheet.Role.ID
		payload.RoleID = &roleID
		payload.RoleName = sheet.Role.Name
	}
	return payload
}

func (c *Client) decodePayload(p timesheetPayload) (domain.Timesheet, error) {
	activityKey, err := domain.NewZebraKey(p.ActivityID)
	if err != nil {
		return domain.Timesheet{}, err
	}
	projectKey, err := domain.NewZebraKey(p.ProjectID)
	if err != nil {
		return domain.Timesheet{}, err
	}
	date, err := domain.ParseBusinessDate(p.Date, c.loc)
	if err != nil {
		return domain.Timesheet{}, err
	}

	var role *domain.Role
	if p.RoleID != nil {
		role = &domain.Role{ID: *p.RoleID, Name: p.RoleName}
	}

	zebraID := p.ID
	return domain.Timesheet{
		UUID: uuid.New().String(),
		Activity: domain.Activity{
			Key:        activityKey,
			Name:       p.ActivityName,
			ProjectKey: projectKey,
		},
		Description:       p.Description,
		ClientDescription: p.ClientDescription,
		Time:              decimal.NewFromFloat(p.Time),
		Date:              date,
		Role:              role,
		IndividualAction:  p.IndividualAction,
		ZebraID:           &zebraID,
		UpdatedAt:         time.Unix(p.UpdatedAt, 0).UTC(),
	}, nil
}

// CreateTimesheet creates the sheet remotely and returns the remote record.
func (c *Client) CreateTimesheet(ctx context.Context, sheet domain.Timesheet) (domain.Timesheet, error) {
	var resp timesheetPayload
	if err := c.do(ctx, "create", http.MethodPost, "/timesheets", encodePayload(sheet), &resp); err != nil {
		return domain.Timesheet{}, err
	}

	created, err := c.decodePayload(resp)
	if err != nil {
		return domain.Timesheet{}, &domain.SyncError{Op: "create", Err: err}
	}
	return created, nil
}

// UpdateTimesheet replaces the remote record and returns its new state.
func (c *Client) UpdateTimesheet(ctx context.Context, zebraID int, sheet domain.Timesheet) (domain.Timesheet, error) {
	var resp timesheetPayload
	path := fmt.Sprintf("/timesheets/%d", zebraID)
	if err := c.do(ctx, "update", http.MethodPut, path, encodePayload(sheet), &resp); err != nil {
		return domain.Timesheet{}, err
	}

	updated, err := c.decodePayload(resp)
	if err != nil {
		return domain.Timesheet{}, &domain.SyncError{Op: "update", Err: err}
	}
	return updated, nil
}

// DeleteTimesheet removes the remote record.
func (c *Client) DeleteTimesheet(ctx context.Context, zebraID int) error {
	path := fmt.Sprintf("/timesheets/%d", zebraID)
	return c.do(ctx, "delete", http.MethodDelete, path, nil, nil)
}

// FetchTimesheets returns the remote records for an inclusive calendar-day
// range, keyed by Zebra id.
func (c *Client) FetchTimesheets(ctx context.Context, query ports.TimesheetQuery) (map[int]domain.Timesheet, error) {
	params := url.Values{}
	params.Set("from", query.From.Format(domain.DateLayout))
	if query.To != nil {
		params.Set("to", query.To.Format(domain.DateLayout))
	}

	var resp timesheetListResponse
	if err := c.do(ctx, "fetch all", http.MethodGet, "/timesheets?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	sheets := make(map[int]domain.Timesheet, len(resp.Timesheets))
	for _, p := range resp.Timesheets {
		sheet, err := c.decodePayload(p)
		if err != nil {
			return nil, &domain.SyncError{Op: "fetch all", Err: err}
		}
		sheets[p.ID] = sheet
	}
	return sheets, nil
}

// FetchTimesheet returns one remote record. A missing record surfaces as a
// SyncError with status 404, checkable via domain.IsRemoteNotFound.
func (c *Client) FetchTimesheet(ctx context.Context, zebraID int) (domain.Timesheet, error) {
	var resp timesheetPayload
	path := fmt.Sprintf("/timesheets/%d", zebraID)
	if err := c.do(ctx, "fetch", http.MethodGet, path, nil, &resp); err != nil {
		return domain.Timesheet{}, err
	}

	sheet, err := c.decodePayload(resp)
	if err != nil {
		return domain.Timesheet{}, &domain.SyncError{Op: "fetch", Err: err}
	}
	return sheet, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &domain.SyncError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &domain.SyncError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.SyncError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logging.Logger.Warn("zebra request failed",
			"op", op,
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return &domain.SyncError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %s", string(excerpt)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.SyncError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
