package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tempora/internal/domain"
)

// Record wire shapes. Instants are epoch seconds, timesheet dates are
// "YYYY-MM-DD" calendar days in the business timezone.

type activityRecord struct {
	Key     domain.EntityKey `json:"key"`
	Name    string           `json:"name"`
	Desc    string           `json:"desc"`
	Project domain.EntityKey `json:"project"`
	Alias   string           `json:"alias,omitempty"`
}

type roleRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type frameRecord struct {
	UUID         string         `json:"uuid"`
	Start        int64          `json:"start"`
	Stop         *int64         `json:"stop"`
	Activity     activityRecord `json:"activity"`
	IsIndividual bool           `json:"isIndividual"`
	Role         *roleRecord    `json:"role"`
	Issues       []string       `json:"issues"`
	Desc         string         `json:"desc"`
	UpdatedAt    int64          `json:"updatedAt"`
}

type timesheetRecord struct {
	UUID              string         `json:"uuid"`
	Activity          activityRecord `json:"activity"`
	ProjectID         int            `json:"projectId"`
	Desc              string         `json:"desc"`
	ClientDescription string         `json:"clientDescription,omitempty"`
	Time              float64        `json:"time"`
	Date              string         `json:"date"`
	Role              *roleRecord    `json:"role"`
	IndividualAction  bool           `json:"individualAction"`
	FrameUUIDs        []string       `json:"frameUuids"`
	ZebraID           *int           `json:"zebraId"`
	UpdatedAt         int64          `json:"updatedAt"`
	DoNotSync         bool           `json:"doNotSync"`
}

func encodeActivity(a domain.Activity) activityRecord {
	return activityRecord{
		Key:     a.Key,
		Name:    a.Name,
		Desc:    a.Description,
		Project: a.ProjectKey,
		Alias:   a.Alias,
	}
}

func decodeActivity(r activityRecord) (domain.Activity, error) {
	if r.Key.IsZero() || r.Project.IsZero() {
		return domain.Activity{}, fmt.Errorf("%w: activity record missing entity key", domain.ErrValidation)
	}
	return domain.Activity{
		Key:         r.Key,
		Name:        r.Name,
		Description: r.Desc,
		ProjectKey:  r.Project,
		Alias:       r.Alias,
	}, nil
}

func encodeRole(r *domain.Role) *roleRecord {
	if r == nil {
		return nil
	}
	return &roleRecord{ID: r.ID, Name: r.Name}
}

func decodeRole(r *roleRecord) *domain.Role {
	if r == nil {
		return nil
	}
	return &domain.Role{ID: r.ID, Name: r.Name}
}

func encodeFrame(f domain.Frame) (json.RawMessage, error) {
	rec := frameRecord{
		UUID:         f.UUID,
		Start:        f.Start.Unix(),
		Activity:     encodeActivity(f.Activity),
		IsIndividual: f.IsIndividual,
		Role:         encodeRole(f.Role),
		Issues:       f.IssueKeys,
		Desc:         f.Description,
		UpdatedAt:    f.UpdatedAt.Unix(),
	}
	if f.Stop != nil {
		stop := f.Stop.Unix()
		rec.Stop = &stop
	}
	return json.Marshal(rec)
}

func decodeFrame(raw json.RawMessage) (domain.Frame, error) {
	var rec frameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Frame{}, err
	}
	if rec.UUID == "" {
		return domain.Frame{}, fmt.Errorf("%w: frame record missing uuid", domain.ErrValidation)
	}

	activity, err := decodeActivity(rec.Activity)
	if err != nil {
		return domain.Frame{}, err
	}
	role := decodeRole(rec.Role)
	if rec.IsIndividual == (role != nil) {
		return domain.Frame{}, fmt.Errorf("%w: frame record must carry a role or be individual", domain.ErrValidation)
	}

	f := domain.Frame{
		UUID:         rec.UUID,
		Start:        time.Unix(rec.Start, 0).UTC(),
		Activity:     activity,
		IsIndividual: rec.IsIndividual,
		Role:         role,
		Description:  rec.Desc,
		IssueKeys:    rec.Issues,
		UpdatedAt:    time.Unix(rec.UpdatedAt, 0).UTC(),
	}
	if rec.Stop != nil {
		stop := time.Unix(*rec.Stop, 0).UTC()
		if stop.Before(f.Start) {
			return domain.Frame{}, fmt.Errorf("%w: frame record stop precedes start", domain.ErrValidation)
		}
		f.Stop = &stop
	}
	return f, nil
}

func encodeTimesheet(t domain.Timesheet) (json.RawMessage, error) {
	projectID, _ := t.Activity.ProjectKey.ZebraID()
	rec := timesheetRecord{
		UUID:              t.UUID,
		Activity:          encodeActivity(t.Activity),
		ProjectID:         projectID,
		Desc:              t.Description,
		ClientDescription: t.ClientDescription,
		Time:              t.Time.InexactFloat64(),
		Date:              t.DateString(),
		Role:              encodeRole(t.Role),
		IndividualAction:  t.IndividualAction,
		FrameUUIDs:        t.FrameUUIDs,
		ZebraID:           t.ZebraID,
		UpdatedAt:         t.UpdatedAt.Unix(),
		DoNotSync:         t.DoNotSync,
	}
	return json.Marshal(rec)
}

func decodeTimesheet(raw json.RawMessage, loc *time.Location) (domain.Timesheet, error) {
	var rec timesheetRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Timesheet{}, err
	}
	if rec.UUID == "" {
		return domain.Timesheet{}, fmt.Errorf("%w: timesheet record missing uuid", domain.ErrValidation)
	}

	activity, err := decodeActivity(rec.Activity)
	if err != nil {
		return domain.Timesheet{}, err
	}
	date, err := domain.ParseBusinessDate(rec.Date, loc)
	if err != nil {
		return domain.Timesheet{}, err
	}
	hours := decimal.NewFromFloat(rec.Time)
	if err := domain.ValidateHours(hours); err != nil {
		return domain.Timesheet{}, err
	}

	return domain.Timesheet{
		UUID:              rec.UUID,
		Activity:          activity,
		Description:       rec.Desc,
		ClientDescription: rec.ClientDescription,
		Time:              hours,
		Date:              date,
		Role:              decodeRole(rec.Role),
		IndividualAction:  rec.IndividualAction,
		FrameUUIDs:        rec.FrameUUIDs,
		ZebraID:           rec.ZebraID,
		UpdatedAt:         time.Unix(rec.UpdatedAt, 0).UTC(),
		DoNotSync:         rec.DoNotSync,
	}, nil
}
