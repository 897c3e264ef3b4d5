// Package services holds the engine's use cases: the tracking state machine,
// the timesheet sync engine, and report aggregation.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tempora/internal/domain"
	"tempora/internal/logging"
	"tempora/internal/ports"
)

// TrackService is the start/stop state machine. It is Idle when the current
// slot is empty and Running when it is occupied; the slot itself guarantees
// at most one active frame.
type TrackService struct {
	frames ports.FrameRepository
	roles  ports.RoleSource
	now    func() time.Time
}

// NewTrackService creates the tracking state machine.
func NewTrackService(frames ports.FrameRepository, roles ports.RoleSource) *TrackService {
	return &TrackService{
		frames: frames,
		roles:  roles,
		now:    time.Now,
	}
}

// StartParams carries the inputs for Start. The zero value starts now, with
// a gap allowed after the previous frame, using the configured default role.
type StartParams struct {
	Activity    domain.Activity
	Description string
	// StartAt overrides the start time; nil means now.
	StartAt *time.Time
	// NoGap backdates the start to the previous completed frame's stop time.
	NoGap        bool
	IsIndividual bool
	// Role overrides the configured default; ignored for individual frames.
	Role *domain.Role
}

// Start begins tracking a new frame.
func (s *TrackService) Start(ctx context.Context, params StartParams) (domain.Frame, error) {
	if started, err := s.IsStarted(ctx); err != nil {
		return domain.Frame{}, err
	} else if started {
		return domain.Frame{}, domain.ErrAlreadyStarted
	}

	now := s.now().UTC()
	start := now
	if params.StartAt != nil {
		start = params.StartAt.UTC()
	}

	previous, prevErr := s.frames.LastCompleted(ctx)
	if prevErr != nil && !errors.Is(prevErr, domain.ErrNotFound) {
		return domain.Frame{}, prevErr
	}
	hasPrevious := prevErr == nil

	if params.NoGap && hasPrevious {
		start = previous.Stop.UTC()
	}

	if start.After(now) {
		return domain.Frame{}, fmt.Errorf("%w: cannot start a frame in the future", domain.ErrInvalidTime)
	}
	if !params.NoGap && hasPrevious && start.Before(*previous.Stop) {
		return domain.Frame{}, fmt.Errorf("%w: start overlaps the previous frame stopped at %s",
			domain.ErrInvalidTime, previous.Stop.Format(time.RFC3339))
	}

	role, err := s.resolveRole(ctx, params.IsIndividual, params.Role)
	if err != nil {
		return domain.Frame{}, err
	}

	frame, err := domain.NewActiveFrame(params.Activity, start, params.Description, params.IsIndividual, role)
	if err != nil {
		return domain.Frame{}, err
	}
	if err := s.frames.SaveCurrent(ctx, frame); err != nil {
		return domain.Frame{}, err
	}

	logging.Logger.Info("frame started",
		"uuid", frame.UUID,
		"activity", frame.Activity.Name,
		"start", frame.Start,
	)
	return frame, nil
}

// Stop completes the running frame. A nil stopAt means now.
func (s *TrackService) Stop(ctx context.Context, stopAt *time.Time) (domain.Frame, error) {
	current, err := s.frames.Current(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Frame{}, domain.ErrNotStarted
		}
		return domain.Frame{}, err
	}

	if stopAt != nil {
		stop := stopAt.UTC()
		if stop.After(s.now().UTC()) {
			return domain.Frame{}, fmt.Errorf("%w: cannot stop a frame in the future", domain.ErrInvalidTime)
		}
		if stop.Before(current.Start) {
			return domain.Frame{}, fmt.Errorf("%w: stop precedes the frame's start", domain.ErrInvalidTime)
		}
	}

	completed, err := s.frames.CompleteCurrent(ctx, stopAt)
	if err != nil {
		return domain.Frame{}, err
	}

	logging.Logger.Info("frame stopped",
		"uuid", completed.UUID,
		"duration", completed.Duration(s.now()),
	)
	return completed, nil
}

// AddParams carries the inputs for Add.
type AddParams struct {
	Activity     domain.Activity
	From         time.Time
	To           time.Time
	Description  string
	IsIndividual bool
	Role         *domain.Role
}

// Add records an already-completed frame directly, without touching the
// current slot; it can be used while another frame is running.
func (s *TrackService) Add(ctx context.Context, params AddParams) (domain.Frame, error) {
	if params.From.After(params.To) {
		return domain.Frame{}, fmt.Errorf("%w: from is after to", domain.ErrInvalidTime)
	}

	role, err := s.resolveRole(ctx, params.IsIndividual, params.Role)
	if err != nil {
		return domain.Frame{}, err
	}

	frame, err := domain.NewFrame(params.Activity, params.From, params.To, params.Description, params.IsIndividual, role)
	if err != nil {
		return domain.Frame{}, err
	}
	if err := s.frames.Save(ctx, frame); err != nil {
		return domain.Frame{}, err
	}
	return frame, nil
}

// Cancel discards the running frame without persisting it and returns it for
// display.
func (s *TrackService) Cancel(ctx context.Context) (domain.Frame, error) {
	current, err := s.frames.Current(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Frame{}, domain.ErrNotStarted
		}
		return domain.Frame{}, err
	}

	if err := s.frames.ClearCurrent(ctx); err != nil {
		return domain.Frame{}, err
	}

	logging.Logger.Info("frame cancelled", "uuid", current.UUID)
	return current, nil
}

// IsStarted reports whether a frame is currently running.
func (s *TrackService) IsStarted(ctx context.Context) (bool, error) {
	_, err := s.frames.Current(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Current returns the running frame, or domain.ErrNotFound.
func (s *TrackService) Current(ctx context.Context) (domain.Frame, error) {
	return s.frames.Current(ctx)
}

func (s *TrackService) resolveRole(ctx context.Context, isIndividual bool, override *domain.Role) (*domain.Role, error) {
	if isIndividual {
		return nil, nil
	}
	if override != nil {
		return override, nil
	}

	role, err := s.roles.CurrentUserDefaultRole(ctx)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrNoDefaultRole
	}
	return role, nil
}
