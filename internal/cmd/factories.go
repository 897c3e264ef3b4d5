package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	adapterstorage "tempora/internal/adapters/storage"
	adapterzebra "tempora/internal/adapters/zebra"
	"tempora/internal/config"
	"tempora/internal/ports"
	"tempora/internal/services"
)

// Container holds all dependencies for the application
type Container struct {
	Settings *config.Settings
	Location *time.Location

	Frames ports.FrameRepository
	Sheets ports.TimesheetRepository

	Track *services.TrackService
	Sync  *services.SyncService

	// Internal - for cleanup only
	db *gorm.DB
}

// NewContainer creates a new Container with all dependencies wired
func NewContainer(settings *config.Settings) (*Container, error) {
	if settings == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	loc, err := settings.BusinessLocation()
	if err != nil {
		return nil, err
	}

	var (
		frameBackend   ports.RecordBackend
		currentBackend ports.RecordBackend
		sheetBackend   ports.RecordBackend
		db             *gorm.DB
	)
	switch settings.Backend {
	case "json":
		frameBackend = adapterstorage.NewJSONBackend(filepath.Join(settings.DataDir, "frames.json"))
		currentBackend = adapterstorage.NewJSONBackend(filepath.Join(settings.DataDir, "current.json"))
		sheetBackend = adapterstorage.NewJSONBackend(filepath.Join(settings.DataDir, "timesheets.json"))
	case "", "sqlite":
		db, err = adapterstorage.OpenDB(settings.DBPath())
		if err != nil {
			return nil, err
		}
		frameBackend = adapterstorage.NewSQLiteBackend(db, "frames")
		currentBackend = adapterstorage.NewSQLiteBackend(db, "current")
		sheetBackend = adapterstorage.NewSQLiteBackend(db, "timesheets")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", settings.Backend)
	}

	frames := adapterstorage.NewFrameStore(frameBackend, currentBackend)
	sheets := adapterstorage.NewTimesheetStore(sheetBackend, loc)

	roles := config.NewSettingsRoleSource(settings)
	gateway := adapterzebra.NewClient(settings.Zebra.BaseURL, settings.Zebra.Token, loc)

	return &Container{
		Settings: settings,
		Location: loc,
		Frames:   frames,
		Sheets:   sheets,
		Track:    services.NewTrackService(frames, roles),
		Sync:     services.NewSyncService(sheets, gateway),
		db:       db,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.db != nil {
		return adapterstorage.CloseDB(c.db)
	}
	return nil
}
