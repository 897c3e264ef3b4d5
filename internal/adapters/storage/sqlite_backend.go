package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tempora/internal/logging"
)

// recordModel is the GORM model for the bucketed record table.
type recordModel struct {
	Bucket    string `gorm:"primaryKey"`
	ID        string `gorm:"primaryKey"`
	Data      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (recordModel) TableName() string { return "records" }

// gormLogger routes GORM output to the tempora logger
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else {
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

func newGormLogger() logger.Interface {
	if os.Getenv("TEMPORA_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// OpenDB opens the record database with WAL mode enabled and migrates the
// record table.
func OpenDB(dbPath string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate record schema: %w", err)
	}

	return db, nil
}

// CloseDB closes the underlying connection of an OpenDB handle.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLiteBackend stores one bucket of raw JSON records in the shared record
// table. It is the default backend; the engine still assumes a single writer.
type SQLiteBackend struct {
	db     *gorm.DB
	bucket string
}

// NewSQLiteBackend creates a record backend over db for the given bucket.
func NewSQLiteBackend(db *gorm.DB, bucket string) *SQLiteBackend {
	return &SQLiteBackend{db: db, bucket: bucket}
}

// Read returns all records in the bucket. Query failures degrade to an empty
// map to honor the lossy-read contract.
func (b *SQLiteBackend) Read() (map[string]json.RawMessage, error) {
	var rows []recordModel
	err := withRetry(func() error {
		return b.db.Where("bucket = ?", b.bucket).Find(&rows).Error
	}, 3)
	if err != nil {
		logging.Logger.Warn("record bucket unreadable, treating as empty", "bucket", b.bucket, "error", err)
		return map[string]json.RawMessage{}, nil
	}

	records := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		records[row.ID] = json.RawMessage(row.Data)
	}
	return records, nil
}

// Write replaces the bucket contents in one transaction.
func (b *SQLiteBackend) Write(records map[string]json.RawMessage) error {
	return withRetry(func() error {
		return b.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("bucket = ?", b.bucket).Delete(&recordModel{}).Error; err != nil {
				return fmt.Errorf("failed to clear bucket %s: %w", b.bucket, err)
			}
			for id, data := range records {
				row := recordModel{Bucket: b.bucket, ID: id, Data: string(data)}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to write record %s: %w", id, err)
				}
			}
			return nil
		})
	}, 3)
}

// Exists reports whether the bucket has ever been written.
func (b *SQLiteBackend) Exists() bool {
	var count int64
	if err := b.db.Model(&recordModel{}).Where("bucket = ?", b.bucket).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// withRetry retries operations on SQLITE_BUSY with backoff
func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
