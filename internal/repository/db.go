package repository

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"day-organiser/internal/model"
)

var filePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
}

// NewDB opens the SQLite database that keeps settings and chat users, and
// migrates its tables. File databases run in WAL mode with a busy timeout.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "organiser.db"
	}
	memory := isMemoryDSN(dsn)
	if !memory {
		if err := ensureDBDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormLogLevel(),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open db %s", dsn)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "db handle")
	}
	sqlDB.SetMaxOpenConns(1)

	if !memory {
		for _, pragma := range filePragmas {
			if err := db.Exec(pragma).Error; err != nil {
				_ = sqlDB.Close()
				return nil, errors.Wrapf(err, "apply %q", pragma)
			}
		}
	}

	if err := db.AutoMigrate(&model.User{}, &model.Setting{}); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "migrate db")
	}
	return db, nil
}

// gormLogLevel echoes SQL only when the process logs at debug.
func gormLogLevel() logger.LogLevel {
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		return logger.Info
	}
	return logger.Warn
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func ensureDBDir(dsn string) error {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create db dir %q", dir)
	}
	return nil
}
