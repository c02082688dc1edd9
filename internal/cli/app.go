package cli

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"day-organiser/internal/config"
	"day-organiser/internal/logging"
	"day-organiser/internal/repository"
	"day-organiser/internal/service"
)

// app bundles what every command needs: config, logger, database and session.
type app struct {
	cfg     config.Config
	db      *gorm.DB
	users   *repository.UserRepository
	session *service.Session
	logs    io.Closer
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if dataFile != "" {
		cfg.DataFile = dataFile
	}

	logs, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, errors.Wrap(err, "logging")
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logs.Close()
		return nil, errors.Wrap(err, "db")
	}

	store := repository.NewDataFile(afero.NewOsFs(), cfg.DataFile)
	session, err := service.OpenSession(ctx, store, repository.NewSettingsRepository(db))
	if err != nil {
		closeDB(db)
		logs.Close()
		return nil, err
	}
	logrus.WithField("file", store.Path()).Debug("organiser data loaded")

	return &app{
		cfg:     cfg,
		db:      db,
		users:   repository.NewUserRepository(db),
		session: session,
		logs:    logs,
	}, nil
}

func (a *app) Close() {
	closeDB(a.db)
	if err := a.logs.Close(); err != nil {
		logrus.WithError(err).Debug("close log file")
	}
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}
