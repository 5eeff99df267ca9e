package repository

import (
	"context"
	"fmt"

	"motioncapture/internal/config"
	"motioncapture/internal/errs"
	"motioncapture/internal/repository/mongodb"
	"motioncapture/internal/repository/sqlite"
)

// Open connects the capture store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (CaptureRepository, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		db, err := mongodb.New(ctx, cfg.MongoURI, cfg.DatabaseName, cfg.CollectionName, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		return mongodb.NewCaptureRepository(db), nil

	case config.DriverSQLite:
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqlite.NewCaptureRepository(db), nil

	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownDriver, cfg.Driver)
	}
}
