package calendar

import (
	"feedsync/core/storage"
	"feedsync/feature/feed"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the calendar sync feature.
func NewFeature(db *gorm.DB, client storage.Client, bucket string, logger *zap.Logger, feedCfg feed.Config, syncCfg Config) *Feature {
	store := NewStore(db, logger)
	fetcher := feed.NewFetcher(client, bucket, logger, feedCfg.TimeoutSeconds)
	svc := NewService(store, fetcher, logger, feedCfg, syncCfg)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Service exposes the sync service for the scheduler and the CLI.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "calendar"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
