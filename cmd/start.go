package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"feedsync/core/config"
	"feedsync/core/database"
	"feedsync/core/loader"
	"feedsync/core/logger"
	"feedsync/core/middleware/auth"
	"feedsync/core/middleware/rayid"
	"feedsync/core/storage"

	"feedsync/feature/calendar"
	"feedsync/feature/calendar/models"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the feed sync server",
	Long:  `Starts the HTTP server, the periodic sync scheduler and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(&models.Calendar{}, &models.ExternalEvent{}); err != nil {
			logg.Fatal("Failed to migrate database schema", zap.Error(err))
		}

		// 4. Initialize Storage (feed archive)
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}
		ensureBucket(store, cfg.Storage.Bucket, logg)

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 6. Initialize Feature Loader
		mgr := loader.NewManager()

		feat := calendar.NewFeature(db, store, cfg.Storage.Bucket, logg, cfg.Feed, cfg.Sync)
		mgr.Register(feat)

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Scheduler
		sched := cron.New(cron.WithLogger(logger.NewCronLogger(logg)))
		_, err = sched.AddFunc(cfg.Sync.Cron, func() {
			reports := feat.Service().SyncAll(context.Background())
			logg.Info("Scheduled sync finished", zap.Int("calendars", len(reports)))
		})
		if err != nil {
			logg.Fatal("Invalid sync schedule", zap.String("cron", cfg.Sync.Cron), zap.Error(err))
		}
		sched.Start()

		// 9. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 10. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		<-sched.Stop().Done()
		_ = app.Shutdown()
	},
}

// ensureBucket creates the archive bucket on first start. Failure is not
// fatal: syncs still run, they just lose conditional fetching and the
// network-failure fallback.
func ensureBucket(store storage.Client, bucket string, logg *zap.Logger) {
	ctx := context.Background()
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		logg.Warn("Could not check archive bucket", zap.String("bucket", bucket), zap.Error(err))
		return
	}
	if exists {
		return
	}
	if err := store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		logg.Warn("Could not create archive bucket", zap.String("bucket", bucket), zap.Error(err))
	}
}

func init() {
	RootCmd.AddCommand(startCmd)
}
