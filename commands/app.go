package commands

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-floor/config"
	"github.com/yeremiapane/restaurant-floor/controllers"
	"github.com/yeremiapane/restaurant-floor/database"
	"github.com/yeremiapane/restaurant-floor/floor"
	"github.com/yeremiapane/restaurant-floor/hub"
	"github.com/yeremiapane/restaurant-floor/middlewares"
	"github.com/yeremiapane/restaurant-floor/router"
	"github.com/yeremiapane/restaurant-floor/services"
	"github.com/yeremiapane/restaurant-floor/utils"
	"gorm.io/gorm"
)

// limiterIdleTTL is how long a client IP may stay silent before the hourly
// sweep forgets its rate limiter state. It is longer than an emptied login
// bucket takes to refill.
const limiterIdleTTL = 30 * time.Minute

// App is the wired floor manager: database, floor coordinator and its
// sinks, HTTP router and scheduler.
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Store       *database.FloorStore
	Hub         *hub.Hub
	Monitor     *services.FloorMonitor
	Coordinator *floor.Coordinator
	Scheduler   *services.FloorScheduler
	Router      *gin.Engine
}

// NewApp opens the database, migrates it, seeds it when configured to and
// wires every component.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if cfg.Admin.Email != "" {
		created, err := database.EnsureAdmin(ctx, db, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return nil, err
		}
		if created {
			utils.InfoLogger.Printf("Admin account %s created", cfg.Admin.Email)
		}
	}
	if cfg.SeedOnStart {
		if _, err := database.Seed(ctx, db, time.Now()); err != nil {
			return nil, err
		}
	}

	app := &App{
		Config:  cfg,
		DB:      db,
		Store:   database.NewFloorStore(db),
		Hub:     hub.NewHub(),
		Monitor: services.NewFloorMonitor(),
	}

	notifier := floor.NewNotifier(cfg.Floor.NotificationLogSize, app.Hub)
	app.Coordinator = floor.NewCoordinator(app.Store, cfg.Floor, notifier,
		floor.WithLogger(utils.InfoLogger.WithField("component", "floor")),
		floor.WithObserver(app.Monitor),
		floor.WithObserver(app.Hub),
	)

	app.Scheduler, err = services.NewFloorScheduler(app.Coordinator, cfg.CycleSchedule)
	if err != nil {
		return nil, err
	}

	deps := &controllers.Deps{
		Store:       app.Store,
		Coordinator: app.Coordinator,
		Hub:         app.Hub,
		Monitor:     app.Monitor,
		Now:         time.Now,
	}
	opts := router.Options{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   50,
		Security: middlewares.SecurityOptions{
			HSTSMaxAge:            cfg.Security.HSTSMaxAge,
			HSTSIncludeSubdomains: cfg.Security.HSTSIncludeSubdomains,
			ContentSecurityPolicy: cfg.Security.ContentSecurityPolicy,
		},
	}
	opts.RequestLimiter = opts.NewRequestLimiter()
	opts.LoginLimiter = opts.NewLoginLimiter()
	app.Scheduler.AddSweep("idle request limiter clients", func(now time.Time) int {
		return opts.RequestLimiter.Cleanup(now, limiterIdleTTL)
	})
	app.Scheduler.AddSweep("idle login limiter clients", func(now time.Time) int {
		return opts.LoginLimiter.Cleanup(now, limiterIdleTTL)
	})
	app.Router = router.SetupRouter(db, deps, opts)
	return app, nil
}

// Close releases the hub and the database.
func (a *App) Close() {
	a.Hub.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func fieldsFor(result *floor.CycleResult) logrus.Fields {
	return logrus.Fields{
		"cycle_id": result.CycleID,
		"matches":  result.Summary.MatchesFound,
		"alerts":   result.Summary.Alerts,
		"queue":    result.Summary.QueueLength,
	}
}
