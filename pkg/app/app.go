// Package app wires configuration, logging, metrics and the asset store
// into a runnable HTTP application.
package app

import (
	"fmt"
	"os"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/jobs"
	"github.com/tvloop/tvloop/pkg/internal/router"
	"github.com/tvloop/tvloop/pkg/internal/store"
	"github.com/tvloop/tvloop/pkg/log"
	"github.com/tvloop/tvloop/pkg/metrics"
	"github.com/tvloop/tvloop/pkg/middleware"
	"github.com/tvloop/tvloop/pkg/scheduler"
)

type App struct {
	Engine    *gin.Engine
	Scheduler *scheduler.Scheduler
	config    *configs.AppConfig
}

func NewApp(configPath string) *App {
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	config := configs.GetConfig()

	log.Init()

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	st, err := store.New(afero.NewOsFs(), &config.Store)
	if err != nil {
		fmt.Printf("Error initializing store: %v\n", err)
		os.Exit(1)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.CORSMiddleware(config.Server),
		middleware.GinLoggerMiddleware(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.PrometheusMiddleware(),
		middleware.StoreMiddleware(st),
	)

	router.Register(engine)

	if config.Metrics.Enabled {
		metrics.RegisterHandler(config.Metrics, engine)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Printf("Error initializing scheduler: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.RegisterStoreJobs(sched, st); err != nil {
		fmt.Printf("Error registering store jobs: %v\n", err)
		os.Exit(1)
	}

	return &App{
		Engine:    engine,
		Scheduler: sched,
		config:    config,
	}
}

func (a *App) Run() error {
	a.Scheduler.Start()
	defer func() { _ = a.Scheduler.Stop() }()

	return a.Engine.Run(fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port))
}
