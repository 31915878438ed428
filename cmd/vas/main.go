package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/controllers"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/billing"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/cache"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/carrier"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/catalog"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/database"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/datasync"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/entitlement"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/env"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/jobqueue"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/metrics/counter"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/router"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/secured"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/sms"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/trafficmonitor"
)

func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	cat, err := catalog.Load(env.GetEnv("CATALOG_PATH", "catalog.json"))
	if err != nil {
		log.Fatalf("failed to load product catalog: %v", err)
	}

	db := database.GetDB()
	sink := audit.NewChannelSinkFromEnv()

	// Carrier-facing core
	carrierClient := carrier.NewClientFromEnv(sink)
	smsHandler := sms.NewHandler(cat, carrierClient)
	lifecycle := billing.NewLifecycle(billing.NewRepository(db), cat, sink)
	dsProcessor := datasync.NewProcessor(datasync.NewRepository(db), lifecycle)
	sdProcessor := secured.NewProcessor(secured.NewRepository(db), nil, sink)

	// Job pipeline; the SecureD retry enqueuer loops back into the pipeline.
	pipeline := jobqueue.NewPipeline(smsHandler, dsProcessor, sdProcessor, workerCount())
	sdProcessor.Retry = pipeline

	// Traffic monitor
	monitor, err := trafficmonitor.NewMonitorFromEnv(trafficmonitor.NewRepository(db), sink)
	if err != nil {
		log.Fatalf("failed to build traffic monitor: %v", err)
	}
	monitor.Flush = counter.FlushAll
	if err := monitor.Register(); err != nil {
		log.Fatalf("failed to register traffic report: %v", err)
	}

	manager := jobqueue.NewManager(pipeline, monitor)
	manager.Start()
	defer manager.Stop()

	// HTTP surface
	guard := entitlement.NewGuard(entitlement.NewRepository(db))
	app := newApplication(router.Deps{
		Icell:   controllers.NewIcellController(pipeline, sink),
		SecureD: controllers.NewSecureDController(pipeline, sink),
		Content: controllers.NewContentController(),
		Guard:   guard,
	})

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	_ = app.Shutdown()
}

func newApplication(deps router.Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "ms-vas",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, deps)
	return app
}

func workerCount() int {
	n := 3
	if v := env.GetEnv("JOB_WORKERS", ""); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			n = 3
		}
	}
	return n
}
