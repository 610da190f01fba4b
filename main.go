package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/VeliorGroup/car-rental-sub003/app/repository"
	apiv1 "github.com/VeliorGroup/car-rental-sub003/internal/api/v1"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/apikeys"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/audit"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/cache"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/database"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/entitlements"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/env"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/plancatalog"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/referral"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/router"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/subscription"
)

func main() {
	app, outbox := NewApplication()
	defer outbox.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

// NewApplication builds the fiber app with every service wired.
func NewApplication() (*fiber.App, *audit.Outbox) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	outbox := audit.NewOutbox(audit.LogSink{})
	outbox.Start()

	catalog := plancatalog.NewCatalog(repos.Plan, cache.NewStore())
	referrals := referral.NewEngine(repos.Tenant, repos.Referral, repos.Subscription, outbox)
	ledger := subscription.NewService(repos.Subscription, repos.Plan, referrals, outbox)
	guard := entitlements.NewGuardFromDB(db)
	keys := apikeys.NewService(repos.ApiKey, repos.Tenant, outbox)

	app := fiber.New(fiber.Config{
		AppName: "car-rental-core",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	server := apiv1.NewAPIServer(catalog, ledger, guard, keys, referrals)
	router.InstallRouter(app, router.NewApiRouter(server))

	return app, outbox
}
