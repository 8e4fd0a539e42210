package main

import (
	"time"

	"github.com/lorekeep/lorekeep/config"
	"github.com/lorekeep/lorekeep/ledger"
	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/routes"
	"github.com/lorekeep/lorekeep/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.Activity{},
		&models.GuildPolicy{},
		&models.WeeklyStipend{},
		&models.RoleMembership{},
		&models.PlayerAccount{},
		&models.CharacterAccount{},
		&models.CharacterRenown{},
		&models.LogEntry{},
		&models.User{},
	)

	catalog, err := ledger.NewCatalog(db)
	if err != nil {
		utils.Sugar.Fatalf("initial catalog load failed: %v", err)
	}
	catalog.StartReloader(time.Duration(cfg.CatalogReloadMinutes) * time.Minute)

	notifier := ledger.NewRedisNotifier(utils.GetRedis(), cfg.NotifyChannel)
	engine := ledger.NewEngine(db, catalog, notifier)

	scheduler := ledger.NewScheduler(db, engine, notifier)
	scheduler.Run(time.Duration(cfg.SweepIntervalMinutes) * time.Minute)

	r := routes.SetupRouter(db, engine, scheduler)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
