package main

import (
	"context"
	"time"

	"github.com/lugf027/mywebsite/config"
	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
	"github.com/lugf027/mywebsite/routes"
	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/tasks"
	"github.com/lugf027/mywebsite/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()
	log := utils.Logger

	db := config.InitDatabase(models.All()...)
	clock := services.NewSystemClock(cfg.Location())

	events := repository.NewEventStore(db)
	articleStore := repository.NewArticleStore(db)
	userStore := repository.NewUserStore(db)
	siteStore := repository.NewSiteConfigStore(db)

	articles := services.NewArticleService(articleStore, userStore, clock, log.Named("articles"))
	aggregator := services.NewAggregator(events, clock)
	statistics := services.NewStatisticsService(aggregator, articles, articleStore, userStore, clock)
	site := services.NewSiteConfigService(siteStore, clock, log.Named("site"))
	auth := services.NewAuthService(userStore, clock, cfg.AdminUsernames, time.Duration(cfg.JWTExpiryHours)*time.Hour, log.Named("auth"))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := site.InitDefaults(initCtx); err != nil {
		log.Sugar().Warnf("init site config defaults: %v", err)
	}
	cancel()

	accessLogger := services.NewAccessLogger(events, log.Named("access"), cfg.AccessQueueSize, cfg.AccessWorkers)

	cache := utils.NewCache(utils.GetRedis(), time.Duration(cfg.CacheTTLSeconds)*time.Second)
	blacklist := utils.NewTokenBlacklist(cache)

	scheduler := tasks.NewScheduler(log.Named("cron"))
	if cfg.AccessRetentionDays > 0 {
		job := tasks.NewRetentionJob(events, clock, cfg.AccessRetentionDays, log.Named("retention"))
		if err := scheduler.Register("access-retention", cfg.AccessRetentionCron, job); err != nil {
			log.Sugar().Fatalf("register retention job: %v", err)
		}
	}
	scheduler.Start()

	r := routes.SetupRouter(routes.Dependencies{
		Articles:   articles,
		Statistics: statistics,
		Site:       site,
		Auth:       auth,
		Recorder:   accessLogger,
		Clock:      clock,
		Cache:      cache,
		Blacklist:  blacklist,
		Logger:     log,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	// Drain queued access events before the database goes away
	if err := utils.GraceServer(":"+cfg.AppPort, r, scheduler.Stop, accessLogger.Close); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
	}
}
