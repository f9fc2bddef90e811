package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"commerce-core/internal/handler"
	"commerce-core/internal/ranking"
	"commerce-core/internal/repository"
	"commerce-core/internal/service"
	"commerce-core/pkg/config"
	"commerce-core/pkg/database"
	"commerce-core/pkg/lock"
	"commerce-core/pkg/logger"
	"commerce-core/pkg/messaging"
	"commerce-core/pkg/metrics"
)

const (
	consumerGroup   = "commerce-core"
	rollupLockTTL   = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

func main() {
	log := logger.New("commerce-core")
	if err := run(log); err != nil {
		log.Error(err, "server exited with error")
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(log logr.Logger) error {
	cfg, err := config.Load(config.GetEnv("CONFIG_FILE", ""))
	if err != nil {
		return err
	}
	if config.GetEnvBool("DEBUG", false) {
		logger.SetVerbosity(logger.LevelDebug)
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	sqlDB, err := database.OpenSQL(cfg.SQLDriver, cfg.SQLDSN)
	if err != nil {
		return err
	}
	if err := repository.MigrateRankingArchive(sqlDB); err != nil {
		return fmt.Errorf("migrate ranking archive: %w", err)
	}
	archive := repository.NewRankingArchive(sqlDB)

	var (
		counter      ranking.Counter
		issueLocker  lock.Locker
		rollupLocker lock.Locker
	)
	if cfg.RedisAddr != "" {
		cli, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer cli.Close()
		log.Info("connected to Redis", "addr", cfg.RedisAddr)

		counter = ranking.NewRedisCounter(cli, "")
		issueLocker = lock.NewRedisLock(cli, cfg.LockTTL, cfg.LockWait)
		rollupLocker = lock.NewRedisLock(cli, rollupLockTTL, 0)
	} else {
		log.Info("REDIS_ADDR not set, ranking counters and locks are process-local")
		counter = ranking.NewMemoryCounter()
		issueLocker = lock.NewKeyedMutex(cfg.LockWait)
		rollupLocker = lock.NewKeyedMutex(0)
	}

	var bus messaging.PubSub
	switch cfg.EventBus {
	case "kafka":
		bus, err = messaging.NewKafka(cfg.KafkaBrokers, consumerGroup, log.WithName("kafka"))
		if err != nil {
			return err
		}
	case "gochannel":
		bus = messaging.NewGoChannel(log.WithName("events"))
	default:
		return fmt.Errorf("unsupported event bus %q", cfg.EventBus)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Error(err, "close event bus")
		}
	}()

	var m *metrics.Metrics
	if cfg.MetricsEnable {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	if cfg.SeedProducts {
		if err := seedCatalog(ctx, st.products); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
	}

	engine := ranking.NewEngine(ranking.EngineOptions{
		Counter:  counter,
		Archive:  archive,
		Products: st.products,
		Locker:   rollupLocker,
		TopN:     cfg.RankingTopN,
		Metrics:  m,
		Logger:   log.WithName("rollup"),
	})
	scheduler, err := ranking.NewScheduler(engine, ranking.SchedulerOptions{
		DailySpec:  cfg.DailyCron,
		WeeklySpec: cfg.WeeklyCron,
		Location:   loc,
		Logger:     log.WithName("scheduler"),
	})
	if err != nil {
		return err
	}
	sales := ranking.NewSaleSubscriber(bus.Subscriber, counter, m, log.WithName("sales"))

	coupons := service.NewCouponService(st.coupons, st.userCoupons, service.CouponServiceOptions{
		Locker:  issueLocker,
		Metrics: m,
		Logger:  log.WithName("coupons"),
	})
	balances := service.NewBalanceService(st.balances, bus.Publisher, log.WithName("balances"))
	audit := service.NewBalanceAudit(bus.Subscriber, log.WithName("balance-audit"))
	rankings := service.NewRankingService(archive, engine, bus.Publisher, log.WithName("rankings"))
	orders := service.NewOrderService(service.OrderServiceOptions{
		Products:    st.products,
		Orders:      st.orders,
		Coupons:     st.coupons,
		UserCoupons: st.userCoupons,
		Balances:    balances,
		Sales:       rankings,
		Logger:      log.WithName("orders"),
	})

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.Deps{
		Coupons:  coupons,
		Orders:   orders,
		Balances: balances,
		Rankings: rankings,
		Products: st.products,
		Metrics:  m,
		Location: loc,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sales.Run(gctx)
	})
	g.Go(func() error {
		return audit.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	scheduler.Start()
	return g.Wait()
}
