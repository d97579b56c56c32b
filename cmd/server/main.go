package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crateworks/internal/adapter/dispatch/ws"
	httpadapter "crateworks/internal/adapter/http"
	memoryinv "crateworks/internal/adapter/inventory/memory"
	"crateworks/internal/adapter/ledger/zstdlog"
	metricsinmem "crateworks/internal/adapter/metrics/inmemory"
	"crateworks/internal/adapter/world/presence"
	"crateworks/internal/app/crates"
	"crateworks/internal/app/delivery"
	"crateworks/internal/app/keys"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/prompt"
	"crateworks/internal/app/schedule"
	"crateworks/internal/app/session"
	"crateworks/internal/config"
	"crateworks/internal/domain/reward"
	"crateworks/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/app/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", resolveConfigPath(), "path to config yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Default()); err != nil {
		log.Fatal(err)
	}
}

func resolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("CRATEWORKS_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	store, err := buildStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			logger.Printf("close storage: %v", err)
		}
	}()

	sched, err := schedule.New(cfg.TickPeriod())
	if err != nil {
		return err
	}
	// The tick loop outlives ctx so shutdown can still hand work to it.
	tickCtx, stopTicks := context.WithCancel(context.Background())
	defer stopTicks()
	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(tickCtx) }()
	defer sched.Close()

	directory := presence.New()
	hub := ws.NewHub(directory, cfg.CORSOrigin, logger)
	inventory := memoryinv.New(cfg.InventorySlots)
	kpi := metricsinmem.NewRecorder()

	catalog := keys.NewCatalog()
	bank := keys.NewBank()
	if err := bank.Load(ctx, store.bank); err != nil {
		return fmt.Errorf("load key bank: %w", err)
	}
	queue := delivery.NewQueue(store.deliveries, logger, time.Now)
	defer queue.Close()
	if err := queue.Load(ctx); err != nil {
		return err
	}

	var ledger ports.GrantLedger
	if cfg.LedgerDir != "" {
		l := zstdlog.NewLedger(cfg.LedgerDir, 4096, logger)
		defer func() {
			if err := l.Close(); err != nil {
				logger.Printf("close grant ledger: %v", err)
			}
		}()
		ledger = l
	}

	registry, err := crates.NewRegistry(crates.Deps{
		Scheduler:  sched,
		Directory:  directory,
		Dispatch:   hub,
		Effects:    hub,
		Announcer:  hub,
		Inventory:  inventory,
		Catalog:    catalog,
		Bank:       bank,
		Deliveries: queue,
		Ledger:     ledger,
		Metrics:    kpi,
		Selector:   selectorFor(cfg.RandomSeed),
		Policy:     cfg.Perception(),
		Messages:   cfg.Messages,
		PhaseEvery: cfg.PhaseEvery,
		Cooldown:   cfg.CooldownTicks,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	hub.OnStale(forgetOnTick(sched, registry))

	boot := crates.Bootstrap{
		TxManager: store.tx,
		KeyRepo:   store.keys,
		TagRepo:   store.tags,
		CrateRepo: store.crates,
		Catalog:   catalog,
		Registry:  registry,
		Scheduler: sched,
		Logger:    logger,
	}
	if cfg.SeedPath != "" {
		seed, err := config.LoadSeed(cfg.SeedPath)
		if err != nil {
			return err
		}
		n, err := boot.Import(ctx, seed)
		if err != nil {
			return fmt.Errorf("import seed: %w", err)
		}
		logger.Printf("seed %s: %d new entries", cfg.SeedPath, n)
	}
	rep, err := boot.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Printf("loaded %d keys, %d tags, %d crates (%d skipped)", rep.Keys, rep.Tags, rep.Crates, len(rep.Skipped))

	prompts := prompt.NewManager(sched, hub, cfg.Prompts)
	keysUC := keys.UseCase{
		Scheduler: sched,
		Catalog:   catalog,
		Bank:      bank,
		Inventory: inventory,
		Directory: directory,
		KeyRepo:   store.keys,
		TagRepo:   store.tags,
		BankRepo:  store.bank,
		Usage:     registry,
	}
	h := httpadapter.Handler{
		CratesUC: crates.UseCase{Scheduler: sched, Registry: registry, Repo: store.crates},
		KeysUC:   keysUC,
		SessionUC: session.UseCase{
			Scheduler:  sched,
			Presence:   directory,
			Crates:     registry,
			Deliveries: queue,
			Inventory:  inventory,
			Announcer:  hub,
			Messages:   cfg.Messages,
			Metrics:    kpi,
			Prompts:    prompts,
			Logger:     logger,
		},
		Prompts:       prompts,
		PromptTimeout: cfg.PromptTimeoutTicks,
		CORSOrigin:    cfg.CORSOrigin,
		KPI:           kpi,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	wsServer := &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	wsDone := make(chan error, 1)
	go func() { wsDone <- wsServer.ListenAndServe() }()

	api := server.Default(server.WithHostPorts(cfg.HTTPAddr), server.WithExitWaitTime(time.Second))
	h.RegisterRoutes(api)
	apiDone := make(chan error, 1)
	go func() { apiDone <- api.Run() }()

	go flushBankEvery(ctx, keysUC, cfg.BankFlushInterval(), logger)

	logger.Printf("crateworks api on %s, observer stream on %s/ws (storage=%s)", cfg.HTTPAddr, cfg.WSAddr, cfg.Storage.Driver)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-schedDone:
		runErr = fmt.Errorf("scheduler stopped: %w", err)
	case err := <-wsDone:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("observer stream: %w", err)
		}
	case err := <-apiDone:
		runErr = fmt.Errorf("api server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Printf("api shutdown: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("observer stream shutdown: %v", err)
	}
	shutdownRegistry(shutdownCtx, sched, registry, logger)
	stopTicks()
	if n, err := keysUC.Flush(shutdownCtx); err != nil {
		logger.Printf("final bank flush: %v", err)
	} else if n > 0 {
		logger.Printf("final bank flush: %d rows", n)
	}
	return runErr
}

// shutdownRegistry retires every construct on the tick goroutine so owed
// batches reach the delivery queue. A scheduler that already stopped is
// bypassed.
func shutdownRegistry(ctx context.Context, sched *schedule.Scheduler, registry *crates.Registry, logger *log.Logger) {
	var queued int
	err := sched.Call(ctx, func() error {
		queued = registry.Shutdown()
		return nil
	})
	if errors.Is(err, schedule.ErrClosed) {
		if err = sched.Wait(ctx); err == nil {
			queued = registry.Shutdown()
		}
	}
	if err != nil {
		logger.Printf("registry shutdown: %v", err)
		return
	}
	if queued > 0 {
		logger.Printf("queued %d in-flight batches for delivery", queued)
	}
}

func flushBankEvery(ctx context.Context, uc keys.UseCase, every time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := uc.Flush(ctx); err != nil {
				logger.Printf("bank flush: %v", err)
			}
		}
	}
}

func selectorFor(seed int64) reward.Selector {
	if seed == 0 {
		return reward.Selector{}
	}
	return reward.NewSelector(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
}

// forgetOnTick drops an observer from every shown set on the next tick so
// the following visibility pass sends a full show again.
func forgetOnTick(sched *schedule.Scheduler, registry *crates.Registry) func(world.ObserverID) {
	return func(id world.ObserverID) {
		_, _ = sched.After(1, func() { registry.ForgetObserver(id) })
	}
}
