package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/souzavinny/rootagotchi/internal/alerting"
	"github.com/souzavinny/rootagotchi/internal/api"
	"github.com/souzavinny/rootagotchi/internal/cache"
	"github.com/souzavinny/rootagotchi/internal/chain"
	"github.com/souzavinny/rootagotchi/internal/config"
	"github.com/souzavinny/rootagotchi/internal/game"
	"github.com/souzavinny/rootagotchi/internal/history"
	"github.com/souzavinny/rootagotchi/internal/wallet"
	"github.com/souzavinny/rootagotchi/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("rootagotchid failed: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("ROOTAGOTCHI_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "rootagotchi.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	defs, err := chain.LoadDefinitions(cfg.Chain.Definitions)
	if err != nil {
		return err
	}
	target, ok := defs.Params(cfg.Chain.DefaultChain)
	if !ok {
		return fmt.Errorf("chain %q is not in the definitions", cfg.Chain.DefaultChain)
	}

	passphrase, err := cfg.Passphrase()
	if err != nil {
		return err
	}

	provider, err := wallet.NewKeystoreProvider(ctx, cfg.Wallet.KeystoreDir, passphrase, target)
	if err != nil {
		return err
	}
	defer provider.Close()

	session := wallet.NewManager(provider)
	defer session.Close()
	if _, err := session.Connect(ctx); err != nil {
		return err
	}

	guard := wallet.NewGuard(provider)
	if err := guard.EnsureNetwork(ctx, target); err != nil {
		return err
	}

	client := provider.ActiveClient()
	contract, err := game.NewContract(common.HexToAddress(cfg.Chain.ContractAddress), client.Backend())
	if err != nil {
		return err
	}

	var readerOpts []game.ReaderOption
	if cfg.Cache.Enabled {
		snapshotCache, err := cache.NewRedis(ctx, cache.Config{
			Address:  cfg.Cache.Address,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		defer func() { _ = snapshotCache.Close() }()
		readerOpts = append(readerOpts, game.WithSnapshotCache(snapshotCache))
	}

	reader := game.NewReader(contract, readerOpts...)
	submitter := game.NewSubmitter(client.Backend())
	poller := game.NewPoller(reader, cfg.Poll.Attempts, cfg.Poll.Interval())

	var journal history.Store
	switch cfg.History.Driver {
	case "", "memory":
		journal = history.NewMemoryStore()
	case "mysql":
		store, err := history.NewMySQLStore(ctx, history.MySQLConfig{DSN: cfg.History.DSN})
		if err != nil {
			return err
		}
		journal = store
	default:
		return fmt.Errorf("unknown history driver: %s", cfg.History.Driver)
	}
	defer func() { _ = journal.Close() }()

	notifiers := []alerting.Notifier{alerting.NewLogNotifier()}
	if cfg.Alerting.AMQP.Enabled {
		amqpNotifier, err := alerting.NewAMQPNotifier(alerting.AMQPConfig{
			URL:     cfg.Alerting.AMQP.URL,
			Queue:   cfg.Alerting.AMQP.Queue,
			Durable: true,
		})
		if err != nil {
			return err
		}
		defer amqpNotifier.Close()
		notifiers = append(notifiers, amqpNotifier)
	}

	pipeline := game.NewPipeline(session, guard, target, contract, reader, submitter, poller,
		game.WithJournal(journal),
		game.WithAlerts(alerting.NewFanout(notifiers...)),
	)

	// Warm the view; a cold chain read here is not fatal.
	if _, err := pipeline.Refresh(ctx); err != nil {
		logger.L().Warn("initial snapshot read failed", slog.Any("error", err))
	}

	server := api.NewServer(cfg.Server.Address, pipeline, session,
		api.WithHistory(journal),
		api.WithBalanceSource(client),
	)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
