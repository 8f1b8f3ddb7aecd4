package app

import (
	"log/slog"

	"github.com/xiebiao/scholarium/internal/application/catalogsync"
	applending "github.com/xiebiao/scholarium/internal/application/lending"
	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
)

// Runtime 命令行工具使用的后台组件
type Runtime struct {
	Config   *config.Config
	Engine   *catalogsync.Engine
	Ledger   *purchase.Ledger
	Lendings *applending.UseCase
	Catalog  catalog.Repository
}

// BuildRuntime 组装同步引擎与购买账本
func BuildRuntime(cfg *config.Config, logger *slog.Logger) (*Runtime, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, dbCleanup, err := ProvideDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, dbCleanup)

	redisClient, redisCleanup, err := ProvideRedis(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, redisCleanup)

	notifier, notifierCleanup, err := ProvideNotifier(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, notifierCleanup)

	_, tracerCleanup := ProvideTracer(cfg, logger)
	cleanups = append(cleanups, tracerCleanup)

	tx := mysql.NewTxManager(db)
	accounts := mysql.NewAccountRepository(db)
	catalogRepo := mysql.NewCatalogRepository(db)
	items := mysql.NewInventoryRepository(db)
	purchases := mysql.NewPurchaseRepository(db)
	lendings := mysql.NewLendingRepository(db)

	cart := purchase.NewCart(purchases, accounts, items, notifier, logger)
	ledger := purchase.NewLedger(purchases, accounts, items, lendings, tx, notifier, logger)
	engine := catalogsync.NewEngine(
		ProvideZotero(cfg, logger),
		catalogRepo,
		items,
		purchases,
		tx,
		cart,
		notifier,
		ProvideLocker(redisClient),
		catalogsync.OptionsFromConfig(cfg.Sync),
		logger,
	)

	return &Runtime{
		Config:   cfg,
		Engine:   engine,
		Ledger:   ledger,
		Lendings: applending.NewUseCase(lendings, items, catalogRepo, cart, cfg.Shop, logger),
		Catalog:  catalogRepo,
	}, cleanup, nil
}
