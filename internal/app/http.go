package app

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/xiebiao/scholarium/internal/application/donation"
	applending "github.com/xiebiao/scholarium/internal/application/lending"
	"github.com/xiebiao/scholarium/internal/application/shop"
	appuser "github.com/xiebiao/scholarium/internal/application/user"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/scholarium/internal/interface/http/handler"
	"github.com/xiebiao/scholarium/internal/interface/http/middleware"
	"github.com/xiebiao/scholarium/internal/interface/http/router"
)

// ApplicationSet 用例
var ApplicationSet = wire.NewSet(
	appuser.NewRegisterUseCase,
	appuser.NewLoginUseCase,
	shop.NewItemUseCase,
	shop.NewCartUseCase,
	shop.NewListPurchasesUseCase,
	shop.NewDownloadUseCase,
	ProvideShopConfig,
	donation.NewUseCase,
	applending.NewUseCase,
)

// HTTPSet 接口层
var HTTPSet = wire.NewSet(
	ProvideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewUserHandler,
	handler.NewShopHandler,
	ProvideDonationHandler,
	handler.NewLendingHandler,
	wire.Struct(new(router.Handlers), "*"),
	ProvideEngine,
	wire.Struct(new(API), "*"),
)

// API HTTP服务运行所需的全部对象
type API struct {
	Config *config.Config
	Engine *gin.Engine
	Tracer *Tracer
}

// ProvideDonationHandler 回调密钥来自配置
func ProvideDonationHandler(cfg *config.Config, uc *donation.UseCase) *handler.DonationHandler {
	return handler.NewDonationHandler(uc, cfg.Shop.CallbackSecret)
}

// ProvideEngine 按运行模式创建Gin引擎
func ProvideEngine(cfg *config.Config, h router.Handlers, logger *slog.Logger) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	return router.New(h, logger)
}

// BuildAPI 手动组装HTTP服务，与cmd/api/wire.go中的InitializeAPI等价
func BuildAPI(cfg *config.Config, logger *slog.Logger) (*API, func(), error) {
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

	tracer, tracerCleanup := ProvideTracer(cfg, logger)
	cleanups = append(cleanups, tracerCleanup)

	// 基础设施层
	tx := mysql.NewTxManager(db)
	users := mysql.NewUserRepository(db)
	accounts := mysql.NewAccountRepository(db)
	catalogRepo := mysql.NewCatalogRepository(db)
	items := mysql.NewInventoryRepository(db)
	purchases := mysql.NewPurchaseRepository(db)
	lendings := mysql.NewLendingRepository(db)
	remote := ProvideZotero(cfg, logger)
	cache := ProvideBlobCache(cfg, redisClient)
	jwtManager := ProvideJWTManager(cfg)

	// 领域层
	userService := ProvideUserService(cfg, users)
	cart := purchase.NewCart(purchases, accounts, items, notifier, logger)
	ledger := purchase.NewLedger(purchases, accounts, items, lendings, tx, notifier, logger)

	// 应用层
	cartUseCase := shop.NewCartUseCase(cart, ledger, accounts, logger)
	donations := donation.NewUseCase(accounts, tx, cartUseCase, ProvideShopConfig(cfg), logger)

	// 接口层
	handlers := router.Handlers{
		User: handler.NewUserHandler(
			appuser.NewRegisterUseCase(userService, accounts, tx, logger),
			appuser.NewLoginUseCase(userService, accounts, jwtManager),
		),
		Shop: handler.NewShopHandler(
			shop.NewItemUseCase(items, catalogRepo, cart),
			cartUseCase,
			shop.NewListPurchasesUseCase(purchases, items),
			shop.NewDownloadUseCase(items, catalogRepo, cart, remote, cache, logger),
		),
		Donation: ProvideDonationHandler(cfg, donations),
		Lending: handler.NewLendingHandler(
			applending.NewUseCase(lendings, items, catalogRepo, cart, ProvideShopConfig(cfg), logger),
		),
		Auth: middleware.NewAuthMiddleware(jwtManager),
	}

	return &API{
		Config: cfg,
		Engine: ProvideEngine(cfg, handlers, logger),
		Tracer: tracer,
	}, cleanup, nil
}
