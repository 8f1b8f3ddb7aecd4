package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/scholarium/internal/application/donation"
	applending "github.com/xiebiao/scholarium/internal/application/lending"
	"github.com/xiebiao/scholarium/internal/application/shop"
	appuser "github.com/xiebiao/scholarium/internal/application/user"
	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/domain/user"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/internal/infrastructure/notify"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/scholarium/internal/interface/http/handler"
	"github.com/xiebiao/scholarium/internal/interface/http/middleware"
	"github.com/xiebiao/scholarium/internal/interface/http/router"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/jwt"
)

const callbackSecret = "gateway-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// remoteStub 附件内容固定的远程书目服务
type remoteStub struct{}

func (remoteStub) FetchAttachmentBlob(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

func (remoteStub) FetchNoteHTML(context.Context, string) (string, error) {
	return "<p>note</p>", nil
}

type server struct {
	engine   *gin.Engine
	items    inventory.Repository
	cat      catalog.Repository
	lendings *applending.UseCase
}

func newServer(t *testing.T) *server {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := mysql.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NewLogNotifier(logger)
	tx := mysql.NewTxManager(db)
	users := mysql.NewUserRepository(db)
	accounts := mysql.NewAccountRepository(db)
	items := mysql.NewInventoryRepository(db)
	cat := mysql.NewCatalogRepository(db)
	purchases := mysql.NewPurchaseRepository(db)
	lendings := mysql.NewLendingRepository(db)
	jwtManager := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)

	userService := user.NewService(users, 4)
	cart := purchase.NewCart(purchases, accounts, items, notifier, logger)
	ledger := purchase.NewLedger(purchases, accounts, items, lendings, tx, notifier, logger)
	cartUseCase := shop.NewCartUseCase(cart, ledger, accounts, logger)
	shopConfig := config.ShopConfig{DonationPeriodDays: 365, ExpiringDays: 30, LendingItemType: "lending"}
	lendingUseCase := applending.NewUseCase(lendings, items, cat, cart, shopConfig, logger)

	engine := router.New(router.Handlers{
		User: handler.NewUserHandler(
			appuser.NewRegisterUseCase(userService, accounts, tx, logger),
			appuser.NewLoginUseCase(userService, accounts, jwtManager),
		),
		Shop: handler.NewShopHandler(
			shop.NewItemUseCase(items, cat, cart),
			cartUseCase,
			shop.NewListPurchasesUseCase(purchases, items),
			shop.NewDownloadUseCase(items, cat, cart, remoteStub{}, nil, logger),
		),
		Donation: handler.NewDonationHandler(
			donation.NewUseCase(accounts, tx, cartUseCase, shopConfig, logger),
			callbackSecret,
		),
		Lending: handler.NewLendingHandler(lendingUseCase),
		Auth:    middleware.NewAuthMiddleware(jwtManager),
	}, logger)

	return &server{engine: engine, items: items, cat: cat, lendings: lendingUseCase}
}

func (s *server) do(t *testing.T, method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "JSON序列化失败")
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// call 发送请求并解析统一响应
func (s *server) call(t *testing.T, method, path string, body interface{}, token string) *Response {
	t.Helper()
	header := map[string]string{}
	if token != "" {
		header["Authorization"] = "Bearer " + token
	}
	w := s.do(t, method, path, body, header)

	var result Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), "解析JSON响应失败: %s", w.Body.String())
	return &result
}

// registerUser 注册并登录，返回Token
func (s *server) registerUser(t *testing.T, nickname string) string {
	t.Helper()
	email := nickname + "@example.com"
	resp := s.call(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"email":    email,
		"password": "Test1234",
		"nickname": nickname,
	}, "")
	require.Equal(t, 0, resp.Code, "注册失败: %s", resp.Message)

	resp = s.call(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    email,
		"password": "Test1234",
	}, "")
	require.Equal(t, 0, resp.Code, "登录失败: %s", resp.Message)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.AccessToken
}

// book 创建一本实体书及其PDF
func (s *server) book(t *testing.T, price, stock int) (physical, digital *inventory.Item) {
	t.Helper()
	ctx := context.Background()
	physicalType, err := s.items.EnsureType(ctx, &inventory.ItemType{
		Slug:                "purchase",
		ShippingRequired:    true,
		AllowRestockRequest: true,
		AllowPriceRequest:   true,
	})
	require.NoError(t, err)
	pdfType, err := s.items.EnsureType(ctx, &inventory.ItemType{
		Slug:              "pdf",
		BuyOnce:           true,
		AllowPriceRequest: true,
	})
	require.NoError(t, err)

	product := &inventory.Product{Kind: inventory.KindBook, Title: "Human Action"}
	require.NoError(t, s.items.CreateProduct(ctx, product))
	entry := &catalog.Entry{ExternalKey: "HA1949", Title: product.Title, ProductID: product.ID}
	require.NoError(t, s.cat.CreateEntry(ctx, entry))
	att := &catalog.Attachment{ExternalKey: "PDF1", Format: catalog.FormatFile, MediaType: "pdf", EntryID: entry.ID}
	require.NoError(t, s.cat.SaveAttachment(ctx, att))

	physical = inventory.NewItem(*physicalType, product.ID, &price, &stock)
	require.NoError(t, s.items.CreateItem(ctx, physical))
	pdfPrice := 5
	digital = inventory.NewItem(*pdfType, product.ID, &pdfPrice, nil)
	digital.AttachmentID = &att.ID
	require.NoError(t, s.items.CreateItem(ctx, digital))
	return physical, digital
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	t.Run("健康检查", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/ping", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("沿用请求ID", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/ping", nil, map[string]string{middleware.RequestIDHeader: "req-1"})
		assert.Equal(t, "req-1", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("指标端点", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/metrics", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "go_goroutines")
	})
}

func TestUserRoutes(t *testing.T) {
	s := newServer(t)

	t.Run("注册返回账户ID", func(t *testing.T) {
		resp := s.call(t, http.MethodPost, "/api/v1/users/register", map[string]string{
			"email":    "mises@example.com",
			"password": "Test1234",
			"nickname": "mises",
		}, "")
		require.Equal(t, 0, resp.Code, resp.Message)

		var data struct {
			ID        uint `json:"id"`
			AccountID uint `json:"account_id"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.NotZero(t, data.ID)
		assert.NotZero(t, data.AccountID)
	})

	t.Run("参数错误", func(t *testing.T) {
		resp := s.call(t, http.MethodPost, "/api/v1/users/register", map[string]string{
			"email": "not-an-email",
		}, "")
		assert.Equal(t, apperrors.ErrCodeBindError, resp.Code)
	})

	t.Run("密码错误", func(t *testing.T) {
		resp := s.call(t, http.MethodPost, "/api/v1/users/login", map[string]string{
			"email":    "mises@example.com",
			"password": "Wrong1234",
		}, "")
		assert.Equal(t, apperrors.ErrCodeInvalidPassword, resp.Code)
	})
}

func TestItemRoutes(t *testing.T) {
	s := newServer(t)
	physical, digital := s.book(t, 10, 2)
	token := s.registerUser(t, "hayek")

	t.Run("匿名查看商品状态", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d/status", physical.ID), nil, "")
		require.Equal(t, 0, resp.Code, resp.Message)

		var status shop.ItemStatus
		require.NoError(t, json.Unmarshal(resp.Data, &status))
		assert.Equal(t, physical.ID, status.ItemID)
		assert.False(t, status.Accessible)
		require.NotNil(t, status.Stock)
		assert.Equal(t, 2, *status.Stock)
	})

	t.Run("无效ID", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, "/api/v1/items/abc/status", nil, "")
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})

	t.Run("申请需要登录", func(t *testing.T) {
		resp := s.call(t, http.MethodPost, fmt.Sprintf("/api/v1/items/%d/request", physical.ID), nil, "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("申请补货", func(t *testing.T) {
		resp := s.call(t, http.MethodPost, fmt.Sprintf("/api/v1/items/%d/request", physical.ID), nil, token)
		assert.Equal(t, 0, resp.Code, resp.Message)
	})

	t.Run("未购买不能下载", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d/download/0", digital.ID), nil, token)
		assert.Equal(t, apperrors.ErrCodeNotAccessible, resp.Code)
	})
}

func TestPurchaseFlow(t *testing.T) {
	s := newServer(t)
	physical, digital := s.book(t, 10, 2)
	token := s.registerUser(t, "menger")

	resp := s.call(t, http.MethodPost, "/api/v1/cart", map[string]uint{"item_id": physical.ID}, token)
	require.Equal(t, 0, resp.Code, resp.Message)
	resp = s.call(t, http.MethodPost, "/api/v1/cart", map[string]uint{"item_id": digital.ID}, token)
	require.Equal(t, 0, resp.Code, resp.Message)

	t.Run("余额不足时不结算", func(t *testing.T) {
		resp := s.call(t, http.MethodPost, "/api/v1/cart/execute", nil, token)
		assert.Equal(t, account.ErrInsufficientBalance.Code, resp.Code)

		var result shop.ExecuteResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 15, result.Total)
		assert.Empty(t, result.Executed)
	})

	var pending donation.Pending
	t.Run("发起捐赠", func(t *testing.T) {
		resp := s.call(t, http.MethodPost, "/api/v1/donations", map[string]interface{}{
			"amount": 20,
			"method": "paypal",
		}, token)
		require.Equal(t, 0, resp.Code, resp.Message)
		require.NoError(t, json.Unmarshal(resp.Data, &pending))
		assert.NotEmpty(t, pending.PaymentID)
	})

	callback := map[string]interface{}{
		"payment_id":      pending.PaymentID,
		"succeeded":       true,
		"payer_reference": "PAYER-1",
	}

	t.Run("回调密钥错误", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/payments/callback", callback,
			map[string]string{handler.CallbackSecretHeader: "wrong"})
		var result Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, apperrors.ErrCodeForbidden, result.Code)
	})

	t.Run("支付成功后自动结算", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/payments/callback", callback,
			map[string]string{handler.CallbackSecretHeader: callbackSecret})
		var result Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Equal(t, 0, result.Code, result.Message)

		var outcome donation.Outcome
		require.NoError(t, json.Unmarshal(result.Data, &outcome))
		assert.True(t, outcome.Executed)
		require.NotNil(t, outcome.Cart)
		assert.Len(t, outcome.Cart.Executed, 2)
		assert.Equal(t, 5, outcome.Cart.Balance)
	})

	t.Run("重复回调", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/payments/callback", callback,
			map[string]string{handler.CallbackSecretHeader: callbackSecret})
		var result Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Equal(t, 0, result.Code)

		var outcome donation.Outcome
		require.NoError(t, json.Unmarshal(result.Data, &outcome))
		assert.True(t, outcome.Duplicate)
	})

	t.Run("购买后可下载", func(t *testing.T) {
		w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d/download/0", digital.ID), nil,
			map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "%PDF-1.4", w.Body.String())
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	})

	t.Run("已购列表", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, "/api/v1/purchases?page=1&page_size=10", nil, token)
		require.Equal(t, 0, resp.Code, resp.Message)

		var page struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.EqualValues(t, 2, page.Total)
	})

	t.Run("购物车已清空", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, "/api/v1/cart", nil, token)
		require.Equal(t, 0, resp.Code, resp.Message)

		var view shop.CartView
		require.NoError(t, json.Unmarshal(resp.Data, &view))
		assert.Empty(t, view.Lines)
		assert.Equal(t, 5, view.Balance)
	})
}

func TestLendingRoutes(t *testing.T) {
	s := newServer(t)
	s.book(t, 10, 2)
	free := 0
	item, err := s.lendings.Enable(context.Background(), "HA1949", 1, &free)
	require.NoError(t, err)

	reader := s.registerUser(t, "hayek")
	other := s.registerUser(t, "mises")

	resp := s.call(t, http.MethodPost, "/api/v1/cart", map[string]uint{"item_id": item.ID}, reader)
	require.Equal(t, 0, resp.Code, resp.Message)
	resp = s.call(t, http.MethodPost, "/api/v1/cart/execute", nil, reader)
	require.Equal(t, 0, resp.Code, resp.Message)

	var lendings []struct {
		ID       uint   `json:"id"`
		Title    string `json:"title"`
		Returned string `json:"returned"`
	}

	t.Run("需要登录", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, "/api/v1/lendings", nil, "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("借出后出现在列表中", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, "/api/v1/lendings", nil, reader)
		require.Equal(t, 0, resp.Code, resp.Message)
		require.NoError(t, json.Unmarshal(resp.Data, &lendings))
		require.Len(t, lendings, 1)
		assert.Equal(t, "Human Action", lendings[0].Title)
		assert.Empty(t, lendings[0].Returned)
	})

	t.Run("唯一副本借出后他人只能申请", func(t *testing.T) {
		resp := s.call(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d/status", item.ID), nil, other)
		require.Equal(t, 0, resp.Code, resp.Message)

		var status shop.ItemStatus
		require.NoError(t, json.Unmarshal(resp.Data, &status))
		assert.Equal(t, inventory.StatusRequestable, status.Status)
		require.NotNil(t, status.Stock)
		assert.Equal(t, 0, *status.Stock)
	})

	t.Run("归还后默认列表为空", func(t *testing.T) {
		require.NoError(t, s.lendings.Return(context.Background(), lendings[0].ID))

		resp := s.call(t, http.MethodGet, "/api/v1/lendings", nil, reader)
		require.Equal(t, 0, resp.Code, resp.Message)
		var active []json.RawMessage
		require.NoError(t, json.Unmarshal(resp.Data, &active))
		assert.Empty(t, active)

		resp = s.call(t, http.MethodGet, "/api/v1/lendings?all=true", nil, reader)
		require.Equal(t, 0, resp.Code, resp.Message)
		var all []json.RawMessage
		require.NoError(t, json.Unmarshal(resp.Data, &all))
		assert.Len(t, all, 1)
	})
}
