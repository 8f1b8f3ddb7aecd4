// Package zotero 远程书目服务（Zotero Web API v3）的只读客户端
package zotero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/metrics"
)

const apiVersion = "3"

// Client Zotero客户端
// 设计说明:
// 1. 所有请求经过熔断器，远程服务持续故障时快速失败，等下一轮同步重试
// 2. 单条记录404返回catalog.ErrRemoteNotFound，不计入熔断失败
// 3. 列表接口按start/limit分页，直到取完Total-Results
type Client struct {
	http     *http.Client
	baseURL  string
	library  string // users/{id} 或 groups/{id}
	apiKey   string
	pageSize int
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换HTTP客户端（测试用）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient 创建Zotero客户端
func NewClient(cfg config.ZoteroConfig, logger *slog.Logger, opts ...Option) *Client {
	metrics.InitMetrics()

	libraryType := "users"
	if cfg.LibraryType == "group" {
		libraryType = "groups"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		library:  libraryType + "/" + cfg.UserID,
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		logger:   logger.With("component", "zotero"),
	}

	c.breaker = circuitbreaker.NewCircuitBreaker("zotero", circuitbreaker.Config{
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, catalog.ErrRemoteNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
			c.logger.Warn("熔断器状态变化", "name", name, "from", from.String(), "to", to.String())
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCollections 列出全部集合
func (c *Client) ListCollections(ctx context.Context) ([]catalog.RemoteCollection, error) {
	var out []catalog.RemoteCollection
	err := c.paginate(ctx, c.library+"/collections", func(body []byte) (int, error) {
		var page []collectionJSON
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("解析集合列表失败: %w", err)
		}
		for _, col := range page {
			out = append(out, col.toRemote())
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCollectionItems 列出集合内的全部记录（含附件和笔记）
func (c *Client) ListCollectionItems(ctx context.Context, collectionKey string) ([]catalog.RemoteRecord, error) {
	var out []catalog.RemoteRecord
	path := fmt.Sprintf("%s/collections/%s/items", c.library, url.PathEscape(collectionKey))
	err := c.paginate(ctx, path, func(body []byte) (int, error) {
		var page []itemJSON
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("解析条目列表失败: %w", err)
		}
		for _, item := range page {
			out = append(out, item.toRemote())
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAttachmentBlob 下载附件文件内容
func (c *Client) FetchAttachmentBlob(ctx context.Context, key string) ([]byte, error) {
	body, _, err := c.get(ctx, fmt.Sprintf("%s/items/%s/file", c.library, url.PathEscape(key)), nil)
	return body, err
}

// FetchNoteHTML 读取笔记的HTML内容
func (c *Client) FetchNoteHTML(ctx context.Context, key string) (string, error) {
	body, _, err := c.get(ctx, fmt.Sprintf("%s/items/%s", c.library, url.PathEscape(key)), nil)
	if err != nil {
		return "", err
	}
	var item itemJSON
	if err := json.Unmarshal(body, &item); err != nil {
		return "", apperrors.WrapCode(err, apperrors.ErrCodeRemoteError, "解析笔记失败")
	}
	return item.Data.Note, nil
}

// paginate 逐页请求，handle返回本页条数
func (c *Client) paginate(ctx context.Context, path string, handle func(body []byte) (int, error)) error {
	start := 0
	for {
		query := url.Values{}
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(c.pageSize))

		body, header, err := c.get(ctx, path, query)
		if err != nil {
			return err
		}
		n, err := handle(body)
		if err != nil {
			return apperrors.WrapCode(err, apperrors.ErrCodeRemoteError, "书目服务响应格式错误")
		}

		start += n
		total, convErr := strconv.Atoi(header.Get("Total-Results"))
		if n < c.pageSize || n == 0 || (convErr == nil && start >= total) {
			return nil
		}
	}
}

// get 通过熔断器发送GET请求
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, http.Header, error) {
	var (
		body   []byte
		header http.Header
	)
	start := time.Now()

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		endpoint := c.baseURL + "/" + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Zotero-API-Version", apiVersion)
		if c.apiKey != "" {
			req.Header.Set("Zotero-API-Key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", path, catalog.ErrRemoteNotFound)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(snippet)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("读取响应失败: %w", err)
		}
		header = resp.Header
		return nil
	})

	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrRemoteNotFound):
		result = "not_found"
	case errors.Is(err, circuitbreaker.ErrOpenState), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		result = "rejected"
	default:
		result = "failure"
	}
	metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": c.breaker.Name(), "result": result})

	if err != nil {
		if errors.Is(err, catalog.ErrRemoteNotFound) {
			return nil, nil, err
		}
		c.logger.WarnContext(ctx, "书目服务请求失败", "path", path, "elapsed", time.Since(start), "error", err)
		return nil, nil, apperrors.WrapCode(err, apperrors.ErrCodeRemoteError, "书目服务暂不可用")
	}
	return body, header, nil
}
