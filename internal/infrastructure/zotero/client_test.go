package zotero

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.ZoteroConfig{
		BaseURL:         srv.URL,
		UserID:          "42",
		APIKey:          "secret",
		LibraryType:     "user",
		PageSize:        pageSize,
		Timeout:         5 * time.Second,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_ListCollections(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/42/collections", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Zotero-API-Key"))
		assert.Equal(t, "3", r.Header.Get("Zotero-API-Version"))

		w.Header().Set("Total-Results", "3")
		switch r.URL.Query().Get("start") {
		case "0":
			fmt.Fprint(w, `[
				{"key":"ROOT","data":{"key":"ROOT","name":"Theory","parentCollection":false}},
				{"key":"SUB","data":{"key":"SUB","name":"Money","parentCollection":"ROOT"}}
			]`)
		case "2":
			fmt.Fprint(w, `[{"key":"PRIV","data":{"key":"PRIV","name":"_drafts","parentCollection":false}}]`)
		default:
			t.Errorf("unexpected start %q", r.URL.Query().Get("start"))
		}
	})

	client := newTestClient(t, mux, 2)
	got, err := client.ListCollections(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []catalog.RemoteCollection{
		{Key: "ROOT", Name: "Theory"},
		{Key: "SUB", Name: "Money", ParentKey: "ROOT"},
		{Key: "PRIV", Name: "_drafts"},
	}, got)
}

func TestClient_ListCollectionItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/42/collections/C1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Total-Results", "2")
		fmt.Fprint(w, `[
			{"key":"K1","data":{"key":"K1","itemType":"book","title":"Capital","date":"1867",
				"extra":"amount: 2","tags":[{"tag":"owned"}],
				"creators":[{"creatorType":"author","firstName":"Karl","lastName":"Marx"}]}},
			{"key":"A1","data":{"key":"A1","itemType":"attachment","parentItem":"K1","filename":"x.pdf"}}
		]`)
	})

	client := newTestClient(t, mux, 100)
	got, err := client.ListCollectionItems(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	book := got[0]
	assert.Equal(t, "K1", book.Key)
	assert.Equal(t, "Capital", book.Title)
	assert.Equal(t, "1867", book.Date)
	assert.Equal(t, []string{"owned"}, book.Tags)
	assert.Equal(t, "Karl Marx", book.Creators[0].FullName())
	assert.True(t, book.IsParent())

	att := got[1]
	assert.Equal(t, "K1", att.ParentKey)
	assert.Equal(t, "pdf", att.MediaType())
}

func TestClient_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/42/items/A1/file", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/users/42/items/N1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"key":"N1","data":{"key":"N1","itemType":"note","note":"<p>Hallo</p>"}}`)
	})

	client := newTestClient(t, mux, 100)
	ctx := context.Background()

	t.Run("下载附件", func(t *testing.T) {
		blob, err := client.FetchAttachmentBlob(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4"), blob)
	})

	t.Run("读取笔记", func(t *testing.T) {
		html, err := client.FetchNoteHTML(ctx, "N1")
		require.NoError(t, err)
		assert.Equal(t, "<p>Hallo</p>", html)
	})

	t.Run("记录不存在", func(t *testing.T) {
		_, err := client.FetchAttachmentBlob(ctx, "GONE")
		assert.ErrorIs(t, err, catalog.ErrRemoteNotFound)
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/42/collections", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/users/42/items/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	})

	client := newTestClient(t, mux, 100)
	ctx := context.Background()

	t.Run("404不触发熔断", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, err := client.FetchAttachmentBlob(ctx, "K"+strconv.Itoa(i))
			assert.ErrorIs(t, err, catalog.ErrRemoteNotFound)
		}
		assert.Equal(t, circuitbreaker.StateClosed, client.breaker.State())
	})

	t.Run("连续失败后熔断", func(t *testing.T) {
		calls.Store(0)
		for i := 0; i < 2; i++ {
			_, err := client.ListCollections(ctx)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRemoteError))
		}
		assert.Equal(t, circuitbreaker.StateOpen, client.breaker.State())

		_, err := client.ListCollections(ctx)
		assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
		assert.Equal(t, int32(2), calls.Load())
	})
}
