package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog — тестовый каталог: ответ задается для каждого postType.
type fakeCatalog struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]func(w http.ResponseWriter)
	lastReq   *http.Request
}

func (f *fakeCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	postType := r.URL.Query().Get("postType")
	f.mu.Lock()
	f.calls = append(f.calls, postType)
	f.lastReq = r.Clone(context.Background())
	respond, ok := f.responses[postType]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	respond(w)
}

func (f *fakeCatalog) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func jsonBody(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestCatalog(t *testing.T, fake *fakeCatalog) (*CatalogResolverImpl, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	resolver := NewCatalogResolver(CatalogConfig{
		BaseURL:  srv.URL + "/",
		Origin:   "https://store.example",
		ClientID: "client-42",
		Timeout:  time.Second,
		Variants: []string{"POST", "REELS"},
	}, WithCatalogLogger(discardLogger()))
	return resolver.(*CatalogResolverImpl), srv
}

func TestCatalogResolver_PurchaseLinks(t *testing.T) {
	t.Run("первый вариант успешен, второй не вызывается", func(t *testing.T) {
		fake := &fakeCatalog{responses: map[string]func(http.ResponseWriter){
			"POST":  jsonBody(http.StatusOK, `{"data":{"products":[{"purchaseUrl":"https://shop.example/a"},{"name":"no url"},{"purchaseUrl":"https://shop.example/b"}]}}`),
			"REELS": jsonBody(http.StatusOK, `{"data":{"products":[{"purchaseUrl":"https://shop.example/never"}]}}`),
		}}
		resolver, _ := newTestCatalog(t, fake)

		links := resolver.PurchaseLinks(context.Background(), "987654")
		assert.Equal(t, []string{"https://shop.example/a", "https://shop.example/b"}, links)
		assert.Equal(t, []string{"POST"}, fake.Calls())

		req := fake.lastReq
		require.NotNil(t, req)
		assert.Equal(t, catalogProductsPath, req.URL.Path)
		q := req.URL.Query()
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "987654", q.Get("postOrCollectionId"))
		assert.Equal(t, "STOREFRONT", q.Get("sourceApp"))
		assert.Equal(t, "*/*", req.Header.Get("Accept"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, "https://store.example", req.Header.Get("Origin"))
		assert.Equal(t, "https://store.example/", req.Header.Get("Referer"))
		assert.Equal(t, "Mozilla/5.0", req.Header.Get("User-Agent"))
		assert.Equal(t, "client-42", req.Header.Get("wishlinkid"))
	})

	t.Run("пустой список переходит к следующему варианту", func(t *testing.T) {
		fake := &fakeCatalog{responses: map[string]func(http.ResponseWriter){
			"POST":  jsonBody(http.StatusOK, `{"data":{"products":[]}}`),
			"REELS": jsonBody(http.StatusOK, `{"data":{"products":[{"purchaseUrl":"https://shop.example/r"}]}}`),
		}}
		resolver, _ := newTestCatalog(t, fake)

		assert.Equal(t, []string{"https://shop.example/r"}, resolver.PurchaseLinks(context.Background(), "1"))
		assert.Equal(t, []string{"POST", "REELS"}, fake.Calls())
	})

	t.Run("оба варианта пустые", func(t *testing.T) {
		fake := &fakeCatalog{responses: map[string]func(http.ResponseWriter){
			"POST":  jsonBody(http.StatusOK, `{"data":{"products":[]}}`),
			"REELS": jsonBody(http.StatusOK, `{"data":{"products":[]}}`),
		}}
		resolver, _ := newTestCatalog(t, fake)

		assert.Empty(t, resolver.PurchaseLinks(context.Background(), "1"))
		assert.Len(t, fake.Calls(), 2)
	})

	t.Run("ошибки ответа равносильны пустому результату", func(t *testing.T) {
		fake := &fakeCatalog{responses: map[string]func(http.ResponseWriter){
			"POST":  jsonBody(http.StatusInternalServerError, `oops`),
			"REELS": jsonBody(http.StatusOK, `<html>not json</html>`),
		}}
		resolver, _ := newTestCatalog(t, fake)

		assert.Empty(t, resolver.PurchaseLinks(context.Background(), "1"))
		assert.Equal(t, []string{"POST", "REELS"}, fake.Calls())
	})

	t.Run("недоступный каталог", func(t *testing.T) {
		resolver, srv := newTestCatalog(t, &fakeCatalog{})
		srv.Close()
		assert.Empty(t, resolver.PurchaseLinks(context.Background(), "1"))
	})
}

func TestCatalogResolver_LookupErrorCategories(t *testing.T) {
	fake := &fakeCatalog{responses: map[string]func(http.ResponseWriter){
		"BAD_STATUS": jsonBody(http.StatusBadGateway, `{}`),
		"NOT_JSON":   jsonBody(http.StatusOK, `nope`),
		"NO_DATA":    jsonBody(http.StatusOK, `{"status":"ok"}`),
		"EMPTY":      jsonBody(http.StatusOK, `{"data":{"products":[]}}`),
	}}
	resolver, _ := newTestCatalog(t, fake)

	testCases := []struct {
		variant  string
		category goerrors.Category
		textCode string
		code     int
	}{
		{"BAD_STATUS", goerrors.CategoryExternal, CatalogErrBadStatus, http.StatusBadGateway},
		{"NOT_JSON", goerrors.CategoryBadInput, CatalogErrMalformed, 0},
		{"NO_DATA", goerrors.CategoryBadInput, CatalogErrMalformed, 0},
		{"EMPTY", goerrors.CategoryNotFound, CatalogErrEmpty, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.variant, func(t *testing.T) {
			_, err := resolver.lookup(context.Background(), catalogStrategy{postType: tc.variant, accept: nonEmptyProducts}, "5")
			require.Error(t, err)

			var rich *goerrors.Error
			require.True(t, goerrors.As(err, &rich))
			assert.Equal(t, tc.category, rich.Category)
			assert.Equal(t, tc.textCode, rich.TextCode)
			if tc.code != 0 {
				assert.Equal(t, tc.code, rich.Code)
			}
		})
	}
}

func TestFirstSuccess(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("останавливается на первом успехе", func(t *testing.T) {
		var tried []int
		v, idx, err := firstSuccess(context.Background(), []int{1, 2, 3}, func(_ context.Context, s int) (string, error) {
			tried = append(tried, s)
			if s == 2 {
				return "two", nil
			}
			return "", errBoom
		})
		require.NoError(t, err)
		assert.Equal(t, "two", v)
		assert.Equal(t, 1, idx)
		assert.Equal(t, []int{1, 2}, tried)
	})

	t.Run("все неудачны", func(t *testing.T) {
		_, idx, err := firstSuccess(context.Background(), []string{"a", "b"}, func(context.Context, string) (int, error) {
			return 0, errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, -1, idx)
	})

	t.Run("пустой список стратегий", func(t *testing.T) {
		_, _, err := firstSuccess(context.Background(), nil, func(context.Context, string) (int, error) {
			return 1, nil
		})
		assert.ErrorIs(t, err, ErrNoStrategies)
	})

	t.Run("отмененный контекст прерывает перебор", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		_, _, err := firstSuccess(ctx, []int{1, 2}, func(context.Context, int) (int, error) {
			calls++
			return 0, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}
