package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/stockledger/backend/internal/application/catalog"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
	reportapp "github.com/stockledger/backend/internal/application/report"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"github.com/stockledger/backend/internal/interfaces/http/middleware"
	"github.com/stockledger/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testAPI struct {
	engine *gin.Engine
	store  *testutil.MemoryStore
}

// newTestAPI serves the handlers over an in-memory ledger
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := testutil.NewMemoryStore()
	log := zap.NewNop()
	products := NewProductHandler(catalogapp.NewProductService(store, store.ProductRepo(), store.LedgerStore(), log))
	stock := NewStockHandler(inventoryapp.NewStockEngine(store, store.LedgerStore(), log))
	reportService := reportapp.NewReportService(store.ProductRepo(), store.LedgerStore(), store.ReportRepo(), log)
	reportService.SetPageSizes(2, 3)
	reports := NewReportHandler(reportService)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.BodyLimit(1<<10))
	api := engine.Group("/api/v1")
	api.POST("/products", products.Create)
	api.GET("/products", products.List)
	api.GET("/products/:id", products.GetByID)
	api.PATCH("/products/:id", products.UpdateDescription)
	api.GET("/products/:id/balance", stock.GetBalance)
	api.GET("/products/:id/audit", reports.Audit)
	api.POST("/inbound", stock.RecordInbound)
	api.GET("/inbound", reports.ListInbound)
	api.POST("/outbound", stock.RecordOutbound)
	api.GET("/outbound", reports.ListOutbound)
	api.GET("/stock", reports.Snapshot)

	return &testAPI{engine: engine, store: store}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

// dataMap decodes resp.Data into a map
func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

// dataList decodes resp.Data into a list of maps
func dataList(t *testing.T, resp dto.Response) []map[string]any {
	t.Helper()
	items, ok := resp.Data.([]any)
	require.True(t, ok, "data is %T", resp.Data)
	result := make([]map[string]any, len(items))
	for i, item := range items {
		result[i] = item.(map[string]any)
	}
	return result
}

func (a *testAPI) createProduct(t *testing.T, name string) string {
	t.Helper()
	w, resp := a.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataMap(t, resp)["id"].(string)
}
