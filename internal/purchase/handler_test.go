package purchase

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestHandler(repo *memoryRepo) *Handler {
	svc, _ := newTestService(repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc)
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestHandleLinesUpdate(t *testing.T) {
	repo := newMemoryRepo()
	v1 := repo.seed(Version{PONumber: "PO-1", OrderType: OrderTypeStandard})
	handler := newTestHandler(repo)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	res := postJSON(t, router, "/purchase-orders/lines/update",
		`{"purchase_order_id": 1, "vat_percent": "15", "lines": [{"description": "bricks", "quantity": 2, "unit_price": 100, "discount_percent": 10}]}`)

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	require.Contains(t, body, `"success":true`)
	require.Contains(t, body, `"total_amount":207`)
	// A fork happened: the returned id differs from the target.
	require.NotContains(t, body, `"purchase_order_id":1,`)
	_ = v1
}

func TestHandleLinesUpdateErrorTaxonomy(t *testing.T) {
	repo := newMemoryRepo()
	v1 := repo.seed(Version{PONumber: "PO-1", OrderType: OrderTypeStandard})
	repo.seed(Version{PONumber: "PO-1", OrderType: OrderTypeStandard})
	handler := newTestHandler(repo)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	// Editing a superseded version conflicts.
	res := postJSON(t, router, "/purchase-orders/lines/update",
		`{"purchase_order_id": 1, "lines": [{"description": "x", "quantity": 1, "unit_price": 1}]}`)
	require.Equal(t, http.StatusConflict, res.Code)

	// Unknown id.
	res = postJSON(t, router, "/purchase-orders/lines/update",
		`{"purchase_order_id": 99, "lines": [{"description": "x"}]}`)
	require.Equal(t, http.StatusNotFound, res.Code)

	// Missing fields.
	res = postJSON(t, router, "/purchase-orders/lines/update", `{"vat_percent": 15}`)
	require.Equal(t, http.StatusBadRequest, res.Code)

	// Malformed body.
	res = postJSON(t, router, "/purchase-orders/lines/update", `{broken`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	_ = v1
}

func TestHandleHeaderUpdate(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Version{PONumber: "PO-2", OrderType: OrderTypeStandard})
	handler := newTestHandler(repo)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	res := postJSON(t, router, "/purchase-orders/update",
		`{"purchase_order_id": 1, "reference": "REF-9", "order_date": "2026/05/01", "total_amount": "1,234.50"}`)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"success":true`)
	require.Len(t, repo.headerUpdates, 1)
	require.Equal(t, []any{"2026-05-01", "REF-9", 1234.5}, repo.headerArgs[0])
}

func TestHandleHeaderUpdateBadDate(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Version{PONumber: "PO-3", OrderType: OrderTypeStandard})
	handler := newTestHandler(repo)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	res := postJSON(t, router, "/purchase-orders/update",
		`{"purchase_order_id": 1, "order_date": "01/05/2026"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHandleSummary(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(
		Version{PONumber: "PO-4", OrderType: OrderTypeStandard, VatPercent: 15},
		Line{NetPrice: 100},
	)
	handler := newTestHandler(repo)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/purchase-orders/1/summary", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"sum":115`)
	require.Contains(t, res.Body.String(), `"count":1`)
}
