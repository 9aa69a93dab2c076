package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Clinica-api/internal/application/analytics"
	"github.com/jhoicas/Clinica-api/internal/application/auth"
	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/infrastructure/memory"
	"github.com/jhoicas/Clinica-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/Clinica-api/internal/interfaces/http"
)

var ict = time.FixedZone("ICT", 7*3600)

type conflictRunner struct{}

func (conflictRunner) Run(context.Context, func(pharmacy.TxRepos) error) error {
	return domain.ErrConflict
}

// newAPI arma la API completa sobre el store en memoria. txRunner nil usa el propio store.
func newAPI(t *testing.T, txRunner pharmacy.TxRunner) (*fiber.App, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	if txRunner == nil {
		txRunner = store
	}
	logger := zerolog.Nop()
	retry := pharmacy.RetryConfig{MaxAttempts: 2}

	deps := apphttp.RouterDeps{
		AuthUC: auth.NewAuthUseCase(store.Users(), auth.JWTConfig{
			Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer,
		}).WithBcryptCost(bcrypt.MinCost),
		CatalogUC:  pharmacy.NewCatalogUseCase(store.Medicines(), logger),
		BatchUC:    pharmacy.NewBatchUseCase(store, store.Medicines(), store.Batches(), nil, retry, ict, logger),
		CheckoutUC: pharmacy.NewCheckoutUseCase(txRunner, store.Medicines(), nil, retry, logger),
		SalesUC: pharmacy.NewSalesUseCase(store.Orders(), store.Medicines(), store.Batches(), store.Users(),
			pdf.NewMarotoReceiptGenerator(), "Phòng khám", ict),
		AlertUC:   pharmacy.NewAlertUseCase(store.Medicines(), store.Batches(), nil, pharmacy.DefaultAlertConfig(), ict, logger),
		RevenueUC: analytics.NewRevenueUseCase(store.Orders(), store.Medicines(), ict),
		Location:  ict,
		JWTSecret: testJWTSecret,
	}
	app := fiber.New()
	apphttp.Router(app, deps)
	return app, store
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// seedStock crea un medicamento y le recibe un lote por HTTP.
func seedStock(t *testing.T, app *fiber.App, token string, qty int64) string {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/medicines", token, map[string]any{
		"name": "Paracetamol 500mg", "sku": "PARA500", "unit": "Viên",
		"min_stock_level": 5, "sell_price": "2000", "cost_price": "1000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	med := decode[dto.MedicineResponse](t, resp)

	resp = call(t, app, http.MethodPost, "/api/batches", token, map[string]any{
		"medicine_id": med.ID, "batch_number": "LOT-A", "expiry_date": "2099-01-01",
		"cost_price": "1000", "quantity": qty,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return med.ID
}

func TestAPI_RegistroYLogin(t *testing.T) {
	app, _ := newAPI(t, nil)
	admin := tokenForRole(t, "admin")

	resp := call(t, app, http.MethodPost, "/api/auth/register", admin, map[string]any{
		"username": "Hoa", "password": "supersecreta", "display_name": "Dược sĩ Hoa", "role": "pharmacist",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/register", admin, map[string]any{
		"username": "hoa", "password": "otraclave1", "display_name": "Hoa 2", "role": "pharmacist",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/register", admin, map[string]any{
		"username": "x", "password": "corta", "role": "bodeguero",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "HOA", "password": "supersecreta"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[dto.LoginResponse](t, resp)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "pharmacist", login.User.Role)

	resp = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "hoa", "password": "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// el token emitido sirve contra rutas protegidas
	resp = call(t, app, http.MethodGet, "/api/medicines", "Bearer "+login.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_RegistroRequiereAdmin(t *testing.T) {
	app, store := newAPI(t, nil)
	body := map[string]any{
		"username": "intruso", "password": "supersecreta", "display_name": "Intruso", "role": "admin",
	}

	resp := call(t, app, http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/register", tokenForRole(t, "pharmacist"), body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err := store.Users().FindByUsername(context.Background(), "intruso")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	resp = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "intruso", "password": "supersecreta"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_CheckoutFlujoCompleto(t *testing.T) {
	app, store := newAPI(t, nil)
	pharmacist := tokenForRole(t, "pharmacist")
	medID := seedStock(t, app, pharmacist, 10)

	resp := call(t, app, http.MethodPost, "/api/pharmacy/checkout", pharmacist, map[string]any{
		"items": []map[string]any{{"medicine_id": medID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sale := decode[dto.SaleOrderResponse](t, resp)
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("6000")), sale.TotalAmount.String())
	assert.Equal(t, "walk_in", sale.SaleSource)
	assert.Equal(t, testUserID, sale.CreatedBy)
	require.Len(t, sale.Items, 1)

	resp = call(t, app, http.MethodGet, "/api/medicines/"+medID+"/stock", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(7), decode[dto.StockResponse](t, resp).TotalStock)

	resp = call(t, app, http.MethodGet, "/api/pharmacy/sales/"+sale.ID, pharmacist, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/pharmacy/sales", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]dto.SaleOrderResponse](t, resp), 1)

	resp = call(t, app, http.MethodGet, "/api/pharmacy/sales/"+sale.ID+"/receipt.pdf", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "venta_"+sale.ID[:8])

	snap := store.Snapshot()
	assert.Len(t, snap.Orders, 1)
}

func TestAPI_CheckoutErrores(t *testing.T) {
	app, store := newAPI(t, nil)
	pharmacist := tokenForRole(t, "pharmacist")
	medID := seedStock(t, app, pharmacist, 4)

	// stock insuficiente: 409 con detalle y sin efectos
	resp := call(t, app, http.MethodPost, "/api/pharmacy/checkout", pharmacist, map[string]any{
		"items": []map[string]any{{"medicine_id": medID, "quantity": 5}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, medID, details["medicine_id"])
	assert.EqualValues(t, 5, details["requested"])
	assert.EqualValues(t, 4, details["available"])
	assert.Empty(t, store.Snapshot().Orders)

	// medicamento desconocido
	resp = call(t, app, http.MethodPost, "/api/pharmacy/checkout", pharmacist, map[string]any{
		"items": []map[string]any{{"medicine_id": "no-existe", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_MEDICINE", decode[map[string]any](t, resp)["code"])

	// carrito vacío y cantidad no positiva
	resp = call(t, app, http.MethodPost, "/api/pharmacy/checkout", pharmacist, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = call(t, app, http.MethodPost, "/api/pharmacy/checkout", pharmacist, map[string]any{
		"items": []map[string]any{{"medicine_id": medID, "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// recepción no puede vender
	resp = call(t, app, http.MethodPost, "/api/pharmacy/checkout", tokenForRole(t, "receptionist"), map[string]any{
		"items": []map[string]any{{"medicine_id": medID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// sin token
	resp = call(t, app, http.MethodPost, "/api/pharmacy/checkout", "", map[string]any{
		"items": []map[string]any{{"medicine_id": medID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ConflictoTransitorio503(t *testing.T) {
	app, _ := newAPI(t, conflictRunner{})
	pharmacist := tokenForRole(t, "pharmacist")
	medID := seedStock(t, app, pharmacist, 4)

	resp := call(t, app, http.MethodPost, "/api/pharmacy/checkout", pharmacist, map[string]any{
		"items": []map[string]any{{"medicine_id": medID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Equal(t, "TRANSIENT_CONFLICT", decode[map[string]any](t, resp)["code"])
}

func TestAPI_CatalogoYLotes(t *testing.T) {
	app, _ := newAPI(t, nil)
	pharmacist := tokenForRole(t, "pharmacist")
	doctor := tokenForRole(t, "doctor")
	medID := seedStock(t, app, pharmacist, 6)

	resp := call(t, app, http.MethodGet, "/api/medicines/search?q=paracetamol", doctor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]dto.MedicineResponse](t, resp), 1)

	resp = call(t, app, http.MethodGet, "/api/medicines/search", doctor, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// doctor lee pero no escribe
	resp = call(t, app, http.MethodPut, "/api/medicines/"+medID, doctor, map[string]any{"name": "X"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, app, http.MethodPut, "/api/medicines/"+medID, pharmacist, map[string]any{"min_stock_level": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(20), decode[dto.MedicineResponse](t, resp).MinStockLevel)

	resp = call(t, app, http.MethodGet, "/api/pharmacy/alerts/low-stock", doctor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	low := decode[[]dto.LowStockAlert](t, resp)
	require.Len(t, low, 1)
	assert.Equal(t, int64(6), low[0].TotalStock)

	resp = call(t, app, http.MethodGet, "/api/medicines/"+medID+"/batches", doctor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	batches := decode[[]dto.BatchResponse](t, resp)
	require.Len(t, batches, 1)

	resp = call(t, app, http.MethodPost, "/api/batches/"+batches[0].ID+"/adjust", pharmacist, map[string]any{"quantity": 2, "reason": "rotura"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(4), decode[dto.BatchResponse](t, resp).CurrentQuantity)

	resp = call(t, app, http.MethodPost, "/api/batches/"+batches[0].ID+"/adjust", pharmacist, map[string]any{"quantity": 9, "reason": "rotura"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// con lotes no se puede borrar
	resp = call(t, app, http.MethodDelete, "/api/medicines/"+medID, pharmacist, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/medicines/no-existe", doctor, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ImportCSV(t *testing.T) {
	app, _ := newAPI(t, nil)
	csv := "sku,name,unit,category,price\nIBU400,Ibuprofeno 400mg,Viên,Giảm đau,1500\n,Sin SKU,,,10\n"
	req := httptest.NewRequest(http.MethodPost, "/api/medicines/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", tokenForRole(t, "pharmacist"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[dto.ImportSummary](t, resp)
	assert.Equal(t, 1, summary.Created)
	assert.Len(t, summary.Failed, 1)
}

func TestAPI_ReportesSoloAdmin(t *testing.T) {
	app, _ := newAPI(t, nil)
	pharmacist := tokenForRole(t, "pharmacist")
	medID := seedStock(t, app, pharmacist, 5)
	resp := call(t, app, http.MethodPost, "/api/pharmacy/checkout", pharmacist, map[string]any{
		"items": []map[string]any{{"medicine_id": medID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/reports/daily", pharmacist, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := tokenForRole(t, "admin")
	resp = call(t, app, http.MethodGet, "/api/reports/daily", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[dto.DailyRevenueReport](t, resp)
	assert.Equal(t, 1, report.OrderCount)

	resp = call(t, app, http.MethodGet, "/api/reports/daily.csv", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "PARA500")

	resp = call(t, app, http.MethodGet, "/api/reports/daily?date=2025-13-40", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// fakeSubscriber entrega los eventos precargados y cierra el canal.
type fakeSubscriber struct {
	events []ports.ChangeEvent
	lists  []string
	err    error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, lists ...string) (<-chan ports.ChangeEvent, error) {
	f.lists = lists
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan ports.ChangeEvent, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func TestAPI_EventosSSE(t *testing.T) {
	sub := &fakeSubscriber{events: []ports.ChangeEvent{
		{List: ports.ListSales, Type: ports.EventSaleCreated, EntityID: "S1", OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		{List: ports.ListBatches, Type: ports.EventBatchesDepleted, EntityID: "S1", OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}}
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Events: sub, JWTSecret: testJWTSecret, Location: ict})
	token := tokenForRole(t, "doctor")

	resp := call(t, app, http.MethodGet, "/api/events?lists=pharmacy.sales,pharmacy.batches,pharmacy.sales", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, []string{ports.ListSales, ports.ListBatches}, sub.lists)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "event: sale.created\ndata: {")
	assert.Contains(t, body, `"entity_id":"S1"`)
	assert.Contains(t, body, "event: batches.updated\n")

	resp = call(t, app, http.MethodGet, "/api/events", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ports.Lists(), sub.lists)

	resp = call(t, app, http.MethodGet, "/api/events?lists=pharmacy.inventado", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	sub.err = errors.New("redis caído")
	resp = call(t, app, http.MethodGet, "/api/events", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPI_EventosSinRedis(t *testing.T) {
	app, _ := newAPI(t, nil)
	resp := call(t, app, http.MethodGet, "/api/events", tokenForRole(t, "admin"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	errBody := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "EVENTS_UNAVAILABLE", errBody.Code)
}
