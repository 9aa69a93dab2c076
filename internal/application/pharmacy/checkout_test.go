package pharmacy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Clinica-api/internal/application/auth"
	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/infrastructure/memory"
)

var pharmacist = auth.Session{UserID: "user-1", DisplayName: "Dược sĩ Lan", Role: entity.RolePharmacist}

func testRetry() pharmacy.RetryConfig {
	return pharmacy.RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond}
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedMedicine(t *testing.T, store *memory.Store, id, name string, price int64) {
	t.Helper()
	require.NoError(t, store.Medicines().Create(context.Background(), &entity.Medicine{
		ID:        id,
		Name:      name,
		SKU:       "SKU-" + id,
		Unit:      "viên",
		IsActive:  true,
		SellPrice: decimal.NewFromInt(price),
		CostPrice: decimal.NewFromInt(price / 2),
	}))
}

func seedBatch(t *testing.T, store *memory.Store, id, medicineID, expiry string, qty int64) {
	t.Helper()
	require.NoError(t, store.Batches().Create(context.Background(), &entity.InventoryBatch{
		ID:               id,
		MedicineID:       medicineID,
		BatchNumber:      "LOT-" + id,
		ExpiryDate:       date(expiry),
		ImportDate:       date("2023-06-01"),
		CostPrice:        decimal.NewFromInt(500),
		OriginalQuantity: qty,
		CurrentQuantity:  qty,
	}))
}

func qtyOf(t *testing.T, store *memory.Store, batchID string) int64 {
	t.Helper()
	b, err := store.Batches().GetByID(context.Background(), batchID)
	require.NoError(t, err)
	return b.CurrentQuantity
}

func item(medicineID string, qty int64) dto.CheckoutItemRequest {
	return dto.CheckoutItemRequest{MedicineID: medicineID, Quantity: qty}
}

func cart(items ...dto.CheckoutItemRequest) dto.CheckoutRequest {
	return dto.CheckoutRequest{PatientName: "Nguyễn Thị Hoa", Items: items}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt ports.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// scenarioStore M con B1 (2024-01-01, 5) y B2 (2024-06-01, 10).
func scenarioStore(t *testing.T) *memory.Store {
	store := memory.NewStore()
	seedMedicine(t, store, "M", "Paracetamol 500mg", 2000)
	seedBatch(t, store, "B2", "M", "2024-06-01", 10)
	seedBatch(t, store, "B1", "M", "2024-01-01", 5)
	return store
}

func newCheckout(store *memory.Store, pub ports.EventPublisher) *pharmacy.CheckoutUseCase {
	return pharmacy.NewCheckoutUseCase(store, store.Medicines(), pub, testRetry(), zerolog.Nop())
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckout_PartirEntreLotesFEFO(t *testing.T) {
	store := scenarioStore(t)
	pub := &recordingPublisher{}
	uc := newCheckout(store, pub)

	order, err := uc.Checkout(context.Background(), pharmacist, cart(item("M", 7)))
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "B1", order.Items[0].BatchID)
	assert.Equal(t, int64(5), order.Items[0].Quantity)
	assert.Equal(t, "B2", order.Items[1].BatchID)
	assert.Equal(t, int64(2), order.Items[1].Quantity)
	assert.True(t, order.Items[0].Subtotal.Equal(decimal.NewFromInt(10000)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(14000)), order.TotalAmount.String())
	assert.Equal(t, entity.SaleStatusCompleted, order.Status)
	assert.Equal(t, entity.SaleSourceWalkIn, order.SaleSource)
	assert.Equal(t, "user-1", order.CreatedBy)

	assert.Equal(t, int64(0), qtyOf(t, store, "B1"))
	assert.Equal(t, int64(8), qtyOf(t, store, "B2"))

	snap := store.Snapshot()
	require.Len(t, snap.Orders, 1)
	require.Len(t, snap.Movements, 2)
	for _, m := range snap.Movements {
		assert.Equal(t, entity.MovementTypeOUT, m.Type)
		assert.Equal(t, order.ID, m.TransactionID)
		assert.Negative(t, m.Quantity)
	}

	assert.Equal(t, []string{ports.EventSaleCreated, ports.EventBatchesDepleted}, pub.types())
}

func TestCheckout_StockInsuficienteNoCambiaNada(t *testing.T) {
	store := scenarioStore(t)
	uc := newCheckout(store, nil)
	before := store.Snapshot()

	for i := 0; i < 2; i++ {
		_, err := uc.Checkout(context.Background(), pharmacist, cart(item("M", 20)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

		var insufficient *domain.InsufficientStockError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, "M", insufficient.MedicineID)
		assert.Equal(t, int64(20), insufficient.Requested)
		assert.Equal(t, int64(15), insufficient.Available)
		assert.Equal(t, int64(5), insufficient.Shortfall())

		// fallo idempotente: el estado queda idéntico en cada intento
		assert.Equal(t, before, store.Snapshot())
	}
	assert.Equal(t, int64(5), qtyOf(t, store, "B1"))
	assert.Equal(t, int64(10), qtyOf(t, store, "B2"))
}

func TestCheckout_CarritoCompletoSeRechazaSiUnaLineaFalla(t *testing.T) {
	store := scenarioStore(t)
	seedMedicine(t, store, "N", "Amoxicilina 250mg", 3500)
	seedBatch(t, store, "N1", "N", "2025-01-01", 2)
	uc := newCheckout(store, nil)
	before := store.Snapshot()

	_, err := uc.Checkout(context.Background(), pharmacist, cart(item("M", 3), item("N", 5)))
	require.Error(t, err)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "N", insufficient.MedicineID)

	assert.Equal(t, before, store.Snapshot())
	assert.Equal(t, int64(5), qtyOf(t, store, "B1"))
}

func TestCheckout_MedicamentoDesconocido(t *testing.T) {
	store := scenarioStore(t)
	uc := newCheckout(store, nil)
	before := store.Snapshot()

	_, err := uc.Checkout(context.Background(), pharmacist, cart(item("M", 1), item("GHOST", 1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownMedicine))
	var unknown *domain.UnknownMedicineError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "GHOST", unknown.MedicineID)
	assert.Equal(t, before, store.Snapshot())
}

func TestCheckout_MedicamentoInactivo(t *testing.T) {
	store := scenarioStore(t)
	ctx := context.Background()
	m, err := store.Medicines().GetByID(ctx, "M")
	require.NoError(t, err)
	m.IsActive = false
	require.NoError(t, store.Medicines().Update(ctx, m))

	_, err = newCheckout(store, nil).Checkout(ctx, pharmacist, cart(item("M", 1)))
	assert.ErrorIs(t, err, domain.ErrMedicineInactive)
	assert.Equal(t, int64(5), qtyOf(t, store, "B1"))
}

func TestCheckout_EntradaInvalida(t *testing.T) {
	store := scenarioStore(t)
	uc := newCheckout(store, nil)
	negative := decimal.NewFromInt(-1)

	cases := map[string]dto.CheckoutRequest{
		"carrito vacío":     cart(),
		"cantidad cero":     cart(item("M", 0)),
		"cantidad negativa": cart(item("M", -3)),
		"precio negativo":   cart(dto.CheckoutItemRequest{MedicineID: "M", Quantity: 1, UnitPrice: &negative}),
		"origen inválido":   {SaleSource: "delivery", Items: []dto.CheckoutItemRequest{item("M", 1)}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Checkout(context.Background(), pharmacist, req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Empty(t, store.Snapshot().Orders)
}

func TestCheckout_LineasRepetidasSeConsolidan(t *testing.T) {
	store := scenarioStore(t)
	uc := newCheckout(store, nil)

	order, err := uc.Checkout(context.Background(), pharmacist, cart(item("M", 4), item("M", 3)))
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "B1", order.Items[0].BatchID)
	assert.Equal(t, int64(5), order.Items[0].Quantity)
	assert.Equal(t, int64(2), order.Items[1].Quantity)
	assert.Equal(t, int64(8), qtyOf(t, store, "B2"))
}

func TestCheckout_LineasRepetidasConPrecioDistinto(t *testing.T) {
	store := scenarioStore(t)
	p1, p2 := decimal.NewFromInt(1000), decimal.NewFromInt(1500)
	_, err := newCheckout(store, nil).Checkout(context.Background(), pharmacist, cart(
		dto.CheckoutItemRequest{MedicineID: "M", Quantity: 1, UnitPrice: &p1},
		dto.CheckoutItemRequest{MedicineID: "M", Quantity: 1, UnitPrice: &p2},
	))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckout_PrecioExplicitoYPacienteDeClinica(t *testing.T) {
	store := scenarioStore(t)
	free := decimal.Zero
	order, err := newCheckout(store, nil).Checkout(context.Background(), pharmacist, dto.CheckoutRequest{
		PatientID: "patient-9",
		Items:     []dto.CheckoutItemRequest{{MedicineID: "M", Quantity: 2, UnitPrice: &free}},
	})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.IsZero())
	require.NotNil(t, order.PatientID)
	assert.Equal(t, "patient-9", *order.PatientID)
	assert.Equal(t, entity.SaleSourceClinic, order.SaleSource)
	assert.Equal(t, pharmacy.DefaultWalkInName, order.PatientName)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

// interleavingRunner deja que otra venta confirme entre la lectura y el commit del primer intento.
type interleavingRunner struct {
	inner  pharmacy.TxRunner
	once   sync.Once
	during func()
	calls  int
}

func (r *interleavingRunner) Run(ctx context.Context, fn func(pharmacy.TxRepos) error) error {
	r.calls++
	return r.inner.Run(ctx, func(repos pharmacy.TxRepos) error {
		if err := fn(repos); err != nil {
			return err
		}
		r.once.Do(r.during)
		return nil
	})
}

func TestCheckout_ConflictoSeReintentaYTerminaEnStockInsuficiente(t *testing.T) {
	store := memory.NewStore()
	seedMedicine(t, store, "N", "Ibuprofeno 400mg", 3000)
	seedBatch(t, store, "N1", "N", "2025-03-01", 3)
	ctx := context.Background()

	var rivalErr error
	runner := &interleavingRunner{inner: store}
	runner.during = func() {
		_, rivalErr = newCheckout(store, nil).Checkout(ctx, pharmacist, cart(item("N", 2)))
	}
	uc := pharmacy.NewCheckoutUseCase(runner, store.Medicines(), nil, testRetry(), zerolog.Nop())

	_, err := uc.Checkout(ctx, pharmacist, cart(item("N", 2)))
	require.NoError(t, rivalErr)
	require.Error(t, err)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(1), insufficient.Available)

	assert.Equal(t, 2, runner.calls, "el primer intento choca y el segundo relee el lote")
	assert.Equal(t, int64(1), qtyOf(t, store, "N1"))
	assert.Len(t, store.Snapshot().Orders, 1)
}

func TestCheckout_VentasConcurrentesNuncaDescuentanDeMas(t *testing.T) {
	store := memory.NewStore()
	seedMedicine(t, store, "N", "Ibuprofeno 400mg", 3000)
	seedBatch(t, store, "N1", "N", "2025-03-01", 3)
	uc := pharmacy.NewCheckoutUseCase(store, store.Medicines(), nil,
		pharmacy.RetryConfig{MaxAttempts: 5, Backoff: time.Millisecond}, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Checkout(context.Background(), pharmacist, cart(item("N", 2)))
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(1), qtyOf(t, store, "N1"))
	assert.Len(t, store.Snapshot().Orders, 1)
}

type alwaysConflict struct{ calls int }

func (r *alwaysConflict) Run(context.Context, func(pharmacy.TxRepos) error) error {
	r.calls++
	return domain.ErrConflict
}

func TestCheckout_ConflictoPersistenteSeVuelveTransitorio(t *testing.T) {
	store := scenarioStore(t)
	runner := &alwaysConflict{}
	uc := pharmacy.NewCheckoutUseCase(runner, store.Medicines(), nil, testRetry(), zerolog.Nop())

	_, err := uc.Checkout(context.Background(), pharmacist, cart(item("M", 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransientStorageConflict)
	assert.Equal(t, 3, runner.calls)
}

func TestCheckout_FalloDePublicacionNoRevierteLaVenta(t *testing.T) {
	store := scenarioStore(t)
	pub := &recordingPublisher{err: errors.New("redis caído")}

	order, err := newCheckout(store, pub).Checkout(context.Background(), pharmacist, cart(item("M", 1)))
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, int64(4), qtyOf(t, store, "B1"))
	assert.Len(t, pub.types(), 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckout_ConservacionYOrdenFEFO(t *testing.T) {
	for requested := int64(1); requested <= 15; requested++ {
		store := scenarioStore(t)
		order, err := newCheckout(store, nil).Checkout(context.Background(), pharmacist, cart(item("M", requested)))
		require.NoError(t, err, "requested=%d", requested)

		var sum int64
		for _, it := range order.Items {
			sum += it.Quantity
		}
		assert.Equal(t, requested, sum)

		b1, b2 := qtyOf(t, store, "B1"), qtyOf(t, store, "B2")
		assert.GreaterOrEqual(t, b1, int64(0))
		assert.GreaterOrEqual(t, b2, int64(0))
		if b2 < 10 {
			assert.Equal(t, int64(0), b1, "B2 no se toca antes de agotar B1")
		}
		assert.Equal(t, int64(15)-requested, b1+b2)
	}
}
