package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/inventory"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

var (
	_ repository.MedicineRepository          = (*MedicineRepo)(nil)
	_ repository.BatchRepository             = (*BatchRepo)(nil)
	_ repository.SaleOrderRepository         = (*SaleOrderRepo)(nil)
	_ repository.InventoryMovementRepository = (*MovementRepo)(nil)
	_ repository.UserRepository              = (*UserRepo)(nil)
)

// unit ejecuta fn en la transacción del repo o, si no tiene, en una autocommit.
func unit(s *Store, tx *txn, fn func(t *txn) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.autocommit(fn)
}

// ── Medicamentos ─────────────────────────────────────────────────────────────

// MedicineRepo catálogo en memoria.
type MedicineRepo struct {
	s  *Store
	tx *txn
}

func (r *MedicineRepo) Create(ctx context.Context, m *entity.Medicine) error {
	return unit(r.s, r.tx, func(t *txn) error {
		for _, other := range t.allMedicines() {
			if other.ID == m.ID || other.SKU == m.SKU {
				return domain.ErrDuplicate
			}
		}
		c := *m
		t.meds[m.ID] = &c
		t.created[medKey(m.ID)] = true
		return nil
	})
}

func (r *MedicineRepo) GetByID(ctx context.Context, id string) (*entity.Medicine, error) {
	var out *entity.Medicine
	err := unit(r.s, r.tx, func(t *txn) error {
		m, ok := t.medicine(id)
		if !ok {
			return domain.ErrNotFound
		}
		out = m
		return nil
	})
	return out, err
}

func (r *MedicineRepo) GetBySKU(ctx context.Context, sku string) (*entity.Medicine, error) {
	var out *entity.Medicine
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, m := range t.allMedicines() {
			if m.SKU == sku {
				out = m
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *MedicineRepo) Update(ctx context.Context, m *entity.Medicine) error {
	return unit(r.s, r.tx, func(t *txn) error {
		if _, ok := t.medicine(m.ID); !ok {
			return domain.ErrNotFound
		}
		c := *m
		t.meds[m.ID] = &c
		return nil
	})
}

func (r *MedicineRepo) List(ctx context.Context, f repository.MedicineFilter) ([]*entity.Medicine, error) {
	var out []*entity.Medicine
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, m := range t.allMedicines() {
			if f.ActiveOnly && !m.IsActive {
				continue
			}
			if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
				continue
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page(out, f.Limit, f.Offset), nil
}

func (r *MedicineRepo) HasReferences(ctx context.Context, id string) (bool, error) {
	used := false
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, b := range t.allBatches() {
			if b.MedicineID == id {
				used = true
				return nil
			}
		}
		for _, o := range t.allOrders() {
			for _, it := range o.Items {
				if it.MedicineID == id {
					used = true
					return nil
				}
			}
		}
		return nil
	})
	return used, err
}

func (r *MedicineRepo) Delete(ctx context.Context, id string) error {
	return unit(r.s, r.tx, func(t *txn) error {
		if _, ok := t.medicine(id); !ok {
			return domain.ErrNotFound
		}
		t.meds[id] = nil
		return nil
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ── Lotes ────────────────────────────────────────────────────────────────────

// BatchRepo lotes en memoria.
type BatchRepo struct {
	s  *Store
	tx *txn
}

func (r *BatchRepo) Create(ctx context.Context, b *entity.InventoryBatch) error {
	if b.CurrentQuantity < 0 || b.CurrentQuantity > b.OriginalQuantity {
		return domain.ErrInvalidInput
	}
	return unit(r.s, r.tx, func(t *txn) error {
		if _, ok := t.batch(b.ID); ok {
			return domain.ErrDuplicate
		}
		c := *b
		t.batches[b.ID] = &c
		t.created[batchKey(b.ID)] = true
		return nil
	})
}

func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error) {
	var out *entity.InventoryBatch
	err := unit(r.s, r.tx, func(t *txn) error {
		b, ok := t.batch(id)
		if !ok {
			return domain.ErrNotFound
		}
		out = b
		return nil
	})
	return out, err
}

func (r *BatchRepo) ListAvailableByMedicine(ctx context.Context, medicineID string) ([]*entity.InventoryBatch, error) {
	return r.ListByMedicine(ctx, medicineID, false)
}

func (r *BatchRepo) ListByMedicine(ctx context.Context, medicineID string, includeDepleted bool) ([]*entity.InventoryBatch, error) {
	var out []*entity.InventoryBatch
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, b := range t.allBatches() {
			if b.MedicineID != medicineID {
				continue
			}
			if !includeDepleted && b.CurrentQuantity <= 0 {
				continue
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	inventory.SortFEFO(out)
	return out, nil
}

func (r *BatchRepo) ListExpiringBefore(ctx context.Context, before time.Time) ([]*entity.InventoryBatch, error) {
	cutoff := entity.CalendarDate(before)
	var out []*entity.InventoryBatch
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, b := range t.allBatches() {
			if b.CurrentQuantity > 0 && entity.CalendarDate(b.ExpiryDate).Before(cutoff) {
				out = append(out, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	inventory.SortFEFO(out)
	return out, nil
}

// DecrementQuantity descuento condicional: falla con domain.ErrConflict si la cantidad ya no es expected.
func (r *BatchRepo) DecrementQuantity(ctx context.Context, batchID string, expected, by int64) error {
	return unit(r.s, r.tx, func(t *txn) error {
		b, ok := t.batch(batchID)
		if !ok {
			return domain.ErrNotFound
		}
		if b.CurrentQuantity != expected {
			return domain.ErrConflict
		}
		if by <= 0 || by > b.CurrentQuantity {
			return domain.ErrInvalidInput
		}
		b.CurrentQuantity -= by
		b.UpdatedAt = time.Now()
		t.batches[batchID] = b
		return nil
	})
}

func (r *BatchRepo) TotalsByMedicine(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, b := range t.allBatches() {
			out[b.MedicineID] += b.CurrentQuantity
		}
		return nil
	})
	return out, err
}

// ── Ventas ───────────────────────────────────────────────────────────────────

// SaleOrderRepo órdenes de venta en memoria.
type SaleOrderRepo struct {
	s  *Store
	tx *txn
}

func (r *SaleOrderRepo) Create(ctx context.Context, o *entity.SaleOrder) error {
	return unit(r.s, r.tx, func(t *txn) error {
		t.orders = append(t.orders, cloneOrder(*o))
		return nil
	})
}

func (r *SaleOrderRepo) GetByID(ctx context.Context, id string) (*entity.SaleOrder, error) {
	var out *entity.SaleOrder
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, o := range t.allOrders() {
			if o.ID == id {
				out = &o
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *SaleOrderRepo) ListByPeriod(ctx context.Context, from, to time.Time) ([]*entity.SaleOrder, error) {
	var out []*entity.SaleOrder
	err := unit(r.s, r.tx, func(t *txn) error {
		for _, o := range t.allOrders() {
			if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
				out = append(out, &o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ── Movimientos ──────────────────────────────────────────────────────────────

// MovementRepo kardex en memoria.
type MovementRepo struct {
	s  *Store
	tx *txn
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	return unit(r.s, r.tx, func(t *txn) error {
		t.moves = append(t.moves, *m)
		return nil
	})
}

func (r *MovementRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.InventoryMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.InventoryMovement
	for _, m := range r.s.movements {
		if m.BatchID == batchID {
			c := m
			out = append(out, &c)
		}
	}
	if r.tx != nil {
		for _, m := range r.tx.moves {
			if m.BatchID == batchID {
				c := m
				out = append(out, &c)
			}
		}
	}
	return out, nil
}

// ── Usuarios ─────────────────────────────────────────────────────────────────

// UserRepo personal en memoria.
type UserRepo struct {
	s  *Store
	tx *txn
}

func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	return unit(r.s, r.tx, func(t *txn) error {
		t.users = append(t.users, *u)
		return nil
	})
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, username) {
			c := u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
