// Package memory implementa los puertos de persistencia en memoria con transacciones optimistas.
// Se usa con STORE_DRIVER=memory y en las pruebas.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

var _ pharmacy.TxRunner = (*Store)(nil)

// Store estado confirmado. Cada entidad modificable lleva una versión que se incrementa en cada commit.
type Store struct {
	mu        sync.RWMutex
	medicines map[string]entity.Medicine
	batches   map[string]entity.InventoryBatch
	orders    map[string]entity.SaleOrder
	movements []entity.InventoryMovement
	users     map[string]entity.User
	versions  map[string]uint64
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		medicines: make(map[string]entity.Medicine),
		batches:   make(map[string]entity.InventoryBatch),
		orders:    make(map[string]entity.SaleOrder),
		users:     make(map[string]entity.User),
		versions:  make(map[string]uint64),
	}
}

// Run ejecuta fn con repositorios atados a una transacción nueva.
// Las escrituras se aplican en el commit solo si ninguna entidad leída y escrita cambió entretanto;
// si no, devuelve domain.ErrConflict y no aplica nada.
func (s *Store) Run(ctx context.Context, fn func(repos pharmacy.TxRepos) error) error {
	t := s.begin()
	if err := fn(t.repos()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

// Medicines repositorio de catálogo en modo autocommit.
func (s *Store) Medicines() *MedicineRepo { return &MedicineRepo{s: s} }

// Batches repositorio de lotes en modo autocommit.
func (s *Store) Batches() *BatchRepo { return &BatchRepo{s: s} }

// Orders repositorio de ventas en modo autocommit.
func (s *Store) Orders() *SaleOrderRepo { return &SaleOrderRepo{s: s} }

// Movements repositorio de movimientos en modo autocommit.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Users repositorio de usuarios en modo autocommit.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Snapshot copia profunda del estado confirmado de lotes y ventas.
type Snapshot struct {
	Batches   map[string]entity.InventoryBatch
	Orders    map[string]entity.SaleOrder
	Movements []entity.InventoryMovement
}

// Snapshot devuelve una copia del estado confirmado.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Batches:   make(map[string]entity.InventoryBatch, len(s.batches)),
		Orders:    make(map[string]entity.SaleOrder, len(s.orders)),
		Movements: append([]entity.InventoryMovement(nil), s.movements...),
	}
	for id, b := range s.batches {
		snap.Batches[id] = b
	}
	for id, o := range s.orders {
		snap.Orders[id] = cloneOrder(o)
	}
	return snap
}

func medKey(id string) string   { return "medicine:" + id }
func batchKey(id string) string { return "batch:" + id }

func cloneOrder(o entity.SaleOrder) entity.SaleOrder {
	o.Items = append([]entity.SaleOrderItem(nil), o.Items...)
	if o.PatientID != nil {
		id := *o.PatientID
		o.PatientID = &id
	}
	return o
}

// txn unidad de trabajo: lecturas del estado confirmado superpuestas con las escrituras pendientes.
type txn struct {
	s       *Store
	reads   map[string]uint64
	meds    map[string]*entity.Medicine // nil = borrado
	created map[string]bool
	batches map[string]*entity.InventoryBatch
	orders  []entity.SaleOrder
	moves   []entity.InventoryMovement
	users   []entity.User
}

func (s *Store) begin() *txn {
	return &txn{
		s:       s,
		reads:   make(map[string]uint64),
		meds:    make(map[string]*entity.Medicine),
		created: make(map[string]bool),
		batches: make(map[string]*entity.InventoryBatch),
	}
}

// autocommit ejecuta fn en una transacción propia y la confirma.
func (s *Store) autocommit(fn func(t *txn) error) error {
	t := s.begin()
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

func (t *txn) repos() pharmacy.TxRepos {
	return pharmacy.TxRepos{
		Medicines: &MedicineRepo{s: t.s, tx: t},
		Batches:   &BatchRepo{s: t.s, tx: t},
		Orders:    &SaleOrderRepo{s: t.s, tx: t},
		Movements: &MovementRepo{s: t.s, tx: t},
	}
}

// track registra la versión leída la primera vez que la transacción ve la entidad.
// Llamar con el lock de lectura tomado.
func (t *txn) track(key string) {
	if _, ok := t.reads[key]; !ok {
		t.reads[key] = t.s.versions[key]
	}
}

func (t *txn) medicine(id string) (*entity.Medicine, bool) {
	if m, ok := t.meds[id]; ok {
		if m == nil {
			return nil, false
		}
		c := *m
		return &c, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	m, ok := t.s.medicines[id]
	if !ok {
		return nil, false
	}
	t.track(medKey(id))
	return &m, true
}

func (t *txn) allMedicines() []*entity.Medicine {
	t.s.mu.RLock()
	out := make([]*entity.Medicine, 0, len(t.s.medicines)+len(t.meds))
	for id, m := range t.s.medicines {
		if _, staged := t.meds[id]; staged {
			continue
		}
		t.track(medKey(id))
		c := m
		out = append(out, &c)
	}
	t.s.mu.RUnlock()
	for _, m := range t.meds {
		if m != nil {
			c := *m
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *txn) batch(id string) (*entity.InventoryBatch, bool) {
	if b, ok := t.batches[id]; ok {
		c := *b
		return &c, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.batches[id]
	if !ok {
		return nil, false
	}
	t.track(batchKey(id))
	return &b, true
}

func (t *txn) allBatches() []*entity.InventoryBatch {
	t.s.mu.RLock()
	out := make([]*entity.InventoryBatch, 0, len(t.s.batches)+len(t.batches))
	for id, b := range t.s.batches {
		if _, staged := t.batches[id]; staged {
			continue
		}
		t.track(batchKey(id))
		c := b
		out = append(out, &c)
	}
	t.s.mu.RUnlock()
	for _, b := range t.batches {
		c := *b
		out = append(out, &c)
	}
	return out
}

func (t *txn) allOrders() []entity.SaleOrder {
	t.s.mu.RLock()
	out := make([]entity.SaleOrder, 0, len(t.s.orders)+len(t.orders))
	for _, o := range t.s.orders {
		out = append(out, cloneOrder(o))
	}
	t.s.mu.RUnlock()
	for _, o := range t.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

func (t *txn) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validar antes de aplicar: o se aplica todo o nada.
	for id := range t.meds {
		key := medKey(id)
		if t.created[key] {
			if _, exists := s.medicines[id]; exists {
				return domain.ErrDuplicate
			}
		} else if v, read := t.reads[key]; read && s.versions[key] != v {
			return domain.ErrConflict
		} else if _, exists := s.medicines[id]; !exists {
			return domain.ErrConflict
		}
		if m := t.meds[id]; m != nil {
			for otherID, other := range s.medicines {
				if otherID != id && other.SKU == m.SKU {
					return domain.ErrDuplicate
				}
			}
		}
	}
	for id := range t.batches {
		key := batchKey(id)
		if t.created[key] {
			if _, exists := s.batches[id]; exists {
				return domain.ErrDuplicate
			}
			continue
		}
		if v, read := t.reads[key]; read && s.versions[key] != v {
			return domain.ErrConflict
		}
	}
	for _, o := range t.orders {
		if _, exists := s.orders[o.ID]; exists {
			return domain.ErrDuplicate
		}
	}
	for _, u := range t.users {
		for _, other := range s.users {
			if other.ID == u.ID {
				return domain.ErrDuplicate
			}
			if strings.EqualFold(other.Username, u.Username) {
				return domain.ErrUsernameAlreadyExists
			}
		}
	}

	for id, m := range t.meds {
		if m == nil {
			delete(s.medicines, id)
		} else {
			s.medicines[id] = *m
		}
		s.versions[medKey(id)]++
	}
	for id, b := range t.batches {
		s.batches[id] = *b
		s.versions[batchKey(id)]++
	}
	for _, o := range t.orders {
		s.orders[o.ID] = cloneOrder(o)
	}
	s.movements = append(s.movements, t.moves...)
	for _, u := range t.users {
		s.users[u.ID] = u
	}
	return nil
}
