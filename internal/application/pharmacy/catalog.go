package pharmacy

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

// Valores por defecto de la importación masiva.
const (
	importDefaultUnit     = "Viên"
	importDefaultCategory = "Tổng hợp"
	importDefaultMinStock = 10
)

// CatalogUseCase orquesta el catálogo de medicamentos.
type CatalogUseCase struct {
	repo   repository.MedicineRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(repo repository.MedicineRepository, logger zerolog.Logger) *CatalogUseCase {
	return &CatalogUseCase{repo: repo, logger: logger, now: time.Now}
}

// Create registra un medicamento activo. SKU repetido → domain.ErrDuplicate.
func (uc *CatalogUseCase) Create(ctx context.Context, in dto.CreateMedicineRequest) (*dto.MedicineResponse, error) {
	name, sku := strings.TrimSpace(in.Name), strings.TrimSpace(in.SKU)
	if name == "" || sku == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.SellPrice.IsNegative() || in.CostPrice.IsNegative() || in.MinStockLevel < 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.BoxToBlister < 0 || in.BlisterToUnit < 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := checkBoxPrice(in.BoxPrice, !in.SellPrice.IsZero()); err != nil {
		return nil, err
	}
	now := uc.now()
	m := &entity.Medicine{
		ID:            uuid.New().String(),
		Name:          name,
		SKU:           sku,
		Unit:          strings.TrimSpace(in.Unit),
		Usage:         in.Usage,
		Category:      strings.TrimSpace(in.Category),
		Description:   in.Description,
		Manufacturer:  in.Manufacturer,
		MinStockLevel: in.MinStockLevel,
		IsActive:      true,
		SellPrice:     in.SellPrice,
		CostPrice:     in.CostPrice,
		Packaging:     entity.Packaging{BoxToBlister: in.BoxToBlister, BlisterToUnit: in.BlisterToUnit},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.BoxPrice != nil {
		m.SellPrice = m.UnitPriceFromBox(*in.BoxPrice)
	}
	if err := uc.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	out := toMedicineResponse(m)
	return &out, nil
}

// Get obtiene un medicamento por ID.
func (uc *CatalogUseCase) Get(ctx context.Context, id string) (*dto.MedicineResponse, error) {
	m, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toMedicineResponse(m)
	return &out, nil
}

// Update aplica solo los campos presentes.
func (uc *CatalogUseCase) Update(ctx context.Context, id string, in dto.UpdateMedicineRequest) (*dto.MedicineResponse, error) {
	m, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.ErrInvalidInput
		}
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Unit != nil {
		m.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.Usage != nil {
		m.Usage = *in.Usage
	}
	if in.Category != nil {
		m.Category = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.Manufacturer != nil {
		m.Manufacturer = *in.Manufacturer
	}
	if in.MinStockLevel != nil {
		if *in.MinStockLevel < 0 {
			return nil, domain.ErrInvalidInput
		}
		m.MinStockLevel = *in.MinStockLevel
	}
	if in.SellPrice != nil {
		if in.SellPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		m.SellPrice = *in.SellPrice
	}
	if in.CostPrice != nil {
		if in.CostPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		m.CostPrice = *in.CostPrice
	}
	if in.BoxToBlister != nil {
		m.Packaging.BoxToBlister = max(*in.BoxToBlister, 0)
	}
	if in.BlisterToUnit != nil {
		m.Packaging.BlisterToUnit = max(*in.BlisterToUnit, 0)
	}
	if err := checkBoxPrice(in.BoxPrice, in.SellPrice != nil); err != nil {
		return nil, err
	}
	if in.BoxPrice != nil {
		// con el empaque ya actualizado
		m.SellPrice = m.UnitPriceFromBox(*in.BoxPrice)
	}
	m.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	out := toMedicineResponse(m)
	return &out, nil
}

// List lista el catálogo paginado.
func (uc *CatalogUseCase) List(ctx context.Context, q dto.MedicineQuery) (*dto.MedicineListResponse, error) {
	q.DefaultPage()
	items, err := uc.repo.List(ctx, repository.MedicineFilter{
		ActiveOnly: !q.IncludeInactive,
		Category:   q.Category,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.MedicineResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMedicineResponse(m))
	}
	return &dto.MedicineListResponse{Items: out, Page: dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Count: len(out)}}, nil
}

// Deactivate baja lógica: el medicamento deja de poder venderse pero conserva su historial.
func (uc *CatalogUseCase) Deactivate(ctx context.Context, id string) (*dto.MedicineResponse, error) {
	m, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsActive {
		m.IsActive = false
		m.UpdatedAt = uc.now()
		if err := uc.repo.Update(ctx, m); err != nil {
			return nil, err
		}
	}
	out := toMedicineResponse(m)
	return &out, nil
}

// checkBoxPrice rechaza precios por caja negativos o enviados junto con sell_price.
func checkBoxPrice(boxPrice *decimal.Decimal, hasSellPrice bool) error {
	if boxPrice == nil {
		return nil
	}
	if boxPrice.IsNegative() {
		return fmt.Errorf("%w: box_price negativo", domain.ErrInvalidInput)
	}
	if hasSellPrice {
		return fmt.Errorf("%w: enviar sell_price o box_price, no ambos", domain.ErrInvalidInput)
	}
	return nil
}

// Delete borra el medicamento solo si ningún lote ni orden lo referencia.
func (uc *CatalogUseCase) Delete(ctx context.Context, id string) error {
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return err
	}
	used, err := uc.repo.HasReferences(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return domain.ErrMedicineInUse
	}
	return uc.repo.Delete(ctx, id)
}

// Search busca por nombre o SKU sin distinguir mayúsculas ni tildes. Solo medicamentos activos.
func (uc *CatalogUseCase) Search(ctx context.Context, term string, limit int) ([]dto.MedicineResponse, error) {
	needle := FoldSearch(term)
	if needle == "" {
		return []dto.MedicineResponse{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	all, err := uc.repo.List(ctx, repository.MedicineFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	out := make([]dto.MedicineResponse, 0, limit)
	for _, m := range all {
		if strings.Contains(FoldSearch(m.Name), needle) || strings.Contains(FoldSearch(m.SKU), needle) {
			out = append(out, toMedicineResponse(m))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ImportCSV carga medicamentos desde filas sku,name,unit,category,price.
// La cabecera es opcional. Un SKU ya existente se omite; una fila sin nombre o con precio ilegible falla.
func (uc *CatalogUseCase) ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	summary := &dto.ImportSummary{}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("%w: csv: %v", domain.ErrInvalidInput, err)
		}
		line, _ = reader.FieldPos(0)
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")), "sku") {
			continue
		}
		if blankRecord(record) {
			continue
		}
		m, reason := medicineFromRecord(record)
		if m == nil {
			summary.Failed = append(summary.Failed, dto.ImportIssue{Line: line, SKU: field(record, 0), Reason: reason})
			continue
		}
		if _, err := uc.repo.GetBySKU(ctx, m.SKU); err == nil {
			summary.Skipped = append(summary.Skipped, dto.ImportIssue{Line: line, SKU: m.SKU, Reason: "sku ya existe"})
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return summary, err
		}
		now := uc.now()
		m.ID = uuid.New().String()
		m.CreatedAt, m.UpdatedAt = now, now
		if err := uc.repo.Create(ctx, m); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				summary.Skipped = append(summary.Skipped, dto.ImportIssue{Line: line, SKU: m.SKU, Reason: "sku ya existe"})
				continue
			}
			return summary, err
		}
		summary.Created++
	}
	uc.logger.Info().Int("created", summary.Created).Int("skipped", len(summary.Skipped)).
		Int("failed", len(summary.Failed)).Msg("importación de medicamentos finalizada")
	return summary, nil
}

func medicineFromRecord(record []string) (*entity.Medicine, string) {
	sku, name := field(record, 0), field(record, 1)
	if name == "" {
		return nil, "nombre requerido"
	}
	if sku == "" {
		return nil, "sku requerido"
	}
	unit := field(record, 2)
	if unit == "" {
		unit = importDefaultUnit
	}
	category := field(record, 3)
	if category == "" {
		category = importDefaultCategory
	}
	price := decimal.Zero
	if raw := field(record, 4); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil || p.IsNegative() {
			return nil, fmt.Sprintf("precio inválido %q", raw)
		}
		price = p
	}
	return &entity.Medicine{
		Name:          name,
		SKU:           sku,
		Unit:          unit,
		Category:      category,
		MinStockLevel: importDefaultMinStock,
		IsActive:      true,
		SellPrice:     price,
	}, ""
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// FoldSearch normaliza un texto para búsqueda: minúsculas y sin diacríticos (incluye đ → d).
func FoldSearch(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.NewReplacer("đ", "d", "Đ", "d").Replace(folded)
	return strings.ToLower(strings.TrimSpace(folded))
}
