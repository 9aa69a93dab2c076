// Package analytics contiene los reportes de ingresos de la farmacia.
package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

const dateLayout = "2006-01-02"

// RevenueUseCase ingresos diarios de farmacia en la zona horaria de la clínica.
type RevenueUseCase struct {
	orderRepo    repository.SaleOrderRepository
	medicineRepo repository.MedicineRepository
	loc          *time.Location
}

// NewRevenueUseCase construye el caso de uso. loc nil = UTC.
func NewRevenueUseCase(orderRepo repository.SaleOrderRepository, medicineRepo repository.MedicineRepository, loc *time.Location) *RevenueUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &RevenueUseCase{orderRepo: orderRepo, medicineRepo: medicineRepo, loc: loc}
}

// DailyRevenue totales del día local (YYYY-MM-DD): ingreso, número de órdenes, ingreso por origen,
// detalle por medicamento (mayor importe primero) y transacciones (más recientes primero).
// Las órdenes canceladas no suman.
func (uc *RevenueUseCase) DailyRevenue(ctx context.Context, day string) (*dto.DailyRevenueReport, error) {
	start, err := time.ParseInLocation(dateLayout, day, uc.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha %q", domain.ErrInvalidInput, day)
	}
	end := start.AddDate(0, 0, 1)

	// Órdenes y catálogo en paralelo
	var (
		orders    []*entity.SaleOrder
		medicines []*entity.Medicine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = uc.orderRepo.ListByPeriod(gctx, start, end)
		if err != nil {
			return fmt.Errorf("revenue: órdenes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		medicines, err = uc.medicineRepo.List(gctx, repository.MedicineFilter{})
		if err != nil {
			return fmt.Errorf("revenue: catálogo: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := make(map[string]*entity.Medicine, len(medicines))
	for _, m := range medicines {
		catalog[m.ID] = m
	}

	report := &dto.DailyRevenueReport{
		Date:         start.Format(dateLayout),
		Timezone:     uc.loc.String(),
		TotalRevenue: decimal.Zero,
		BySource: map[string]decimal.Decimal{
			entity.SaleSourceWalkIn: decimal.Zero,
			entity.SaleSourceClinic: decimal.Zero,
			entity.SaleSourceOnline: decimal.Zero,
		},
		ByMedicine:   []dto.MedicineRevenueLine{},
		Transactions: []dto.RevenueTransaction{},
	}
	lines := map[string]*dto.MedicineRevenueLine{}
	for _, o := range orders {
		if o.Status == entity.SaleStatusCancelled {
			continue
		}
		report.OrderCount++
		report.TotalRevenue = report.TotalRevenue.Add(o.TotalAmount)
		report.BySource[o.SaleSource] = report.BySource[o.SaleSource].Add(o.TotalAmount)
		report.Transactions = append(report.Transactions, dto.RevenueTransaction{
			SaleID:      o.ID,
			CreatedAt:   o.CreatedAt.In(uc.loc),
			PatientName: o.PatientName,
			SaleSource:  o.SaleSource,
			Total:       o.TotalAmount,
		})
		for _, it := range o.Items {
			line, ok := lines[it.MedicineID]
			if !ok {
				line = &dto.MedicineRevenueLine{MedicineID: it.MedicineID, Name: it.MedicineID, Amount: decimal.Zero}
				if m, found := catalog[it.MedicineID]; found {
					line.Name, line.SKU = m.Name, m.SKU
				}
				lines[it.MedicineID] = line
			}
			line.Quantity += it.Quantity
			line.Amount = line.Amount.Add(it.Subtotal)
		}
	}

	for _, l := range lines {
		report.ByMedicine = append(report.ByMedicine, *l)
	}
	sort.Slice(report.ByMedicine, func(i, j int) bool {
		a, b := report.ByMedicine[i], report.ByMedicine[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
	sort.SliceStable(report.Transactions, func(i, j int) bool {
		return report.Transactions[i].CreatedAt.After(report.Transactions[j].CreatedAt)
	})
	return report, nil
}

// ExportDailyRevenueCSV escribe el detalle por medicamento del día con BOM UTF-8 (para Excel)
// y una fila final de total.
func (uc *RevenueUseCase) ExportDailyRevenueCSV(ctx context.Context, day string, w io.Writer) error {
	report, err := uc.DailyRevenue(ctx, day)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	rows := [][]string{{"date", "sku", "medicine", "quantity", "amount"}}
	for _, l := range report.ByMedicine {
		rows = append(rows, []string{report.Date, l.SKU, l.Name, fmt.Sprintf("%d", l.Quantity), l.Amount.StringFixed(0)})
	}
	rows = append(rows, []string{report.Date, "", "TOTAL", "", report.TotalRevenue.StringFixed(0)})
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("revenue: escribir csv: %w", err)
	}
	return nil
}
