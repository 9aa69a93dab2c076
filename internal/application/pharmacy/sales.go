package pharmacy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

// ReceiptLine línea del comprobante con los datos de catálogo y lote ya resueltos.
type ReceiptLine struct {
	MedicineName string
	Unit         string
	BatchNumber  string
	ExpiryDate   time.Time
	Quantity     int64
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
}

// ReceiptData todo lo que necesita el generador para imprimir una venta.
type ReceiptData struct {
	ClinicName  string
	Order       *entity.SaleOrder
	CashierName string
	Lines       []ReceiptLine
	Location    *time.Location
}

// ReceiptPDFGenerator puerto de salida para renderizar el comprobante de venta.
type ReceiptPDFGenerator interface {
	GenerateReceiptPDF(ctx context.Context, data ReceiptData) ([]byte, error)
}

// SalesUseCase consultas de ventas y comprobantes.
type SalesUseCase struct {
	orderRepo    repository.SaleOrderRepository
	medicineRepo repository.MedicineRepository
	batchRepo    repository.BatchRepository
	userRepo     repository.UserRepository
	generator    ReceiptPDFGenerator
	clinicName   string
	loc          *time.Location
}

// NewSalesUseCase construye el caso de uso. userRepo y generator pueden ser nil.
func NewSalesUseCase(
	orderRepo repository.SaleOrderRepository,
	medicineRepo repository.MedicineRepository,
	batchRepo repository.BatchRepository,
	userRepo repository.UserRepository,
	generator ReceiptPDFGenerator,
	clinicName string,
	loc *time.Location,
) *SalesUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &SalesUseCase{
		orderRepo:    orderRepo,
		medicineRepo: medicineRepo,
		batchRepo:    batchRepo,
		userRepo:     userRepo,
		generator:    generator,
		clinicName:   clinicName,
		loc:          loc,
	}
}

// Get obtiene una venta por ID.
func (uc *SalesUseCase) Get(ctx context.Context, id string) (*dto.SaleOrderResponse, error) {
	o, err := uc.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSaleOrderResponse(o), nil
}

// List ventas entre dos fechas locales (ambas inclusive), más recientes primero.
// Sin fechas devuelve las del día actual.
func (uc *SalesUseCase) List(ctx context.Context, q dto.SalesQuery, now time.Time) ([]dto.SaleOrderResponse, error) {
	from, to, err := uc.period(q, now)
	if err != nil {
		return nil, err
	}
	orders, err := uc.orderRepo.ListByPeriod(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SaleOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, *toSaleOrderResponse(o))
	}
	return out, nil
}

func (uc *SalesUseCase) period(q dto.SalesQuery, now time.Time) (time.Time, time.Time, error) {
	y, m, d := now.In(uc.loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, uc.loc)
	to := from.AddDate(0, 0, 1)
	if q.From != "" {
		f, err := time.ParseInLocation(dateLayout, q.From, uc.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from %q", domain.ErrInvalidInput, q.From)
		}
		from = f
		if q.To == "" {
			to = from.AddDate(0, 0, 1)
		}
	}
	if q.To != "" {
		t, err := time.ParseInLocation(dateLayout, q.To, uc.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to %q", domain.ErrInvalidInput, q.To)
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: rango de fechas vacío", domain.ErrInvalidInput)
	}
	return from, to, nil
}

// ReceiptPDF genera el comprobante imprimible de una venta.
func (uc *SalesUseCase) ReceiptPDF(ctx context.Context, saleID string) (pdfBytes []byte, filename string, err error) {
	if uc.generator == nil {
		return nil, "", fmt.Errorf("receipt: generador PDF no configurado")
	}
	o, err := uc.orderRepo.GetByID(ctx, saleID)
	if err != nil {
		return nil, "", err
	}

	meds := map[string]*entity.Medicine{}
	lines := make([]ReceiptLine, 0, len(o.Items))
	for _, it := range o.Items {
		med, ok := meds[it.MedicineID]
		if !ok {
			if med, err = uc.medicineRepo.GetByID(ctx, it.MedicineID); err != nil {
				med = &entity.Medicine{ID: it.MedicineID, Name: it.MedicineID}
			}
			meds[it.MedicineID] = med
		}
		line := ReceiptLine{
			MedicineName: med.Name,
			Unit:         med.Unit,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			Subtotal:     it.Subtotal,
		}
		if b, bErr := uc.batchRepo.GetByID(ctx, it.BatchID); bErr == nil {
			line.BatchNumber = b.BatchNumber
			line.ExpiryDate = b.ExpiryDate
		}
		lines = append(lines, line)
	}

	cashier := o.CreatedBy
	if uc.userRepo != nil && o.CreatedBy != "" {
		if u, uErr := uc.userRepo.GetByID(ctx, o.CreatedBy); uErr == nil && u.DisplayName != "" {
			cashier = u.DisplayName
		}
	}

	pdfBytes, err = uc.generator.GenerateReceiptPDF(ctx, ReceiptData{
		ClinicName:  uc.clinicName,
		Order:       o,
		CashierName: cashier,
		Lines:       lines,
		Location:    uc.loc,
	})
	if err != nil {
		return nil, "", fmt.Errorf("receipt: generación fallida: %w", err)
	}
	short := o.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return pdfBytes, fmt.Sprintf("venta_%s.pdf", short), nil
}
