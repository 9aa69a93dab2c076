// Package pdf genera el comprobante imprimible de una venta de farmacia.
//
// Layout de la página A5:
//
//	┌───────────────────────────────────────────────┐
//	│  HEADER: Clínica            │  N° Venta + Fecha │
//	│  ───────────────────────────────────────────  │
//	│  PACIENTE / ORIGEN / CAJERO                   │
//	│  ───────────────────────────────────────────  │
//	│  TABLA: Cant | Medicamento | Lote | P.Unit | $ │
//	│  ───────────────────────────────────────────  │
//	│  TOTAL                                        │
//	│  FOOTER: QR con el ID de la venta             │
//	└───────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

var _ pharmacy.ReceiptPDFGenerator = (*MarotoReceiptGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 110, Blue: 100}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var sourceLabels = map[string]string{
	entity.SaleSourceWalkIn: "Mostrador",
	entity.SaleSourceClinic: "Consulta",
	entity.SaleSourceOnline: "En línea",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoReceiptGenerator implementa pharmacy.ReceiptPDFGenerator usando Maroto v2.
type MarotoReceiptGenerator struct{}

// NewMarotoReceiptGenerator construye el generador.
func NewMarotoReceiptGenerator() *MarotoReceiptGenerator { return &MarotoReceiptGenerator{} }

// GenerateReceiptPDF genera el PDF y devuelve sus bytes.
func (g *MarotoReceiptGenerator) GenerateReceiptPDF(_ context.Context, data pharmacy.ReceiptData) ([]byte, error) {
	if data.Order == nil {
		return nil, fmt.Errorf("pdf: venta vacía")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A5).
		WithLeftMargin(8).WithRightMargin(8).
		WithTopMargin(8).WithBottomMargin(8).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de venta", true).
		WithAuthor(data.ClinicName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(patientRow(data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(data)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(data.Order))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(data.Order))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: nombre de la clínica (izq) y número + fecha de la venta (der).
func headerRow(data pharmacy.ReceiptData) core.Row {
	created := data.Order.CreatedAt
	if data.Location != nil {
		created = created.In(data.Location)
	}
	return row.New(16).Add(
		col.New(7).Add(
			text.New(data.ClinicName, props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New("Farmacia", props.Text{Size: 8, Top: 8, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("COMPROBANTE DE VENTA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("N° "+ShortID(data.Order.ID), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 6,
			}),
			text.New(created.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 12, Color: colorGray,
			}),
		),
	)
}

// patientRow: paciente, origen de la venta y cajero.
func patientRow(data pharmacy.ReceiptData) core.Row {
	o := data.Order
	patient := o.PatientName
	if o.PatientID != nil && *o.PatientID != "" {
		patient += " (" + *o.PatientID + ")"
	}
	return row.New(12).Add(
		col.New(12).Add(
			text.New("PACIENTE", props.Text{Style: fontstyle.Bold, Size: 7, Color: colorPrimary, Top: 1}),
			text.New(patient, props.Text{Style: fontstyle.Bold, Size: 9, Top: 5}),
			text.New(fmt.Sprintf("Origen: %s   |   Atendió: %s",
				nonEmpty(sourceLabels[o.SaleSource], o.SaleSource),
				nonEmpty(data.CashierName, "—"),
			), props.Text{Size: 7, Top: 10, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(7).Add(
		h("Cant.", 1, align.Center),
		h("Medicamento", 4, align.Left),
		h("Lote / Vence", 3, align.Left),
		h("P. Unit.", 2, align.Right),
		h("Subtotal", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por línea de la venta (una por lote).
func tableDetailRows(data pharmacy.ReceiptData) []core.Row {
	result := make([]core.Row, 0, len(data.Lines))
	for _, l := range data.Lines {
		batch := nonEmpty(l.BatchNumber, "—")
		if !l.ExpiryDate.IsZero() {
			batch += " / " + l.ExpiryDate.Format("01/2006")
		}
		name := l.MedicineName
		if l.Unit != "" {
			name += " (" + l.Unit + ")"
		}
		result = append(result, row.New(6).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", l.Quantity), props.Text{Size: 7, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(name, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(3).Add(text.New(batch, props.Text{Size: 7, Top: 1, Left: 1, Color: colorGray})),
			col.New(2).Add(text.New(FormatMoney(l.UnitPrice.StringFixed(0)), props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(FormatMoney(l.Subtotal.StringFixed(0)), props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// totalRow: total de la venta alineado a la derecha.
func totalRow(o *entity.SaleOrder) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New(FormatMoney(o.TotalAmount.StringFixed(0)), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

// footerRow: QR con el ID completo para localizar la venta desde el mostrador.
func footerRow(o *entity.SaleOrder) core.Row {
	return row.New(30).Add(
		col.New(4).Add(code.NewQr(o.ID, props.Rect{Percent: 90, Center: true})),
		col.New(8).Add(
			text.New("Gracias por su compra.", props.Text{Style: fontstyle.Bold, Size: 9, Top: 6, Left: 3}),
			text.New("Conserve este comprobante para cambios o reclamos.", props.Text{
				Size: 7, Top: 13, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// ShortID primeros 8 caracteres del ID de la venta.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "-1000000" → "-1.000.000"
func FormatMoney(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
