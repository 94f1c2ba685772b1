// Package pdf genera el reporte de almacén en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + fecha de generación │ Total en kg          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Fase | Kg | Lotes | Precio prom. | Valor           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  LOTES POR FASE: Proveedor | Fecha | Kg orig. | Kg | Precio  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Ventas / Gastos / Adelantos abiertos               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
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

	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/report"
)

var _ report.PDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 92, Green: 58, Blue: 33}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa report.PDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	title string
}

// NewMarotoPDFGenerator construye el generador. title encabeza el documento (nombre del negocio).
func NewMarotoPDFGenerator(title string) *MarotoPDFGenerator {
	if title == "" {
		title = "Almacén de café"
	}
	return &MarotoPDFGenerator{title: title}
}

// GenerateInventoryPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInventoryPDF(_ context.Context, r *report.InventoryReport) ([]byte, error) {
	if r == nil {
		return nil, errors.New("pdf: reporte vacío")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de almacén", true).
		WithAuthor(g.title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.title, r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	// Resumen por fase
	m.AddRows(sectionRow("EXISTENCIAS POR FASE"))
	m.AddRows(summaryHeaderRow())
	m.AddRows(summaryRows(r.Phases)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	// Detalle de lotes
	for _, p := range r.Phases {
		if len(p.Lots) == 0 {
			continue
		}
		m.AddRows(sectionRow(fmt.Sprintf("LOTES DE %s", strings.ToUpper(p.Phase.Label()))))
		m.AddRows(lotHeaderRow())
		m.AddRows(lotRows(p.Lots)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(r))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título + fecha (izq) y total en kg (der).
func headerRow(title string, r *report.InventoryReport) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Generado: "+r.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("REPORTE DE ALMACÉN", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(report.Kg(r.TotalKg)+" kg", props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
		),
	)
}

func sectionRow(title string) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(title, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
		}),
	))
}

func headerCell(label string, size int, a align.Type) core.Col {
	return col.New(size).Add(text.New(label, props.Text{
		Style: fontstyle.Bold, Size: 8, Align: a,
		Color: colorWhite, Top: 2, Left: 1, Right: 1,
	})).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func cell(value string, size int, a align.Type) core.Col {
	return col.New(size).Add(text.New(value, props.Text{
		Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
	}))
}

func summaryHeaderRow() core.Row {
	return row.New(8).Add(
		headerCell("Fase", 3, align.Left),
		headerCell("Kg", 2, align.Right),
		headerCell("Lotes", 2, align.Center),
		headerCell("Precio prom./kg", 2, align.Right),
		headerCell("Valor", 3, align.Right),
	)
}

// summaryRows: una fila por fase.
func summaryRows(phases []report.PhaseReport) []core.Row {
	result := make([]core.Row, 0, len(phases))
	for _, p := range phases {
		price, value := "-", "-"
		if p.AveragePrice.IsPositive() {
			price = "$" + report.Money(p.AveragePrice)
			value = "$" + report.Money(p.Value)
		}
		result = append(result, row.New(7).Add(
			cell(p.Phase.Label(), 3, align.Left),
			cell(report.Kg(p.Quantity), 2, align.Right),
			cell(fmt.Sprintf("%d", len(p.Lots)), 2, align.Center),
			cell(price, 2, align.Right),
			cell(value, 3, align.Right),
		))
	}
	return result
}

func lotHeaderRow() core.Row {
	return row.New(8).Add(
		headerCell("Proveedor / origen", 4, align.Left),
		headerCell("Fecha", 2, align.Center),
		headerCell("Kg orig.", 2, align.Right),
		headerCell("Kg actual", 2, align.Right),
		headerCell("Precio/kg", 2, align.Right),
	)
}

// lotRows: una fila por lote disponible, en orden FIFO.
func lotRows(lots []appinventory.LotView) []core.Row {
	result := make([]core.Row, 0, len(lots))
	for _, l := range lots {
		result = append(result, row.New(7).Add(
			cell(lotOrigin(l), 4, align.Left),
			cell(lotDate(l), 2, align.Center),
			cell(report.Kg(l.OriginalQuantity), 2, align.Right),
			cell(report.Kg(l.Quantity), 2, align.Right),
			cell(lotPrice(l), 2, align.Right),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(r *report.InventoryReport) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	totals := func(t report.Totals) string {
		return fmt.Sprintf("%d  |  $%s", t.Count, report.Money(t.Amount))
	}

	return row.New(20).Add(
		col.New(3),
		col.New(4).Add(
			label("Ventas:"),
			label("Gastos:"),
			label("Adelantos abiertos:"),
		),
		col.New(4).Add(
			value(totals(r.Sales)),
			value(totals(r.Expenses)),
			value(totals(r.OpenAdvances)),
		),
		col.New(1),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func lotOrigin(l appinventory.LotView) string {
	switch {
	case l.Supplier != "":
		return l.Supplier
	case l.OriginPhase != "":
		return "Proceso desde " + l.OriginPhase.Label()
	default:
		return "Ajuste"
	}
}

func lotDate(l appinventory.LotView) string {
	if !l.PurchaseDate.IsZero() {
		return l.PurchaseDate.Format("02/01/2006")
	}
	return l.CreatedAt.Format("02/01/2006")
}

func lotPrice(l appinventory.LotView) string {
	if l.UnitPrice.IsPositive() {
		return "$" + report.Money(l.UnitPrice)
	}
	return "-"
}
