package service

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"go-stock-resi/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const unknownProduct = "Unknown product"

var reportColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 30, "L"},
	{"Product", 45, "L"},
	{"Type", 15, "C"},
	{"Qty.", 14, "R"},
	{"User", 30, "L"},
	{"Notes", 48, "L"},
}

type ReportService interface {
	// ExportMovements writes the ledger as a PDF table to w.
	ExportMovements(w io.Writer, now time.Time) error
	// ExportWorkbook writes the same table as an .xlsx workbook.
	ExportWorkbook(w io.Writer, now time.Time) error
	FileName(now time.Time, ext string) string
}

type reportService struct {
	inventory InventoryService
	compress  bool
}

func NewReportService(inventory InventoryService) ReportService {
	return &reportService{inventory: inventory, compress: true}
}

func (s *reportService) FileName(now time.Time, ext string) string {
	return fmt.Sprintf("movements-report-%s.%s", now.Format(time.DateOnly), ext)
}

func (s *reportService) ExportMovements(w io.Writer, now time.Time) error {
	rows := movementRows(s.inventory.GetAllTransactions(), s.inventory.GetAllProducts())

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(s.compress)
	pdf.SetTitle("Movements report - Stock Resi", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(14, 20, "Movements report - Stock Resi")
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(14, 28, "Generated: "+now.Format("02/01/2006 15:04"))
	pdf.SetXY(14, 35)

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(79, 70, 229)
		pdf.SetTextColor(255, 255, 255)
		for _, col := range reportColumns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	const rowHeight = 6.0
	for _, row := range rows {
		if pdf.GetY()+rowHeight > pageHeight-20 {
			pdf.AddPage()
			pdf.SetX(14)
			header()
		}
		pdf.SetX(14)
		for i, col := range reportColumns {
			text := fitText(pdf, tr, row[i], col.width-2)
			pdf.CellFormat(col.width, rowHeight, text, "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(rows) == 0 {
		pdf.SetX(14)
		pdf.CellFormat(182, rowHeight, "No movements recorded", "1", 1, "C", false, 0, "")
	}

	return pdf.Output(w)
}

func (s *reportService) ExportWorkbook(w io.Writer, now time.Time) error {
	rows := movementRows(s.inventory.GetAllTransactions(), s.inventory.GetAllProducts())

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Movements"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(reportColumns))
	for i, col := range reportColumns {
		header[i] = col.title
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F46E5"}},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(reportColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		// Quantity stays numeric so the sheet can sum it.
		if qty, err := strconv.Atoi(row[3]); err == nil {
			cells[3] = qty
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "F", 18); err != nil {
		return err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Movements report - Stock Resi",
		Created: now.UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	return f.Write(w)
}

// movementRows renders ledger rows as table cells.
func movementRows(transactions []model.Transaction, products []model.Product) [][]string {
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	rows := make([][]string, 0, len(transactions))
	for _, t := range transactions {
		name, ok := names[t.ProductID]
		if !ok {
			name = unknownProduct
		}
		kind := "In"
		if t.Type == model.TxOut {
			kind = "Out"
		}
		rows = append(rows, []string{
			t.Date.Format("02/01/2006 15:04"),
			name,
			kind,
			strconv.Itoa(t.Quantity),
			orDash(t.User),
			orDash(t.Notes),
		})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// fitText translates s to the font encoding and shortens it with an
// ellipsis until it fits width.
func fitText(pdf *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if out := tr(s); pdf.GetStringWidth(out) <= width {
		return out
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(tr(string(r)+"...")) > width {
		r = r[:len(r)-1]
	}
	return tr(string(r) + "...")
}
