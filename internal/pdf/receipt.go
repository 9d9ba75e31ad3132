package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/askarbek/marketpay/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate renders a one-page receipt for a paid job.
func (g *Generator) Generate(receipt model.PaymentReceipt) ([]byte, error) {
	if !receipt.Job.Paid || receipt.Job.PaymentDate == nil {
		return nil, fmt.Errorf("receipt requires a paid job")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Payment receipt", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Job %s", receipt.Job.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Paid on %s", formatDateTime(*receipt.Job.PaymentDate)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	addPartyBlock(pdf, g.fontName, "Client", receipt.Client)
	pdf.Ln(2)
	addPartyBlock(pdf, g.fontName, "Contractor", receipt.Contractor)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Work", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)

	headers := []string{"Description", "Contract", "Amount"}
	colWidths := []float64{90, 55, 35}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)

	row := []string{
		safeValue(receipt.Job.Description),
		receipt.Contract.ID.String(),
		formatAmount(receipt.Job.Price),
	}
	drawTableRow(pdf, g.fontName, row, colWidths, false)

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total paid: %s", formatAmount(receipt.Job.Price)), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addPartyBlock(pdf *gofpdf.Fpdf, fontName, title string, profile model.Profile) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	lines := []string{
		profile.FullName(),
		fmt.Sprintf("Profession: %s", safeValue(profile.Profession)),
		fmt.Sprintf("Profile: %s", profile.ID),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
