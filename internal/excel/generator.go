package excel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/askarbek/marketpay/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders an earnings workbook: a summary sheet plus one sheet per
// aggregation (professions, clients).
func (g *Generator) Generate(report model.EarningsReport) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, report); err != nil {
		return nil, err
	}

	professionSheet := "Professions"
	file.NewSheet(professionSheet)
	if err := g.writeProfessions(file, professionSheet, report.Professions); err != nil {
		return nil, err
	}

	clientSheet := "Clients"
	file.NewSheet(clientSheet)
	if err := g.writeClients(file, clientSheet, report.Clients); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, report model.EarningsReport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Report")
	set("B1", "Earnings")
	set("A2", "Period start")
	set("B2", formatDate(report.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(report.PeriodEnd))
	set("A4", "Total paid")
	set("B4", formatAmount(sumProfessions(report.Professions)))
	set("A5", "Professions")
	set("B5", len(report.Professions))
	set("A6", "Paying clients")
	set("B6", len(report.Clients))

	_ = file.SetColWidth(sheet, "A", "A", 24)
	_ = file.SetColWidth(sheet, "B", "B", 20)
	return nil
}

func (g *Generator) writeProfessions(file *excelize.File, sheet string, professions []model.ProfessionEarning) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Profession")
	set("B1", "Earned")
	for i, earning := range professions {
		row := 2 + i
		set(fmt.Sprintf("A%d", row), earning.Profession)
		set(fmt.Sprintf("B%d", row), formatAmount(earning.Total))
	}

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "B", 16)
	return nil
}

func (g *Generator) writeClients(file *excelize.File, sheet string, clients []model.ClientPayment) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Client")
	set("B1", "Profession")
	set("C1", "Paid")
	for i, client := range clients {
		row := 2 + i
		set(fmt.Sprintf("A%d", row), client.FullName())
		set(fmt.Sprintf("B%d", row), client.Profession)
		set(fmt.Sprintf("C%d", row), formatAmount(client.Paid))
	}

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "B", 24)
	_ = file.SetColWidth(sheet, "C", "C", 16)
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func sumProfessions(professions []model.ProfessionEarning) decimal.Decimal {
	total := decimal.Zero
	for _, earning := range professions {
		total = total.Add(earning.Total)
	}
	return total
}
