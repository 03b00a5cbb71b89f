package xlsxGenerator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/portfolio-engine/internal/model"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// GenerateDailySummaryReport renders one workbook per daily summary: a row
// per user with totals, best/worst performer and the per-type allocation.
func (g *XLSXGenerator) GenerateDailySummaryReport(summary model.DailySummary) (fileBytes []byte, filename string, err error) {
	op := "XLSXGenerator.GenerateDailySummaryReport"

	if summary.Date == "" {
		return nil, "", errors.New("empty summary date")
	}

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("got error while closing file", slog.String("op", op), slog.String("err", closeErr.Error()))
		}
	}()

	sheetName := "Daily Summary"
	if _, err = f.NewSheet(sheetName); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err = f.MergeCell(sheetName, "A1", "H1"); err != nil {
		return nil, "", err
	}

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Portfolio daily summary %s", summary.Date))

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return nil, "", err
	}

	if err = f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return nil, "", fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "user")
	_ = f.SetCellStr(sheetName, "B2", "holdings")
	_ = f.SetCellStr(sheetName, "C2", "total value")
	_ = f.SetCellStr(sheetName, "D2", "total pnl")
	_ = f.SetCellStr(sheetName, "E2", "best performer")
	_ = f.SetCellStr(sheetName, "F2", "best pnl %")
	_ = f.SetCellStr(sheetName, "G2", "worst performer")
	_ = f.SetCellStr(sheetName, "H2", "worst pnl %")

	for i, userSummary := range summary.Portfolios {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), userSummary.UserID)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("B%d", row), int64(userSummary.TotalHoldings))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), userSummary.TotalValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), userSummary.TotalPnl.InexactFloat64())

		if userSummary.BestPerformer != nil {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", row), userSummary.BestPerformer.Symbol)
			_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), userSummary.BestPerformer.PnlPercentage.InexactFloat64())
		}
		if userSummary.WorstPerformer != nil {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", row), userSummary.WorstPerformer.Symbol)
			_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), userSummary.WorstPerformer.PnlPercentage.InexactFloat64())
		}
	}

	if err = f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return buf.Bytes(), fmt.Sprintf("daily_summary_%s.xlsx", summary.Date), nil
}
