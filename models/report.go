package models

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportKitchenStockSummary renders the day's stock summary as an xlsx
// workbook and returns its bytes.
func ExportKitchenStockSummary(ctx context.Context, businessDay time.Time) ([]byte, error) {
	lines, err := GetKitchenStockSummary(ctx, businessDay)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer file.Close()

	sheet := "Stock Summary"
	index, err := file.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	file.SetActiveSheet(index)
	file.DeleteSheet("Sheet1")

	headers := []string{"Raw Material", "Purchased", "Issued", "Returned", "Net"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	if err := file.SetCellValue(sheet, "G1", "Business Day"); err != nil {
		return nil, err
	}
	if err := file.SetCellValue(sheet, "H1", businessDay.Format("2006-01-02")); err != nil {
		return nil, err
	}

	for row, line := range lines {
		values := []interface{}{
			line.Name,
			line.Purchased.InexactFloat64(),
			line.Issued.InexactFloat64(),
			line.Returned.InexactFloat64(),
			line.Net.InexactFloat64(),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buffer.Bytes(), nil
}
