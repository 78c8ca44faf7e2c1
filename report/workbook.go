package report

import (
	"io"

	"github.com/warp/bonus-engine/engine"
	"github.com/xuri/excelize/v2"
)

const workbookSheet = "Sheet1"

// NewWorkbook builds a workbook with the final report on Sheet1. Numeric
// columns are written as numbers; a missing evaluation is an empty cell.
func NewWorkbook(employees []engine.Employee) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(workbookSheet); err != nil {
		return nil, err
	}

	for i, h := range FinalHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(workbookSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, e := range employees {
		row := i + 2
		values := []interface{}{
			int64(e.ID),
			e.FirstName,
			e.LastName,
			e.JobCode,
			e.BasePay.InexactFloat64(),
			e.Utilization.InexactFloat64(),
			nil,
			e.Sales.InexactFloat64(),
			e.Bonus.InexactFloat64(),
		}
		if e.HasEvaluation() {
			values[6] = e.Evaluation.Decimal.InexactFloat64()
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(workbookSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// WriteWorkbook streams the final report workbook to w.
func WriteWorkbook(w io.Writer, employees []engine.Employee) error {
	f, err := NewWorkbook(employees)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveWorkbook writes the final report workbook to path.
func SaveWorkbook(path string, employees []engine.Employee) error {
	f, err := NewWorkbook(employees)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}
