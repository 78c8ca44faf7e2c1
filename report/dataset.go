/*
Package report writes the run's datasets in their published file formats.

FILES:
  employee_data.csv  - intermediate dataset, before the bonus pass
  emp_end_yr.txt     - final per-employee report
  error.txt          - rendered error ledger
  emp_end_yr.xlsx    - final report as an Excel workbook

FORMATS:
  intermediate: id,last_name,first_name,job_code,base_pay,hours,utilization,evaluation_score,sales
  final:        ID,FirstName,LastName,JobCode,BasePay,Utilization,Evaluation,Sales,Bonus

  Money, hours and utilization are written with two decimals, evaluation
  scores with one. An employee without an evaluation has an empty
  evaluation field.
*/
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/engine"
)

var (
	IntermediateHeader = []string{"id", "last_name", "first_name", "job_code", "base_pay", "hours", "utilization", "evaluation_score", "sales"}
	FinalHeader        = []string{"ID", "FirstName", "LastName", "JobCode", "BasePay", "Utilization", "Evaluation", "Sales", "Bonus"}
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func evaluation(e decimal.NullDecimal) string {
	if !e.Valid {
		return ""
	}
	return e.Decimal.StringFixed(1)
}

// WriteIntermediate writes the pre-bonus dataset.
func WriteIntermediate(w io.Writer, employees []engine.Employee) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(IntermediateHeader); err != nil {
		return err
	}
	for _, e := range employees {
		row := []string{
			e.ID.String(), e.LastName, e.FirstName, e.JobCode,
			money(e.BasePay), money(e.Hours), money(e.Utilization),
			evaluation(e.Evaluation), money(e.Sales),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFinal writes the final report.
func WriteFinal(w io.Writer, employees []engine.Employee) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FinalHeader); err != nil {
		return err
	}
	for _, e := range employees {
		if err := cw.Write(finalRow(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func finalRow(e engine.Employee) []string {
	return []string{
		e.ID.String(), e.FirstName, e.LastName, e.JobCode,
		money(e.BasePay), money(e.Utilization), evaluation(e.Evaluation),
		money(e.Sales), money(e.Bonus),
	}
}

// ReadFinal parses a final report written by WriteFinal. Hours are not part
// of the final format and are left zero; Eligible is true for every employee
// with a positive bonus.
func ReadFinal(r io.Reader) ([]engine.Employee, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(FinalHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", engine.ErrMalformedRecord, err)
	}
	if !strings.EqualFold(strings.Join(header, ","), strings.Join(FinalHeader, ",")) {
		return nil, fmt.Errorf("%w: unexpected header %q", engine.ErrMalformedRecord, strings.Join(header, ","))
	}

	var out []engine.Employee
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrMalformedRecord, err)
		}
		line, _ := cr.FieldPos(0)
		emp, err := parseFinalRow(row, line)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
}

func parseFinalRow(row []string, line int) (engine.Employee, error) {
	reject := func(field string) error {
		return &engine.RecordError{Source: "final report", Line: line, Reason: fmt.Sprintf("invalid %s %q", field, row[indexOf(field)])}
	}

	id, ok := engine.ParseEmployeeID(row[0])
	if !ok {
		return engine.Employee{}, reject("ID")
	}
	e := engine.Employee{
		ID:        id,
		FirstName: row[1],
		LastName:  row[2],
		JobCode:   row[3],
		Role:      engine.RoleForJobCode(row[3]),
	}

	amounts := []struct {
		field string
		dst   *decimal.Decimal
	}{
		{"BasePay", &e.BasePay},
		{"Utilization", &e.Utilization},
		{"Sales", &e.Sales},
		{"Bonus", &e.Bonus},
	}
	for _, a := range amounts {
		v, err := decimal.NewFromString(row[indexOf(a.field)])
		if err != nil {
			return engine.Employee{}, reject(a.field)
		}
		*a.dst = v
	}

	if raw := row[indexOf("Evaluation")]; raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return engine.Employee{}, reject("Evaluation")
		}
		e.Evaluation = decimal.NewNullDecimal(v)
	}
	e.Eligible = e.Bonus.IsPositive()
	return e, nil
}

func indexOf(field string) int {
	for i, h := range FinalHeader {
		if h == field {
			return i
		}
	}
	return -1
}
