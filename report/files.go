package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/bonus-engine/engine"
)

// Output file names.
const (
	IntermediateFile = "employee_data.csv"
	FinalFile        = "emp_end_yr.txt"
	ErrorFile        = "error.txt"
	WorkbookFile     = "emp_end_yr.xlsx"
)

// FileSink writes the run's datasets under Dir. Every file is overwritten on
// each run.
type FileSink struct {
	Dir      string
	Workbook bool
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

func NewFileSink(dir string, log logrus.FieldLogger) *FileSink {
	return &FileSink{Dir: dir, Workbook: true, Logger: log, Now: time.Now}
}

func (s *FileSink) path(name string) string { return filepath.Join(s.Dir, name) }

func (s *FileSink) SaveIntermediate(ctx context.Context, run engine.RunInfo, employees []engine.Employee) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(IntermediateFile, func(w io.Writer) error {
		return WriteIntermediate(w, employees)
	})
}

// SaveRun writes the final report, the error report and, when enabled, the
// workbook.
func (s *FileSink) SaveRun(ctx context.Context, result *engine.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(FinalFile, func(w io.Writer) error {
		return WriteFinal(w, result.Employees)
	}); err != nil {
		return err
	}
	if err := s.write(ErrorFile, func(w io.Writer) error {
		return result.Ledger.WriteReport(w, s.Now())
	}); err != nil {
		return err
	}
	if !s.Workbook {
		return nil
	}
	path := s.path(WorkbookFile)
	if err := SaveWorkbook(path, result.Employees); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.logWritten(path)
	return nil
}

func (s *FileSink) write(name string, fn func(io.Writer) error) error {
	path := s.path(name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	s.logWritten(path)
	return nil
}

func (s *FileSink) logWritten(path string) {
	if s.Logger != nil {
		s.Logger.WithField("path", path).Info("output written")
	}
}

// LoadFinal reads a final report file from disk.
func LoadFinal(path string) ([]engine.Employee, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFinal(f)
}

var _ engine.Sink = (*FileSink)(nil)
