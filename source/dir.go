/*
Package source opens the pipeline's input feeds from a data directory.

PURPOSE:
  Maps the logical feed names used by the engine (roster, timesheet,
  evaluation, sales) to files, and normalizes their text encoding so the
  stages only ever see UTF-8.

DEFAULT FILES:
  roster      emp_beg_yr.txt
  timesheet   timesheet.txt
  evaluation  evaluation.txt
  sales       sales.txt

SEE ALSO:
  - engine/pipeline.go: Sources interface
  - config/config.go: File name overrides
*/
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/warp/bonus-engine/engine"
)

// DefaultFiles returns the standard file name of every feed.
func DefaultFiles() map[string]string {
	return map[string]string{
		engine.SourceRoster:     "emp_beg_yr.txt",
		engine.SourceTimesheet:  "timesheet.txt",
		engine.SourceEvaluation: "evaluation.txt",
		engine.SourceSales:      "sales.txt",
	}
}

// Dir serves feeds from files under Root.
type Dir struct {
	Root   string
	Files  map[string]string // feed name -> file name, relative to Root unless absolute
	Logger logrus.FieldLogger
}

// NewDir returns a Dir using DefaultFiles.
func NewDir(root string, log logrus.FieldLogger) *Dir {
	return &Dir{Root: root, Files: DefaultFiles(), Logger: log}
}

// Path resolves the file path of a feed.
func (d *Dir) Path(name string) (string, error) {
	file, ok := d.Files[name]
	if !ok || file == "" {
		return "", fmt.Errorf("unknown source %q", name)
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	return filepath.Join(d.Root, file), nil
}

// Open reads the whole feed and returns it decoded to UTF-8. A file that does
// not exist yields an *engine.MissingFileError.
func (d *Dir) Open(name string) (io.ReadCloser, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &engine.MissingFileError{Source: name, Path: path, Err: err}
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text, encoding, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{"stage": name, "path": path, "encoding": encoding, "bytes": len(data)}).Debug("source opened")
	}
	return io.NopCloser(bytes.NewReader(text)), nil
}

var _ engine.Sources = (*Dir)(nil)
