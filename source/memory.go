package source

import (
	"io"
	"io/fs"
	"strings"

	"github.com/warp/bonus-engine/engine"
)

// Memory serves feeds held in memory, keyed by feed name. An absent feed
// behaves like a missing file.
type Memory map[string]string

func (m Memory) Open(name string) (io.ReadCloser, error) {
	body, ok := m[name]
	if !ok {
		return nil, &engine.MissingFileError{Source: name, Path: "memory:" + name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

var _ engine.Sources = Memory(nil)
