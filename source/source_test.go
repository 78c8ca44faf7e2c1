package source_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/source"
)

// =============================================================================
// ENCODING TESTS
// =============================================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		want     string
		encoding string
	}{
		{"empty", nil, "", source.EncodingUTF8},
		{"plain utf-8", []byte("1#très bien"), "1#très bien", source.EncodingUTF8},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "1,40"...), "1,40", source.EncodingUTF8BOM},
		{"utf-16 le", []byte{0xFF, 0xFE, '1', 0, ',', 0, '8', 0}, "1,8", source.EncodingUTF16LE},
		{"utf-16 be", []byte{0xFE, 0xFF, 0, '1', 0, ',', 0, '8'}, "1,8", source.EncodingUTF16BE},
		{"latin-1", []byte{'J', 'o', 's', 0xE9}, "José", source.EncodingLatin1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, err := source.Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.encoding, enc)
		})
	}
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestDir_OpenDecodesFile(t *testing.T) {
	// GIVEN: A Latin-1 roster file in the data directory
	// WHEN: Opening the roster feed
	// THEN: The content is returned as UTF-8

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "emp_beg_yr.txt"), []byte("1,Ren\xe9\n"), 0o644))

	rc, err := source.NewDir(dir, nil).Open(engine.SourceRoster)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "1,René\n", string(body))
}

func TestDir_MissingFile(t *testing.T) {
	// GIVEN: An empty data directory
	// WHEN: Opening the sales feed
	// THEN: A missing-file error naming the path

	dir := t.TempDir()
	_, err := source.NewDir(dir, nil).Open(engine.SourceSales)

	require.Error(t, err)
	assert.True(t, engine.IsMissingFile(err))

	var merr *engine.MissingFileError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, filepath.Join(dir, "sales.txt"), merr.Path)
}

func TestDir_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "q4-sales.csv")
	require.NoError(t, os.WriteFile(abs, []byte("3,100\n"), 0o644))

	d := source.NewDir(dir, nil)
	d.Files[engine.SourceSales] = abs

	path, err := d.Path(engine.SourceSales)
	require.NoError(t, err)
	assert.Equal(t, abs, path)

	rc, err := d.Open(engine.SourceSales)
	require.NoError(t, err)
	rc.Close()

	_, err = d.Open("payroll")
	assert.Error(t, err)
	assert.False(t, engine.IsMissingFile(err))
}

// =============================================================================
// MEMORY TESTS
// =============================================================================

func TestMemory(t *testing.T) {
	m := source.Memory{engine.SourceSales: "3,100\n"}

	rc, err := m.Open(engine.SourceSales)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "3,100\n", string(body))

	_, err = m.Open(engine.SourceRoster)
	assert.True(t, engine.IsMissingFile(err))
}
