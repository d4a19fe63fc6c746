package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRenderExpenseChart(t *testing.T) {
	var buf bytes.Buffer
	err := RenderExpenseChart(&buf, map[string]decimal.Decimal{
		"food":      decimal.RequireFromString("50"),
		"transport": decimal.RequireFromString("12.30"),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), "output should be a PNG")
}

func TestRenderExpenseChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderExpenseChart(&buf, nil), ErrNoExpenses)
	assert.ErrorIs(t, RenderExpenseChart(&buf, map[string]decimal.Decimal{"x": decimal.Zero}), ErrNoExpenses)
	assert.Zero(t, buf.Len())
}

func TestWriteExpenseChart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	path, err := WriteExpenseChart(dir, "alice", map[string]decimal.Decimal{
		"food": decimal.RequireFromString("50"),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alice-expenses.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}
