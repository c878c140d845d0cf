package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_BOM(t *testing.T) {
	out, err := WriteCSV([]string{"date", "amount"}, [][]string{{"2026-03-01", "120.50"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))

	r := csv.NewReader(bytes.NewReader(out[3:]))
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"date", "amount"}, records[0])
	assert.Equal(t, []string{"2026-03-01", "120.50"}, records[1])
}

func TestSanitiseCell_FormulaInjection(t *testing.T) {
	cases := map[string]string{
		"=SUM(A1:A9)":      "'=SUM(A1:A9)",
		"+1234":            "'+1234",
		"-5.00":            "'-5.00",
		"@cmd":             "'@cmd",
		"\tpayload":        "'\tpayload",
		"\rpayload":        "'\rpayload",
		"Groceries":        "Groceries",
		"שכר דירה":         "שכר דירה",
		"":                 "",
		"inner=not quoted": "inner=not quoted",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitiseCell(in), "input %q", in)
	}
}
