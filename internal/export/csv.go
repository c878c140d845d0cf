package export

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// utf8BOM makes spreadsheet applications detect the encoding; without it
// Excel renders Hebrew text as mojibake.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV renders a header and rows as a UTF-8 CSV document with a BOM.
// Cells are sanitised against formula injection.
func WriteCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(sanitiseRow(header)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(sanitiseRow(row)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanitiseRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = SanitiseCell(cell)
	}
	return out
}

// SanitiseCell neutralises spreadsheet formula injection: cells starting
// with a formula trigger character get a leading single quote.
func SanitiseCell(cell string) string {
	if cell == "" {
		return cell
	}
	if strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
