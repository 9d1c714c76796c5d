package google

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// rowValues renders t in the column order of sheets.Header.
func rowValues(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Date,
		t.Description,
		t.Category,
		t.Amount.InexactFloat64(),
		t.Kind(),
	}
}

// findRow returns the 1-based sheet row whose first column holds id, or 0.
// values is the response for an "A:A" range.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// rowRange returns the A:F range of a single sheet row.
func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:F%d", quoteSheet(sheet), row, row)
}

// quoteSheet quotes sheet names that A1 notation cannot take bare.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
