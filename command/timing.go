package command

import (
	"github.com/joona/osckit/session"
)

// TimingTable turns HTTP timing records into URL/Seconds rows followed by a
// Total row.
func TimingTable(records []session.TimingRecord) ([]string, [][]any) {
	rows := make([][]any, 0, len(records)+1)
	total := 0.0
	for _, rec := range records {
		sec := rec.Elapsed.Seconds()
		total += sec
		rows = append(rows, []any{rec.Method + " " + rec.URL, sec})
	}
	rows = append(rows, []any{"Total", total})
	return []string{"URL", "Seconds"}, rows
}
