package report

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/olekukonko/tablewriter"
)

const shortCommitLength = 7

// WriteTable writes the history in doc as a text table, one row per
// measurement, oldest suite first. If name is not empty only that benchmark
// is written.
func WriteTable(w io.Writer, doc *types.HistoryDocument, name string) {
	names := []string{}
	for n := range doc.Entries {
		if name == "" || n == name {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Benchmark", "Commit", "Date", "Measurement", "Value", "Unit", "Range"})
	table.SetAutoWrapText(false)
	for _, n := range names {
		for _, suite := range doc.Entries[n] {
			commit := suite.Commit.ID
			if len(commit) > shortCommitLength {
				commit = commit[:shortCommitLength]
			}
			date := time.UnixMilli(suite.Date).UTC().Format(time.RFC3339)
			for _, m := range suite.Benches {
				table.Append([]string{n, commit, date, m.Name, strconv.FormatFloat(m.Value, 'f', -1, 64), m.Unit, m.Range})
			}
		}
	}
	table.Render()
}
