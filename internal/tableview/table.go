// Package tableview renders job listings as an aligned terminal table.
package tableview

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Column is one rendered table column.
type Column struct {
	Header   string
	Field    string
	MaxWidth int
}

// DefaultColumns is the layout used by the list command.
var DefaultColumns = []Column{
	{Header: "DATE", Field: jobs.ColDatePublication, MaxWidth: 10},
	{Header: "SOURCE", Field: jobs.ColSource, MaxWidth: 14},
	{Header: "TITLE", Field: jobs.ColTitle, MaxWidth: 40},
	{Header: "COMPANY", Field: jobs.ColCompany, MaxWidth: 24},
	{Header: "CITY", Field: jobs.ColCity, MaxWidth: 16},
	{Header: "CONTRACT", Field: jobs.ColContractType, MaxWidth: 12},
	{Header: "SALARY", Field: "salary", MaxWidth: 13},
}

const ellipsis = "…"

// Render writes records under a header row, padding by display width so
// accented and wide characters stay aligned. Cells longer than MaxWidth are
// truncated with an ellipsis.
func Render(w io.Writer, cols []Column, records []jobs.Record) error {
	rows := make([][]string, 0, len(records)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	rows = append(rows, header)
	for _, rec := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = fit(cell(rec, c.Field), c.MaxWidth)
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(cols))
	for _, row := range rows {
		for i, v := range row {
			if width := runewidth.StringWidth(v); width > widths[i] {
				widths[i] = width
			}
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, v := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(row)-1 {
				sb.WriteString(v)
				continue
			}
			sb.WriteString(runewidth.FillRight(v, widths[i]))
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}
	return nil
}

// Footer writes the paging line shown under the table.
func Footer(w io.Writer, total, offset, shown int) error {
	var err error
	if shown == 0 {
		_, err = fmt.Fprintf(w, "no jobs (total %d)\n", total)
	} else {
		_, err = fmt.Fprintf(w, "showing %d-%d of %d\n", offset+1, offset+shown, total)
	}
	if err != nil {
		return fmt.Errorf("write footer: %w", err)
	}
	return nil
}

func cell(rec jobs.Record, field string) string {
	if field == "salary" {
		return salaryRange(rec)
	}
	return strings.Join(strings.Fields(rec.Field(field)), " ")
}

func salaryRange(rec jobs.Record) string {
	lo, hi := jobs.FormatSalary(rec.SalaryMin), jobs.FormatSalary(rec.SalaryMax)
	switch {
	case lo == "" && hi == "":
		return ""
	case lo == hi || hi == "":
		return lo
	case lo == "":
		return hi
	}
	return lo + "-" + hi
}

func fit(s string, limit int) string {
	if limit <= 0 || runewidth.StringWidth(s) <= limit {
		return s
	}
	return runewidth.Truncate(s, limit, ellipsis)
}
