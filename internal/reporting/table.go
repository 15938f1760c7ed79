package reporting

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"hydrostat/internal/domain"
)

// RenderSummaryTable renders one line per entity for the console.
func RenderSummaryTable(r *Report) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Entity", "Kind", "Status", "Signal", "Unit", "Annual Mean", "Annual CV", "Reliability %"})

	for _, p := range r.Summaries {
		tbl.AppendRow(table.Row{
			p.EntityID,
			p.EntityKind,
			r.statusOf(p.EntityID),
			p.Signal,
			p.Unit,
			console(p.AnnualMean),
			console(p.AnnualCV),
			console(p.ReliabilityPct),
		})
	}

	// Failed entities have no summary row.
	for _, o := range r.Outcomes {
		if o.Status == domain.EntityStatusFailed {
			tbl.AppendRow(table.Row{o.EntityID, o.Kind, o.Status, "", "", "", "", ""})
		}
	}

	succeeded, skipped, failed := r.Counts()
	if len(r.Outcomes) > 0 {
		tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d ok / %d skipped / %d failed", succeeded, skipped, failed)})
	}

	return tbl.Render()
}

func console(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.3f", *v)
}
