package reporting

import (
	"fmt"
	"strings"
	"time"

	"hydrostat/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Scenario %s\n\n", r.ScenarioID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	kind := "all"
	if r.Kind != "" {
		kind = string(r.Kind)
	}
	sb.WriteString(fmt.Sprintf("Entity kind: %s | Monthly rows: %d | Summaries: %d\n\n", kind, len(r.Monthly), len(r.Summaries)))

	// Run Summary
	if r.RunID != "" {
		succeeded, skipped, failed := r.Counts()
		sb.WriteString("## Run Summary\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.RunID))
		sb.WriteString(fmt.Sprintf("| Dry Run | %t |\n", r.DryRun))
		sb.WriteString(fmt.Sprintf("| Succeeded | %d |\n", succeeded))
		sb.WriteString(fmt.Sprintf("| Skipped (unavailable) | %d |\n", skipped))
		sb.WriteString(fmt.Sprintf("| Failed | %d |\n", failed))
		sb.WriteString(fmt.Sprintf("| Output Digest | `%s` |\n", r.Digest))
		sb.WriteString("\n")

		// Entities needing attention
		var notable []domain.EntityOutcome
		for _, o := range r.Outcomes {
			if o.Status != domain.EntityStatusSucceeded {
				notable = append(notable, o)
			}
		}
		if len(notable) > 0 {
			sb.WriteString("### Skipped and Failed Entities\n\n")
			sb.WriteString("| Entity | Kind | Status | Variable | Reason |\n")
			sb.WriteString("|--------|------|--------|----------|--------|\n")
			for _, o := range notable {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
					o.EntityID, o.Kind, o.Status, o.Variable, escapePipes(o.Reason)))
			}
			sb.WriteString("\n")
		}
	}

	// Period Summaries
	sb.WriteString("## Period Summaries\n\n")
	if len(r.Summaries) > 0 {
		sb.WriteString("| Entity | Kind | Signal | Unit | Years | Complete | Annual Mean | Annual CV | Flood P | Dead P | Reliability % | Demand Met % |\n")
		sb.WriteString("|--------|------|--------|------|-------|----------|-------------|-----------|---------|--------|---------------|--------------|\n")
		for _, p := range r.Summaries {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d-%d | %d | %s | %s | %s | %s | %s | %s |\n",
				p.EntityID, p.EntityKind, p.Signal, p.Unit,
				p.SimulationStartYear, p.SimulationEndYear, p.CompleteYears,
				md(p.AnnualMean), md(p.AnnualCV),
				md(p.FloodPoolProbability), md(p.DeadPoolProbability),
				md(p.ReliabilityPct), md(p.DemandMetPct)))
		}
	} else {
		sb.WriteString("No period summaries available.\n")
	}
	sb.WriteString("\n")

	// Monthly Means
	sb.WriteString("## Monthly Means\n\n")
	if len(r.Monthly) > 0 {
		sb.WriteString("| Entity | Oct | Nov | Dec | Jan | Feb | Mar | Apr | May | Jun | Jul | Aug | Sep |\n")
		sb.WriteString("|--------|-----|-----|-----|-----|-----|-----|-----|-----|-----|-----|-----|-----|\n")
		for _, row := range monthlyMeansByEntity(r.Monthly) {
			sb.WriteString("| " + row.entityID)
			for _, v := range row.means {
				sb.WriteString(" | " + md(v))
			}
			sb.WriteString(" |\n")
		}
	} else {
		sb.WriteString("No monthly statistics available.\n")
	}
	sb.WriteString("\n")

	// Verification
	if v := r.Verification; v != nil {
		sb.WriteString("## Verification\n\n")
		status := "MATCH"
		if !v.Match() {
			status = "MISMATCH"
		}
		sb.WriteString(fmt.Sprintf("Status: **%s** (%d compared, %d matched, %d missing)\n\n",
			status, v.Compared, v.Matched, len(v.Missing)))

		if len(v.Divergences) > 0 {
			sb.WriteString("| Entity | Water Month | Field | Reference | Computed |\n")
			sb.WriteString("|--------|-------------|-------|-----------|----------|\n")
			for _, d := range v.Divergences {
				sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s |\n",
					d.EntityID, d.WaterMonth, d.Field, md(d.Expected), md(d.Actual)))
			}
			sb.WriteString("\n")
		}

		if len(v.Missing) > 0 {
			sb.WriteString("Missing computed rows: " + strings.Join(v.Missing, ", ") + "\n\n")
		}

		for _, a := range v.Anomalies {
			sb.WriteString(fmt.Sprintf("### Anomaly: %s (%s)\n\n", a.Kind, a.EntityID))
			sb.WriteString("Reference values are constant across water months while computed values vary. Both are kept.\n\n")
			sb.WriteString("| Water Month | Reference | Computed |\n")
			sb.WriteString("|-------------|-----------|----------|\n")
			for i := range a.Reference {
				ref := a.Reference[i]
				sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", i+1, md(&ref), md(a.Computed[i])))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

type monthlyMeans struct {
	entityID string
	means    [12]*float64
}

// monthlyMeansByEntity pivots monthly rows, keeping entity order.
func monthlyMeansByEntity(rows []*domain.MonthlyStatistic) []monthlyMeans {
	var out []monthlyMeans
	index := make(map[string]int)
	for _, m := range rows {
		i, ok := index[m.EntityID]
		if !ok {
			i = len(out)
			index[m.EntityID] = i
			out = append(out, monthlyMeans{entityID: m.EntityID})
		}
		if m.WaterMonth >= 1 && m.WaterMonth <= 12 {
			out[i].means[m.WaterMonth-1] = m.Mean
		}
	}
	return out
}

func md(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
