package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"minotaur/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	levelStyles = map[model.ThreatLevel]lipgloss.Style{
		model.ThreatCritical:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // Red
		model.ThreatHigh:          lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true), // Orange
		model.ThreatMedium:        lipgloss.NewStyle().Foreground(lipgloss.Color("220")),            // Yellow
		model.ThreatLow:           lipgloss.NewStyle().Foreground(lipgloss.Color("46")),             // Green
		model.ThreatInformational: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),            // Gray
	}

	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func styleLevel(l model.ThreatLevel) string {
	if s, ok := levelStyles[l]; ok {
		return s.Render(string(l))
	}
	return string(l)
}

// WriteSummary prints the counts, a findings table and any warnings.
func WriteSummary(w io.Writer, r Report) error {
	fmt.Fprintln(w, titleStyle.Render("Threat report: "+r.GeneratedFor))
	fmt.Fprintf(w, "Dependencies analyzed: %d\n", r.DependenciesAnalyzed)
	fmt.Fprintf(w, "Vulnerabilities found: %d\n", r.VulnerabilitiesFound)
	fmt.Fprintf(w, "Real threats:          %d\n", r.RealThreats)
	if r.Truncated {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Dependency list truncated: %d dependencies not analyzed", r.TruncatedDependencies)))
	}
	fmt.Fprintln(w)

	var counts []string
	for _, l := range model.ThreatLevels {
		counts = append(counts, fmt.Sprintf("%s %d", styleLevel(l), r.SummaryCountsByThreatLevel[l]))
	}
	fmt.Fprintln(w, strings.Join(counts, "  "))
	fmt.Fprintln(w)

	if len(r.Findings) == 0 {
		fmt.Fprintln(w, "No vulnerabilities matched.")
	} else {
		var table strings.Builder
		tw := tabwriter.NewWriter(&table, 0, 0, 3, ' ', 0)
		fmt.Fprintln(tw, "LEVEL\tDEPENDENCY\tVERSION\tVULNERABILITY\tSEVERITY\tVERDICT\tCONFIDENCE")
		for _, e := range r.Findings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
				e.ThreatLevel, e.Dependency, e.Version, e.VulnerabilityID, e.Severity, e.Verdict, e.Confidence)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		// style the level column after alignment; escape codes break tabwriter widths
		lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
		for i, line := range lines {
			if i > 0 {
				lvl := r.Findings[i-1].ThreatLevel
				line = styleLevel(lvl) + strings.TrimPrefix(line, string(lvl))
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(r.Issues) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Warnings (%d):", len(r.Issues))))
		for _, is := range r.Issues {
			fmt.Fprintf(w, "  [%s] %s: %s\n", is.Kind, is.Scope, is.Message)
		}
	}
	return nil
}

// Markdown renders the report for terminals (via glamour) and chat digests.
func Markdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Threat report: %s\n\n", r.GeneratedFor)
	fmt.Fprintf(&b, "- Dependencies analyzed: **%d**\n", r.DependenciesAnalyzed)
	fmt.Fprintf(&b, "- Vulnerabilities found: **%d**\n", r.VulnerabilitiesFound)
	fmt.Fprintf(&b, "- Real threats: **%d**\n", r.RealThreats)
	if r.Truncated {
		fmt.Fprintf(&b, "- Truncated: %d dependencies not analyzed\n", r.TruncatedDependencies)
	}

	b.WriteString("\n| Level | Count |\n|---|---|\n")
	for _, l := range model.ThreatLevels {
		fmt.Fprintf(&b, "| %s | %d |\n", l, r.SummaryCountsByThreatLevel[l])
	}

	if len(r.Findings) > 0 {
		b.WriteString("\n## Findings\n\n")
		b.WriteString("| Level | Dependency | Version | Vulnerability | Severity | Verdict | Confidence |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, e := range r.Findings {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %.2f |\n",
				e.ThreatLevel, mdEscape(e.Dependency), mdEscape(e.Version), e.VulnerabilityID, e.Severity, e.Verdict, e.Confidence)
		}

		for _, e := range r.Findings {
			if e.Verdict != model.VerdictExploitable {
				continue
			}
			fmt.Fprintf(&b, "\n### %s in %s\n\n%s\n", e.VulnerabilityID, e.Dependency, e.Rationale)
			if e.Recommendation != "" {
				fmt.Fprintf(&b, "\n**Recommendation:** %s\n", e.Recommendation)
			}
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "- `%s` %s: %s\n", is.Kind, is.Scope, is.Message)
		}
	}
	return b.String()
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
