// Package ux renders command output: reconciliation summaries, document
// plans and status lines. Commands print through here so styling stays in
// one place.
package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"omnify/internal/document"
	"omnify/internal/manifest"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Success formats a completed-step line.
func Success(msg string) string {
	return successStyle.Render("✓ " + msg)
}

// Warn formats a warning line.
func Warn(msg string) string {
	return warnStyle.Render("! " + msg)
}

// Error formats a failure line.
func Error(msg string) string {
	return errorStyle.Render("✗ " + msg)
}

// RenderReport renders per-category statistics for a reconciliation run.
// With detailed set, every entry is listed with its outcome.
func RenderReport(report *manifest.Report, detailed bool) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Installation summary"))
	b.WriteString("\n")

	for _, cat := range report.Categories {
		fmt.Fprintf(&b, "  %-16s %s\n", cat.Name, categoryLine(cat))
	}

	totals := report.Totals
	fmt.Fprintf(&b, "  %-16s %s\n", "total", categoryLine(totals))

	if detailed {
		b.WriteString("\n")
		for _, res := range report.Results {
			b.WriteString("  ")
			b.WriteString(resultLine(res))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func categoryLine(s manifest.CategoryStats) string {
	parts := []string{
		successStyle.Render(fmt.Sprintf("%d copied", s.Copied)),
		fmt.Sprintf("%d skipped", s.Skipped),
	}
	if s.NotFound > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d missing", s.NotFound)))
	}
	if s.Invalid > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d invalid", s.Invalid)))
	}
	if s.Failed > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	parts = append(parts, dimStyle.Render(fmt.Sprintf("(%d total)", s.Total)))
	return strings.Join(parts, ", ")
}

func resultLine(res manifest.Result) string {
	dest := res.Entry.DestinationPath
	if dest == "" {
		dest = res.Entry.SourcePath
	}
	switch res.Status {
	case manifest.StatusCopied:
		return successStyle.Render("✓ ") + dest
	case manifest.StatusSkipped:
		return dimStyle.Render("- "+dest) + dimStyle.Render(" ("+res.Reason+")")
	case manifest.StatusNotFound:
		return warnStyle.Render("? "+dest) + dimStyle.Render(" (source missing)")
	case manifest.StatusInvalid:
		return warnStyle.Render("! invalid entry") + dimStyle.Render(" ("+res.Reason+")")
	default:
		return errorStyle.Render("✗ "+dest) + dimStyle.Render(" ("+res.Reason+")")
	}
}

// RenderPlan renders a document reconciliation plan.
func RenderPlan(plan document.Plan) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Documents for %s #%s", plan.Owner.Type, plan.Owner.ID)))
	b.WriteString("\n")

	for _, doc := range plan.Documents {
		var marker string
		switch doc.Action {
		case document.ActionCreate:
			marker = successStyle.Render("+ ")
		case document.ActionRestore:
			marker = successStyle.Render("↻ ")
		default:
			marker = dimStyle.Render("= ")
		}
		fmt.Fprintf(&b, "  %s%s\n", marker, doc.Name)
	}
	for _, rec := range plan.Deletes {
		fmt.Fprintf(&b, "  %s%s\n", errorStyle.Render("- "), rec.Name)
	}

	fmt.Fprintf(&b, "  %s\n", dimStyle.Render(fmt.Sprintf(
		"%d active, %d removed", len(plan.Documents), len(plan.Deletes))))
	return b.String()
}
