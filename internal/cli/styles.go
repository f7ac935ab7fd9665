package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/nupkg-downloader/internal/model"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 2)
)

// RenderSummary renders the end-of-run report: counts, total size and every
// failed package with the sources that were tried.
func RenderSummary(s *model.Summary) string {
	var b strings.Builder

	if s.ManifestErr != nil {
		b.WriteString(ErrorStyle.Render("Manifest could not be read"))
		b.WriteString("\n")
		b.WriteString(s.ManifestErr.Error())
		return BoxStyle.BorderForeground(lipgloss.Color("#FF6B6B")).Render(b.String())
	}

	title := SuccessStyle.Render("Download complete")
	if s.HasFailures() {
		title = WarningStyle.Render("Download finished with failures")
	}
	b.WriteString(title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Packages:   %d\n", s.Total)
	fmt.Fprintf(&b, "Attempted:  %d\n", s.Attempted())
	fmt.Fprintf(&b, "Downloaded: %d\n", s.Downloaded)
	fmt.Fprintf(&b, "Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(&b, "Failed:     %d\n", s.Failed)
	fmt.Fprintf(&b, "Size:       %.2f MB", float64(s.Bytes)/1024/1024)

	for _, o := range s.Outcomes {
		if o.Status != model.StatusFailed {
			continue
		}
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("✖ " + o.Package.String()))
		if len(o.Attempted) > 0 {
			b.WriteString(DimStyle.Render(" tried " + strings.Join(o.Attempted, ", ")))
		}
	}

	b.WriteString("\n")
	b.WriteString(DimStyle.Render("run " + s.RunID))

	return BoxStyle.Render(b.String())
}
