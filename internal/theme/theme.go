// Package theme styles the command-line output.
package theme

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/todosync/internal/store"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for section headers.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// MutedStyle is used for secondary text.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	warnStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	nameStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
)

// Header renders a section header.
func Header(text string) string {
	return HeaderStyle.Render(text)
}

// CheckLine renders the result of probing one dependency.
func CheckLine(name, detail string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s %s %s", failStyle.Render("✗"), nameStyle.Render(name), err)
	}
	return fmt.Sprintf("%s %s %s", okStyle.Render("✓"), nameStyle.Render(name), MutedStyle.Render(detail))
}

// CyclesTable renders journaled cycles, newest first.
func CyclesTable(cycles []store.Cycle) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers("SYNCHRONIZER", "STARTED", "TOOK", "CREATED", "COMPLETED", "REOPENED", "READ", "DELETED", "PENDING", "RESULT")

	for _, c := range cycles {
		t.Row(
			c.Synchronizer,
			c.StartedAt.Local().Format("2006-01-02 15:04:05"),
			c.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(c.Created),
			strconv.Itoa(c.Completed),
			strconv.Itoa(c.Uncompleted),
			strconv.Itoa(c.MarkedRead),
			strconv.Itoa(c.Deleted),
			strconv.Itoa(c.Pending),
			result(c),
		)
	}

	return t.Render()
}

func result(c store.Cycle) string {
	if c.Failed() {
		return failStyle.Render(c.Error)
	}
	if c.Pending > 0 {
		return warnStyle.Render("ok, pending")
	}
	return okStyle.Render("ok")
}
