package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const previewCellWidth = 15

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#94A3B8"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	todayStyle   = lipgloss.NewStyle().Reverse(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	wrapperStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#475569")).
			Padding(0, 1)
)

// WritePreview prints v to w, with colors only when w is a terminal.
func WritePreview(w io.Writer, v MonthView) error {
	_, err := fmt.Fprintln(w, Preview(v, isTerminal(w)))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Preview renders the month grid as text: one block per day with the day
// number and its entries, Sunday first, then the footer.
func Preview(v MonthView, color bool) string {
	paint := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	cell := lipgloss.NewStyle().Width(previewCellWidth).Height(1 + MaxEntries)

	header := make([]string, 7)
	for i, name := range Weekdays {
		st := headerStyle
		if i == 0 || i == 6 {
			st = redStyle
		}
		header[i] = cell.Height(1).Render(paint(st, name))
	}

	grid := make([][]string, v.Rows)
	for r := range grid {
		grid[r] = make([]string, 7)
		for c := range grid[r] {
			grid[r][c] = cell.Render("")
		}
	}
	for _, d := range v.Days {
		num := fmt.Sprintf("%2d", d.Day)
		switch {
		case d.Today:
			num = paint(todayStyle, num)
		case d.Red:
			num = paint(redStyle, num)
		}
		lines := []string{num}
		for i, e := range d.Entries {
			text := truncate("・"+e.Title, previewCellWidth-1)
			if i == MaxEntries-1 && d.Hidden > 0 {
				text = truncate(text, previewCellWidth-4) + dimMore(d.Hidden, paint)
			}
			if e.Holiday {
				text = paint(redStyle, text)
			}
			lines = append(lines, text)
		}
		grid[d.Row][d.Column] = cell.Render(strings.Join(lines, "\n"))
	}

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}
	for _, r := range grid {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, r...))
	}
	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if color {
		body = wrapperStyle.Render(body)
	}

	title := paint(titleStyle, fmt.Sprintf("%d/%d", v.Year, v.Month))
	return strings.Join([]string{title, body, paint(dimStyle, v.Footer)}, "\n")
}

func dimMore(n int, paint func(lipgloss.Style, string) string) string {
	return paint(dimStyle, fmt.Sprintf("+%d", n))
}

// truncate cuts s to at most width terminal cells.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > width {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
