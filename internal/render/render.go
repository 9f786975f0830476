package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/classify"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

const (
	EmptyHistory = "No scan history yet"

	// maxDataWidth truncates long payloads in the history table.
	maxDataWidth = 48
)

// History renders records newest first as a table.
func History(th Theme, recs []types.ScanRecord) string {
	if len(recs) == 0 {
		return th.Muted.Render(EmptyHistory)
	}

	headers := []string{"ID", "SCANNED", "TYPE", "DATA"}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(r.Type),
			truncate(oneLine(r.Data), maxDataWidth),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	for i, h := range headers {
		sb.WriteString(th.Header.Render(pad(h, widths[i])))
		if i < len(headers)-1 {
			sb.WriteString("  ")
		}
	}
	sb.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			style := th.Body
			if i == 2 {
				style = th.Badge
			}
			sb.WriteString(style.Render(pad(cell, widths[i])))
			if i < len(row)-1 {
				sb.WriteString("  ")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString(th.Muted.Render(fmt.Sprintf("%d record(s)", len(recs))))
	return sb.String()
}

// Result renders a decoded or classified payload with its suggested action.
func Result(th Theme, res classify.Result) string {
	lines := []string{
		th.Title.Render("Scan Result"),
		th.Body.Render(res.Data),
		th.Muted.Render("Type: ") + th.Badge.Render(string(res.Category)),
	}
	if res.Action != nil {
		lines = append(lines, Action(th, res.Action))
	}
	return th.Box.Render(strings.Join(lines, "\n"))
}

func Action(th Theme, a *types.Action) string {
	if a == nil {
		return ""
	}
	if a.Kind == types.ActionNotice {
		return th.Warning.Render(a.Label + ": " + a.Target)
	}
	return th.Action.Render(a.Label) + th.Muted.Render(" → "+a.Target)
}

func Error(th Theme, err error) string {
	return th.Error.Render("error: ") + th.Body.Render(err.Error())
}

// Symbol draws a module grid with half-block characters, two rows of
// modules per line.  Dark modules are printed as spaces on a light
// background so the code scans from a dark terminal.
func Symbol(modules [][]bool) string {
	var sb strings.Builder
	for y := 0; y < len(modules); y += 2 {
		for x := range modules[y] {
			top := modules[y][x]
			bottom := y+1 < len(modules) && modules[y+1][x]
			switch {
			case top && bottom:
				sb.WriteRune(' ')
			case top:
				sb.WriteRune('▄')
			case bottom:
				sb.WriteRune('▀')
			default:
				sb.WriteRune('█')
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func pad(s string, w int) string {
	if d := w - lipgloss.Width(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
