package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// table renders aligned columns with a colored header. Individual columns
// can be styled per cell.
type table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	styles  map[int]func(cell string) *color.Color
	noColor bool
}

func newTable(w io.Writer, noColor bool, headers ...string) *table {
	return &table{
		writer:  w,
		headers: headers,
		styles:  make(map[int]func(string) *color.Color),
		noColor: noColor,
	}
}

// style colors column col with the color f picks for each cell; nil leaves
// a cell plain.
func (t *table) style(col int, f func(cell string) *color.Color) {
	t.styles[col] = f
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && utf8.RuneCountInString(cell) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell)
			}
		}
	}

	bold := t.color(color.Bold, color.FgCyan)
	for i, header := range t.headers {
		bold.Fprint(t.writer, padRight(header, widths[i]))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	gray := t.color(color.FgHiBlack)
	for i, width := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			// The last column is not padded.
			text := cell
			if i < len(row)-1 {
				text = padRight(cell, widths[i])
			}
			if f, ok := t.styles[i]; ok && !t.noColor {
				if c := f(cell); c != nil {
					text = c.Sprint(text)
				}
			}
			fmt.Fprint(t.writer, text)
			if i < len(row)-1 {
				fmt.Fprint(t.writer, "  ")
			}
		}
		fmt.Fprintln(t.writer)
	}
}

func (t *table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	}
	return c
}

// padRight pads s with spaces on the right to width runes.
func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
