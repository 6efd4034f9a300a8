// Package format renders terminal and Markdown tables for run summaries
// and outcome reports.
package format

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode selects the rendering.
type Mode int

const (
	ASCII    Mode = iota // box-drawn terminal table
	Markdown             // GitHub-flavoured Markdown
)

// ParseMode maps a --format flag value to a Mode; anything but
// "markdown" or "md" renders as ASCII.
func ParseMode(s string) Mode {
	switch s {
	case "markdown", "md":
		return Markdown
	}
	return ASCII
}

// Align is the horizontal alignment of a column.
type Align int

const (
	AlignDefault Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Column configures one 1-based column.
type Column struct {
	Number   int
	Align    Align
	MaxWidth int // 0 = unlimited
}

// Table collects rows and renders them once.
type Table interface {
	Title(s string)
	Header(cols ...string)
	Row(vals ...any)
	Footer(vals ...any)
	Columns(cfgs ...Column)
	String() string
}

// NewTable returns a Table rendering in mode m.
func NewTable(m Mode) Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &prettyTable{w: w, mode: m}
}

type prettyTable struct {
	w    table.Writer
	mode Mode
}

func (t *prettyTable) Title(s string) { t.w.SetTitle(s) }

func (t *prettyTable) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.w.AppendHeader(row)
}

func (t *prettyTable) Row(vals ...any) { t.w.AppendRow(table.Row(vals)) }

func (t *prettyTable) Footer(vals ...any) { t.w.AppendFooter(table.Row(vals)) }

func (t *prettyTable) Columns(cfgs ...Column) {
	out := make([]table.ColumnConfig, len(cfgs))
	for i, c := range cfgs {
		out[i] = table.ColumnConfig{Number: c.Number, Align: textAlign(c.Align), WidthMax: c.MaxWidth}
	}
	t.w.SetColumnConfigs(out)
}

func (t *prettyTable) String() string {
	if t.mode == Markdown {
		return t.w.RenderMarkdown()
	}
	return t.w.Render()
}

func textAlign(a Align) text.Align {
	switch a {
	case AlignLeft:
		return text.AlignLeft
	case AlignRight:
		return text.AlignRight
	case AlignCenter:
		return text.AlignCenter
	}
	return text.AlignDefault
}
