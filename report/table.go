// Package report exports result tables as HTML, LaTeX and CSV.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
)

// Table is a titled grid of cells.
type Table struct {
	Tool   string
	Name   string
	Title  string
	Header []string
	Rows   [][]string
}

func (t Table) writer() table.Writer {
	w := table.NewWriter()
	w.SetTitle(t.Title)
	// keep column names as written
	w.Style().Format.Header = text.FormatDefault
	w.AppendHeader(toRow(t.Header))
	for _, r := range t.Rows {
		w.AppendRow(toRow(r))
	}
	return w
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// HTML renders the table as an HTML fragment.
func (t Table) HTML() string {
	return t.writer().RenderHTML()
}

// CSV renders the table as CSV.
func (t Table) CSV() string {
	return t.writer().RenderCSV()
}

// Text renders the table for a terminal.
func (t Table) Text() string {
	return t.writer().Render()
}

// LaTeX renders the table as a tabular environment fragment.
func (t Table) LaTeX() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%% %s\n", t.Title)
	fmt.Fprintf(&b, "\\begin{tabular}{%s}\n", strings.Repeat("l", len(t.Header)))
	b.WriteString("\\hline\n")
	writeLaTeXRow(&b, t.Header)
	b.WriteString("\\hline\n")
	for _, r := range t.Rows {
		writeLaTeXRow(&b, r)
	}
	b.WriteString("\\hline\n")
	b.WriteString("\\end{tabular}\n")
	return b.String()
}

func writeLaTeXRow(w io.StringWriter, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = latexEscaper.Replace(c)
	}
	w.WriteString(strings.Join(escaped, " & ") + " \\\\\n")
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// Writer saves tables below Dir/tables/<format>/<tool>.
type Writer struct {
	Dir string
}

// Paths returns the files Write produces for t, by format.
func (w Writer) Paths(t Table) map[string]string {
	return map[string]string{
		"html":  filepath.Join(w.Dir, "tables", "html", t.Tool, t.Name+".html"),
		"latex": filepath.Join(w.Dir, "tables", "latex", t.Tool, t.Name+".tex"),
		"csv":   filepath.Join(w.Dir, "tables", "csv", t.Tool, t.Name+".csv"),
	}
}

// Write exports t in every format.
func (w Writer) Write(t Table) error {
	paths := w.Paths(t)
	contents := map[string]string{
		"html":  t.HTML() + "\n",
		"latex": t.LaTeX(),
		"csv":   t.CSV() + "\n",
	}
	for format, file := range paths {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return errors.Wrapf(err, "can't create %s table dir", format)
		}
		if err := os.WriteFile(file, []byte(contents[format]), 0644); err != nil {
			return errors.Wrapf(err, "can't write %s", file)
		}
	}
	return nil
}
