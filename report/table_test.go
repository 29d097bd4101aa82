package report

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTable = Table{
	Tool:   "dedup",
	Name:   "dduper_dedup",
	Title:  "dduper results",
	Header: []string{"File size", "Ratio", "Reduction_%"},
	Rows: [][]string{
		{"16M", "4.00", "75%"},
		{"32M", "2.00", "50%"},
	},
}

func TestLaTeX(t *testing.T) {
	out := testTable.LaTeX()
	assert.True(t, strings.HasPrefix(out, "% dduper results\n"))
	assert.Contains(t, out, "\\begin{tabular}{lll}\n")
	assert.Contains(t, out, "File size & Ratio & Reduction\\_\\% \\\\\n")
	assert.Contains(t, out, "16M & 4.00 & 75\\% \\\\\n")
	assert.True(t, strings.HasSuffix(out, "\\end{tabular}\n"))
}

func TestLaTeXEscape(t *testing.T) {
	assert.Equal(t, `a\&b \$1 \#2 \{x\} \textbackslash{}`, latexEscaper.Replace(`a&b $1 #2 {x} \`))
}

func TestHTML(t *testing.T) {
	out := testTable.HTML()
	assert.Contains(t, out, "<table")
	assert.Contains(t, out, "File size")
	assert.Contains(t, out, "16M")
}

func TestCSV(t *testing.T) {
	out := testTable.CSV()
	assert.Contains(t, out, "File size,Ratio,Reduction_%")
	assert.Contains(t, out, "32M,2.00,50%")
}

func TestWriterWrite(t *testing.T) {
	w := Writer{Dir: t.TempDir()}
	require.NoError(t, w.Write(testTable))
	for format, file := range w.Paths(testTable) {
		data, err := os.ReadFile(file)
		require.NoError(t, err, format)
		assert.Contains(t, string(data), "16M", format)
	}
}
