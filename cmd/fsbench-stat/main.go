// Command fsbench-stat prints summary statistics of the charts in an archive.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/fsdedup/fsbench/archive"
	"github.com/fsdedup/fsbench/chart"
	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func main() {
	prefix := flag.String("prefix", "", "only charts whose key starts with `prefix`, e.g. df/")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "[-prefix p] <archive>")
		os.Exit(1)
	}
	a, err := archive.OpenReadOnly(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()
	if err := printStats(os.Stdout, a, *prefix); err != nil {
		log.Fatal(err)
	}
}

// seriesStats summarizes one series of a chart.
type seriesStats struct {
	key, series    string
	n              int
	mean, std      float64
	min, max       float64
	minCat, maxCat string
}

func statsOf(c chart.Chart) []seriesStats {
	var out []seriesStats
	for _, s := range c.Series {
		if len(s.Values) == 0 {
			continue
		}
		st := seriesStats{key: c.Key(), series: s.Label, n: len(s.Values)}
		st.mean, st.std = stat.MeanStdDev(s.Values, nil)
		if st.n < 2 {
			st.std = 0
		}
		lo, hi := floats.MinIdx(s.Values), floats.MaxIdx(s.Values)
		st.min, st.max = s.Values[lo], s.Values[hi]
		if lo < len(c.Categories) {
			st.minCat = c.Categories[lo]
		}
		if hi < len(c.Categories) {
			st.maxCat = c.Categories[hi]
		}
		out = append(out, st)
	}
	return out
}

func printStats(w io.Writer, a *archive.Archive, prefix string) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Chart", "Series", "Bars", "Mean", "Std dev", "Min", "Max"})
	err := a.Each(prefix, func(c chart.Chart) error {
		for _, st := range statsOf(c) {
			t.AppendRow(table.Row{
				st.key, st.series, st.n,
				format(st.mean), format(st.std),
				format(st.min) + " (" + st.minCat + ")",
				format(st.max) + " (" + st.maxCat + ")",
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.Render()
	return nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
