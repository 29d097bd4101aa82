// Command fsbench-diff compares the chart archives of two report runs.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fsdedup/fsbench/archive"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "<archive A> <archive B>")
		os.Exit(1)
	}
	dirA, dirB := os.Args[1], os.Args[2]
	a, err := archive.OpenReadOnly(dirA)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()
	b, err := archive.OpenReadOnly(dirB)
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	n, err := printDiff(os.Stdout, dirA, dirB, a, b)
	if err != nil {
		log.Fatal(err)
	}
	if n > 0 {
		os.Exit(2)
	}
}

// printDiff writes one line per difference and returns how many there were.
func printDiff(w io.Writer, dirA, dirB string, a, b *archive.Archive) (int, error) {
	n := 0
	err := archive.Diff(a, b, func(d archive.Difference) {
		// show A/B if not displayed yet
		if n == 0 {
			fmt.Fprintln(w, "A:", dirA, "B:", dirB)
		}
		n++
		switch {
		case d.Category == "":
			fmt.Fprintf(w, "%s %s\n", d.Key, d.Kind)
		case d.Kind == archive.ValueChanged:
			fmt.Fprintf(w, "%s [%s] %s: %.3f -> %.3f (%+.1f%%)\n", d.Key, barName(d), d.Kind, d.A, d.B, d.Change()*100)
		default:
			fmt.Fprintf(w, "%s [%s] %s\n", d.Key, barName(d), d.Kind)
		}
	})
	return n, err
}

func barName(d archive.Difference) string {
	if d.Series == "" {
		return d.Category
	}
	return d.Series + " " + d.Category
}
