// Package report writes the plain-text line reports of a run.
package report

import (
	"fmt"
	"io"

	"github.com/Kanthalon/tassled-cap/pkg/accuracy"
	"github.com/Kanthalon/tassled-cap/pkg/change"
	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var title = cases.Title(language.English)

// WritePeriod writes the pixel counts and percentages of one period, one
// category per pair of lines, followed by a blank line.
func WritePeriod(w io.Writer, s classify.Summary) error {
	ew := &errWriter{w: w}
	ew.printf("Results for %s:\n", s.Period)
	ew.printf("Total pixels: %d\n", s.Total)
	for _, c := range s.Categories {
		ew.printf("Pixels of %s: %d\n", c, s.Count(c))
		ew.printf("Percent %s: %%%.2f\n", c, s.Percent(c))
	}
	ew.printf("\n")
	return ew.err
}

// WriteChanges writes one sentence per change.
func WriteChanges(w io.Writer, changes []change.Change) error {
	ew := &errWriter{w: w}
	for _, c := range changes {
		ew.printf("%s %s by %%%.2f between %s and %s.\n", title.String(c.Category), c.Direction, c.Percent, c.From, c.To)
	}
	return ew.err
}

// WriteComparisons writes the agreement of a period's computed values with
// its reference data.
func WriteComparisons(w io.Writer, period string, comparisons []accuracy.Comparison) error {
	ew := &errWriter{w: w}
	ew.printf("Root mean square deviations for %s:\n", period)
	for _, c := range comparisons {
		ew.printf("%s: %.6f (slope %.4f, intercept %.4f, r² %.4f)\n", c.Name, c.RMSD, c.Fit.Slope, c.Fit.Intercept, c.Fit.RSquared)
	}
	ew.printf("\n")
	return ew.err
}

// errWriter keeps the first write error and drops everything after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
