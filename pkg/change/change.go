// Package change reports relative change of class coverage between periods.
package change

import (
	"errors"
	"fmt"

	"github.com/Kanthalon/tassled-cap/pkg/classify"
)

// ErrDivisionByZero is returned when the prior value of a change is zero.
var ErrDivisionByZero = errors.New("division by zero")

// Direction is the sense of a change, kept apart from its magnitude.
type Direction int

const (
	Unchanged Direction = iota
	Increased
	Decreased
)

func (d Direction) String() string {
	switch d {
	case Increased:
		return "increased"
	case Decreased:
		return "decreased"
	}
	return "unchanged"
}

// PercentChange returns the magnitude of the relative change from prior to
// current, in percent, and its direction.
func PercentChange(prior, current float64) (float64, Direction, error) {
	if prior == 0 {
		return 0, Unchanged, fmt.Errorf("%w: prior value is 0", ErrDivisionByZero)
	}
	ratio := 100 * (current / prior)
	switch {
	case current == prior:
		return 0, Unchanged, nil
	case current > prior:
		return ratio - 100, Increased, nil
	default:
		return 100 - ratio, Decreased, nil
	}
}

// Change is the relative change of one category between two periods.
type Change struct {
	Category  string
	From      string
	To        string
	Percent   float64
	Direction Direction
}

// Series computes pairwise changes of each category's percentage across
// consecutive summaries.
func Series(summaries []classify.Summary, categories []string) ([]Change, error) {
	var out []Change
	for i := 0; i+1 < len(summaries); i++ {
		prior, current := summaries[i], summaries[i+1]
		for _, c := range categories {
			pct, dir, err := PercentChange(prior.Percent(c), current.Percent(c))
			if err != nil {
				return nil, fmt.Errorf("%s between %s and %s: %w", c, prior.Period, current.Period, err)
			}
			out = append(out, Change{
				Category:  c,
				From:      prior.Period,
				To:        current.Period,
				Percent:   pct,
				Direction: dir,
			})
		}
	}
	return out, nil
}
