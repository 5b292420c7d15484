package classify

import (
	"fmt"

	"github.com/Kanthalon/tassled-cap/pkg/raster"
	"github.com/golang/geo/r2"
)

// Unclassified is the label of a pixel that falls inside no region.
const Unclassified = "unclassified"

// Region is a labelled polygon. Mandatory regions must capture at least one
// pixel for a period's results to be reported.
type Region struct {
	Label     string
	Polygon   Polygon
	Mandatory bool
}

// Classify labels every point with the first region, in the order given,
// whose polygon contains it. Points matching no region get Unclassified.
func Classify(points []r2.Point, regions []Region) []string {
	labels := make([]string, len(points))
	for i, pt := range points {
		labels[i] = Unclassified
		for _, r := range regions {
			if r.Polygon.Contains(pt) {
				labels[i] = r.Label
				break
			}
		}
	}
	return labels
}

// Summary is the tally of one period's classification.
type Summary struct {
	Period string
	Total  int
	// Categories keeps region order, followed by Unclassified.
	Categories []string
	Counts     map[string]int
}

// Count returns the number of pixels carrying label.
func (s Summary) Count(label string) int {
	return s.Counts[label]
}

// Percent returns 100·count/total for label.
func (s Summary) Percent(label string) float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Counts[label]) / float64(s.Total)
}

// Tally counts labels. categories fixes the reporting order; labels not listed
// are appended in first-seen order.
func Tally(period string, labels []string, categories []string) (Summary, error) {
	if len(labels) == 0 {
		return Summary{}, fmt.Errorf("%w: no pixels to tally for period %s", raster.ErrEmptyInput, period)
	}

	s := Summary{
		Period: period,
		Total:  len(labels),
		Counts: make(map[string]int, len(categories)+1),
	}

	seen := make(map[string]bool, len(categories)+1)
	for _, c := range categories {
		if !seen[c] {
			seen[c] = true
			s.Categories = append(s.Categories, c)
			s.Counts[c] = 0
		}
	}
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			s.Categories = append(s.Categories, l)
		}
		s.Counts[l]++
	}
	return s, nil
}

// MandatoryCategoryEmptyError reports a mandatory region that selected no pixels.
type MandatoryCategoryEmptyError struct {
	Period   string
	Category string
}

func (e *MandatoryCategoryEmptyError) Error() string {
	return fmt.Sprintf("no %s cover selected for period %s", e.Category, e.Period)
}

// CheckMandatory returns a *MandatoryCategoryEmptyError for the first
// mandatory region with a zero count.
func CheckMandatory(s Summary, regions []Region) error {
	for _, r := range regions {
		if r.Mandatory && s.Counts[r.Label] == 0 {
			return &MandatoryCategoryEmptyError{Period: s.Period, Category: r.Label}
		}
	}
	return nil
}

// Labels returns the region labels in priority order.
func Labels(regions []Region) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.Label
	}
	return out
}
