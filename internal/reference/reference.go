// Package reference reads externally computed results used to validate the
// pipeline, such as ENVI ASCII exports.
package reference

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Series is one named sequence of reference values.
type Series struct {
	Name   string
	Values []float64
}

// Reader loads reference series. A missing source yields no series and no error.
type Reader interface {
	Read(path string, names []string) ([]Series, error)
}

// ENVIReader reads ENVI ASCII exports: lines starting with ';' are comments and
// a blank line ends a series.
type ENVIReader struct{}

// NewENVIReader creates an ENVI ASCII reference reader
func NewENVIReader() *ENVIReader {
	return &ENVIReader{}
}

// Read parses path and names the series in order. Series beyond len(names)
// are named by position.
func (r *ENVIReader) Read(path string, names []string) ([]Series, error) {
	if path == "" {
		return nil, nil
	}

	values, err := ReadENVI(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]Series, len(values))
	for i, v := range values {
		name := fmt.Sprintf("series %d", i+1)
		if i < len(names) {
			name = names[i]
		}
		out[i] = Series{Name: name, Values: v}
	}
	return out, nil
}

// ReadENVI reads every series of the ENVI ASCII export at path.
func ReadENVI(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening reference file: %w", err)
	}
	defer f.Close()

	values, err := ParseENVI(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// ParseENVI splits an ENVI ASCII export into its series.
func ParseENVI(r io.Reader) ([][]float64, error) {
	var series [][]float64
	var current []float64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(line, ";") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			if len(current) > 0 {
				series = append(series, current)
				current = nil
			}
			continue
		}

		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q", lineNo, field)
			}
			current = append(current, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(current) > 0 {
		series = append(series, current)
	}
	return series, nil
}
