package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"github.com/golang/geo/r2"
)

// TerminalCapturer prompts on out and reads one "x y" vertex per line from in
// until a blank line or end of input.
type TerminalCapturer struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewTerminalCapturer creates a capturer reading vertices from in
func NewTerminalCapturer(in io.Reader, out io.Writer) *TerminalCapturer {
	return &TerminalCapturer{in: bufio.NewScanner(in), out: out}
}

func (t *TerminalCapturer) Capture(ctx context.Context, prompt Prompt, points []r2.Point) (classify.Polygon, error) {
	bounds := r2.RectFromPoints(points...)
	fmt.Fprintf(t.out, "Polygon vertices for %s (%s):\n", strings.ToLower(prompt.Label), prompt.Period)
	if len(points) > 0 {
		fmt.Fprintf(t.out, "%d points, brightness %.4f to %.4f, greenness %.4f to %.4f\n",
			len(points), bounds.X.Lo, bounds.X.Hi, bounds.Y.Lo, bounds.Y.Hi)
	}
	fmt.Fprintln(t.out, "Enter one \"x y\" vertex per line, blank line to finish.")

	var vertices []r2.Point
	for {
		if err := ctx.Err(); err != nil {
			return classify.Polygon{}, err
		}
		if !t.in.Scan() {
			break
		}
		line := strings.TrimSpace(t.in.Text())
		if line == "" {
			break
		}
		pt, err := parseVertex(line)
		if err != nil {
			fmt.Fprintf(t.out, "ignoring %q: %v\n", line, err)
			continue
		}
		vertices = append(vertices, pt)
	}
	if err := t.in.Err(); err != nil {
		return classify.Polygon{}, fmt.Errorf("error reading vertices: %w", err)
	}

	for _, v := range vertices {
		fmt.Fprintf(t.out, "[%v, %v]\n", v.X, v.Y)
	}
	fmt.Fprintln(t.out)
	return classify.NewPolygon(vertices), nil
}

func parseVertex(line string) (r2.Point, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) != 2 {
		return r2.Point{}, fmt.Errorf("expected two coordinates")
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return r2.Point{}, err
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return r2.Point{}, err
	}
	return r2.Point{X: x, Y: y}, nil
}
