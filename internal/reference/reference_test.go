package reference

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleENVI = `; ENVI Output of ROI Pixels
; Number of ROIs: 1
   0.1234   0.2345
   0.3456

   1.0000  -0.5000   2.5


   7.25
`

func TestParseENVI(t *testing.T) {
	series, err := ParseENVI(strings.NewReader(sampleENVI))
	if err != nil {
		t.Fatalf("ParseENVI: %v", err)
	}
	expected := [][]float64{{0.1234, 0.2345, 0.3456}, {1, -0.5, 2.5}, {7.25}}
	if len(series) != len(expected) {
		t.Fatalf("got %d series, expected %d: %v", len(series), len(expected), series)
	}
	for i := range expected {
		if len(series[i]) != len(expected[i]) {
			t.Fatalf("series %d = %v, expected %v", i, series[i], expected[i])
		}
		for j := range expected[i] {
			if series[i][j] != expected[i][j] {
				t.Errorf("series %d[%d] = %v, expected %v", i, j, series[i][j], expected[i][j])
			}
		}
	}
}

func TestParseENVIInvalid(t *testing.T) {
	if _, err := ParseENVI(strings.NewReader("0.1 abc\n")); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestENVIReaderRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasseled1999data.txt")
	if err := os.WriteFile(path, []byte(sampleENVI), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	series, err := NewENVIReader().Read(path, []string{"brightness", "greenness"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(series) != 3 || series[0].Name != "brightness" || series[1].Name != "greenness" || series[2].Name != "series 3" {
		t.Errorf("series = %+v", series)
	}
}

func TestENVIReaderAbsent(t *testing.T) {
	r := NewENVIReader()
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.txt")} {
		series, err := r.Read(path, nil)
		if err != nil || series != nil {
			t.Errorf("Read(%q) = %v, %v; expected nothing", path, series, err)
		}
	}
}
