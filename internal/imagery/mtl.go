package imagery

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Kanthalon/tassled-cap/pkg/reflectance"
)

// CalibrationSource resolves a site to its scene metadata.
type CalibrationSource interface {
	Scene(site string) (*Scene, error)
}

// BandMeta is what the metadata file says about one sensor band.
type BandMeta struct {
	Number     int
	File       string
	Gain       float64
	Add        float64 // RADIANCE_ADD
	Minimum    float64 // RADIANCE_MINIMUM (LMIN)
	hasGain    bool
	hasAdd     bool
	hasMinimum bool
}

// OffsetSource selects the metadata key used as the additive radiance offset.
type OffsetSource int

const (
	// OffsetAdd prefers RADIANCE_ADD and falls back to RADIANCE_MINIMUM.
	OffsetAdd OffsetSource = iota
	// OffsetMinimum prefers RADIANCE_MINIMUM, as older processing chains
	// and their benchmark outputs did, and falls back to RADIANCE_ADD.
	OffsetMinimum
)

// Offset returns the band's additive offset for source; ok is false when
// the metadata carries neither key.
func (b *BandMeta) Offset(source OffsetSource) (offset float64, ok bool) {
	first, second := b.Add, b.Minimum
	hasFirst, hasSecond := b.hasAdd, b.hasMinimum
	if source == OffsetMinimum {
		first, second = second, first
		hasFirst, hasSecond = hasSecond, hasFirst
	}
	switch {
	case hasFirst:
		return first, true
	case hasSecond:
		return second, true
	}
	return 0, false
}

// Scene is the parsed metadata of one acquisition.
type Scene struct {
	Dir      string
	MetaFile string
	Bands    map[int]*BandMeta

	SunElevationDeg     float64
	HasSunElevation     bool
	EarthSunDistanceAU  float64
	HasEarthSunDistance bool
	DateAcquired        time.Time

	CenterLat     float64
	CenterLon     float64
	HasCenter     bool
	CenterTime    time.Duration // UTC offset from midnight
	HasCenterTime bool
	hasLat        bool
	hasLon        bool
}

// AcquiredAt combines DateAcquired with the scene centre time. ok is false
// when either is missing.
func (s *Scene) AcquiredAt() (t time.Time, ok bool) {
	if s.DateAcquired.IsZero() || !s.HasCenterTime {
		return time.Time{}, false
	}
	return s.DateAcquired.Add(s.CenterTime), true
}

// BandCalibration is a reflective band ready for correction.
type BandCalibration struct {
	Number int
	File   string
	reflectance.Calibration
}

// MTLSource treats a site identifier as a scene directory holding an *MTL.txt file.
type MTLSource struct{}

// NewMTLSource creates an MTL calibration source
func NewMTLSource() *MTLSource {
	return &MTLSource{}
}

// Scene locates and parses the metadata file in the scene directory.
func (s *MTLSource) Scene(dir string) (*Scene, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading scene directory: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "MTL.txt") {
			return ReadMTL(filepath.Join(dir, e.Name()))
		}
	}
	return nil, fmt.Errorf("no *MTL.txt metadata file in %s", dir)
}

var bandKey = regexp.MustCompile(`^(FILE_NAME|RADIANCE_MULT|RADIANCE_ADD|RADIANCE_MINIMUM)_BAND_(\d+)(_VCID_\d+)?$`)

// ReadMTL parses a Landsat MTL metadata file.
func ReadMTL(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening metadata file: %w", err)
	}
	defer f.Close()

	scene := &Scene{
		Dir:      filepath.Dir(path),
		MetaFile: path,
		Bands:    make(map[int]*BandMeta),
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)

		if err := scene.set(key, value); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading metadata file: %w", err)
	}

	return scene, nil
}

func (s *Scene) set(key, value string) error {
	switch key {
	case "SUN_ELEVATION":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		s.SunElevationDeg, s.HasSunElevation = v, true
		return nil
	case "EARTH_SUN_DISTANCE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		s.EarthSunDistanceAU, s.HasEarthSunDistance = v, true
		return nil
	case "SCENE_CENTER_LAT", "SCENE_CENTER_LON":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if key == "SCENE_CENTER_LAT" {
			s.CenterLat, s.hasLat = v, true
		} else {
			s.CenterLon, s.hasLon = v, true
		}
		s.HasCenter = s.hasLat && s.hasLon
		return nil
	case "SCENE_CENTER_TIME", "SCENE_CENTER_SCAN_TIME":
		d, err := parseTimeOfDay(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		s.CenterTime, s.HasCenterTime = d, true
		return nil
	case "DATE_ACQUIRED", "ACQUISITION_DATE":
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		s.DateAcquired = t
		return nil
	}

	m := bandKey.FindStringSubmatch(key)
	if m == nil {
		return nil
	}
	number, _ := strconv.Atoi(m[2])
	if m[3] != "" && m[3] != "_VCID_1" {
		// Keep the low-gain setting of a dual-gain thermal band
		return nil
	}

	band := s.Bands[number]
	if band == nil {
		band = &BandMeta{Number: number}
		s.Bands[number] = band
	}

	if m[1] == "FILE_NAME" {
		band.File = value
		return nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	switch m[1] {
	case "RADIANCE_MULT":
		band.Gain, band.hasGain = v, true
	case "RADIANCE_ADD":
		band.Add, band.hasAdd = v, true
	case "RADIANCE_MINIMUM":
		band.Minimum, band.hasMinimum = v, true
	}
	return nil
}

// ReflectiveBands returns the six reflective bands in BandSet order with
// their band files resolved against the scene directory. source picks the
// offset key when the metadata carries both.
func (s *Scene) ReflectiveBands(source OffsetSource) ([]BandCalibration, error) {
	out := make([]BandCalibration, 0, len(reflectance.ReflectiveBandNumbers))
	for _, number := range reflectance.ReflectiveBandNumbers {
		band := s.Bands[number]
		if band == nil || band.File == "" {
			return nil, fmt.Errorf("%s: no file name for band %d", s.MetaFile, number)
		}
		offset, hasOffset := band.Offset(source)
		if !band.hasGain || !hasOffset {
			return nil, fmt.Errorf("%s: missing radiance rescaling for band %d", s.MetaFile, number)
		}
		esun, err := reflectance.ESUNForBand(number)
		if err != nil {
			return nil, err
		}
		out = append(out, BandCalibration{
			Number: number,
			File:   filepath.Join(s.Dir, band.File),
			Calibration: reflectance.Calibration{
				Gain:   band.Gain,
				Offset: offset,
				ESUN:   esun,
			},
		})
	}
	return out, nil
}

// parseTimeOfDay reads "15:04:05.9999999Z" into an offset from midnight UTC.
func parseTimeOfDay(v string) (time.Duration, error) {
	v = strings.TrimSuffix(v, "Z")
	hms := strings.Split(v, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("expected hh:mm:ss, got %q", v)
	}
	h, err := strconv.Atoi(hms[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(hms[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(hms[2], 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second)), nil
}
