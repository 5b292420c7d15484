package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kanthalon/tassled-cap/pkg/reflectance"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetPeriods() ([]PeriodData, error)
	GetClasses() ([]ClassData, error)

	IsReadOnly() bool
	Close() error
}

// Geometry of the reference acquisition, used when a period sets none
const (
	DefaultSunZenithDeg       = reflectance.DefaultSunZenithDeg
	DefaultEarthSunDistanceAU = reflectance.DefaultEarthSunDistanceAU
)

// Radiance offset keys read from scene metadata
const (
	RadianceOffsetAdd     = "add"
	RadianceOffsetMinimum = "minimum"
)

// Abort policies for a period whose mandatory class selected nothing
const (
	AbortPeriod = "period"
	AbortRun    = "run"
)

// Capture surface modes
const (
	CaptureStatic   = "static"
	CaptureTerminal = "terminal"
	CaptureHTTP     = "http"
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Run     RunData      `json:"run"`
	Periods []PeriodData `json:"periods"`
	Classes []ClassData  `json:"classes"`
	Capture CaptureData  `json:"capture,omitempty"`
	Logging LoggingData  `json:"logging,omitempty"`
}

// RunData holds settings shared by every period of a run
type RunData struct {
	Width            int      `json:"width,omitempty"`
	Height           int      `json:"height,omitempty"`
	AbortPolicy      string   `json:"abort_policy,omitempty"`
	OutputDir        string   `json:"output_dir,omitempty"`
	ChangeCategories []string `json:"change_categories,omitempty"`
}

// PeriodData describes one acquisition to classify
type PeriodData struct {
	Label              string                  `json:"label"`
	SceneDir           string                  `json:"scene_dir"`
	Origin             OriginData              `json:"origin"`
	SunZenithDeg       *float64                `json:"sun_zenith_deg,omitempty"`
	EarthSunDistanceAU float64                 `json:"earth_sun_distance_au,omitempty"`
	UseSceneGeometry   bool                    `json:"use_scene_geometry,omitempty"`
	RadianceOffset     string                  `json:"radiance_offset,omitempty"`
	AcquisitionDate    string                  `json:"acquisition_date,omitempty"`
	Reference          ReferenceData           `json:"reference,omitempty"`
	Polygons           map[string][]VertexData `json:"polygons,omitempty"`
}

// SunZenith is the configured zenith angle, or the default when unset.
// Zero is a valid zenith (sun overhead).
func (p PeriodData) SunZenith() float64 {
	if p.SunZenithDeg == nil {
		return DefaultSunZenithDeg
	}
	return *p.SunZenithDeg
}

// AcquiredAt parses AcquisitionDate; the zero time means unknown.
func (p PeriodData) AcquiredAt() (time.Time, error) {
	if p.AcquisitionDate == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", p.AcquisitionDate)
}

// OriginData is the top-left pixel of the analysis window
type OriginData struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ReferenceData names externally computed results to validate against
type ReferenceData struct {
	Reflectance string `json:"reflectance,omitempty"`
	TasseledCap string `json:"tasseled_cap,omitempty"`
}

// ClassData is one land-cover class. Order in ConfigData.Classes is priority order.
type ClassData struct {
	Label     string       `json:"label"`
	Color     string       `json:"color,omitempty"`
	Mandatory bool         `json:"mandatory,omitempty"`
	Polygon   []VertexData `json:"polygon,omitempty"`
}

// VertexData is a point in brightness/greenness space
type VertexData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CaptureData configures how class polygons are obtained
type CaptureData struct {
	Mode       string `json:"mode,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout; zero means wait indefinitely.
func (c CaptureData) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Timeout)
}

// LoggingData configures the logger
type LoggingData struct {
	Debug bool   `json:"debug,omitempty"`
	File  string `json:"file,omitempty"`
}

// ApplyDefaults fills unset values with the reference run's settings
func (c *ConfigData) ApplyDefaults() {
	if c.Run.Width == 0 {
		c.Run.Width = 401
	}
	if c.Run.Height == 0 {
		c.Run.Height = 401
	}
	if c.Run.AbortPolicy == "" {
		c.Run.AbortPolicy = AbortPeriod
	}
	if c.Run.OutputDir == "" {
		c.Run.OutputDir = "."
	}
	if len(c.Run.ChangeCategories) == 0 {
		for _, class := range c.Classes {
			if class.Mandatory {
				c.Run.ChangeCategories = append(c.Run.ChangeCategories, class.Label)
			}
		}
	}
	if c.Capture.Mode == "" {
		c.Capture.Mode = CaptureStatic
	}
	if c.Capture.Mode == CaptureHTTP && c.Capture.Port == 0 {
		c.Capture.Port = 8080
	}
	for i := range c.Periods {
		p := &c.Periods[i]
		if p.SunZenithDeg == nil {
			zenith := DefaultSunZenithDeg
			p.SunZenithDeg = &zenith
		}
		if p.EarthSunDistanceAU == 0 {
			p.EarthSunDistanceAU = DefaultEarthSunDistanceAU
		}
		if p.RadianceOffset == "" {
			p.RadianceOffset = RadianceOffsetAdd
		}
	}
}

// Validate checks the configuration for errors a run would trip over later
func (c *ConfigData) Validate() error {
	if len(c.Periods) == 0 {
		return fmt.Errorf("no periods configured")
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("no classes configured")
	}

	switch c.Run.AbortPolicy {
	case AbortPeriod, AbortRun:
	default:
		return fmt.Errorf("unsupported abort_policy %q: use %q or %q", c.Run.AbortPolicy, AbortPeriod, AbortRun)
	}

	switch c.Capture.Mode {
	case CaptureStatic, CaptureTerminal, CaptureHTTP:
	default:
		return fmt.Errorf("unsupported capture mode %q", c.Capture.Mode)
	}
	if _, err := c.Capture.TimeoutDuration(); err != nil {
		return fmt.Errorf("invalid capture timeout: %w", err)
	}

	classes := make(map[string]bool, len(c.Classes))
	for _, class := range c.Classes {
		label := strings.TrimSpace(class.Label)
		if label == "" {
			return fmt.Errorf("class with empty label")
		}
		if classes[label] {
			return fmt.Errorf("duplicate class %q", label)
		}
		classes[label] = true
	}
	for _, cat := range c.Run.ChangeCategories {
		if !classes[cat] {
			return fmt.Errorf("change category %q is not a configured class", cat)
		}
	}

	periods := make(map[string]bool, len(c.Periods))
	for _, p := range c.Periods {
		if p.Label == "" {
			return fmt.Errorf("period with empty label")
		}
		if periods[p.Label] {
			return fmt.Errorf("duplicate period %q", p.Label)
		}
		periods[p.Label] = true
		if p.SceneDir == "" {
			return fmt.Errorf("period %s: scene_dir is required", p.Label)
		}
		if _, err := p.AcquiredAt(); err != nil {
			return fmt.Errorf("period %s: invalid acquisition_date: %w", p.Label, err)
		}
		switch p.RadianceOffset {
		case RadianceOffsetAdd, RadianceOffsetMinimum:
		default:
			return fmt.Errorf("period %s: unsupported radiance_offset %q: use %q or %q", p.Label, p.RadianceOffset, RadianceOffsetAdd, RadianceOffsetMinimum)
		}
		if z := p.SunZenith(); z < 0 || z >= 90 {
			return fmt.Errorf("period %s: sun_zenith_deg %v is outside [0, 90)", p.Label, z)
		}
		for label := range p.Polygons {
			if !classes[label] {
				return fmt.Errorf("period %s: polygon for unknown class %q", p.Label, label)
			}
		}
	}

	return nil
}
