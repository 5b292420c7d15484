package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// YAML-specific structs with YAML tags
type configYAML struct {
	Run     RunYAML      `yaml:"run,omitempty"`
	Periods []PeriodYAML `yaml:"periods"`
	Classes []ClassYAML  `yaml:"classes"`
	Capture CaptureYAML  `yaml:"capture,omitempty"`
	Logging LoggingYAML  `yaml:"logging,omitempty"`
}

type RunYAML struct {
	Width            int      `yaml:"width,omitempty"`
	Height           int      `yaml:"height,omitempty"`
	AbortPolicy      string   `yaml:"abort_policy,omitempty"`
	OutputDir        string   `yaml:"output_dir,omitempty"`
	ChangeCategories []string `yaml:"change_categories,omitempty"`
}

type PeriodYAML struct {
	Label              string                 `yaml:"label"`
	SceneDir           string                 `yaml:"scene_dir"`
	Origin             OriginYAML             `yaml:"origin"`
	SunZenithDeg       *float64               `yaml:"sun_zenith_deg,omitempty"`
	EarthSunDistanceAU float64                `yaml:"earth_sun_distance_au,omitempty"`
	UseSceneGeometry   bool                   `yaml:"use_scene_geometry,omitempty"`
	RadianceOffset     string                 `yaml:"radiance_offset,omitempty"`
	AcquisitionDate    string                 `yaml:"acquisition_date,omitempty"`
	Reference          ReferenceYAML          `yaml:"reference,omitempty"`
	Polygons           map[string][][]float64 `yaml:"polygons,omitempty"`
}

type OriginYAML struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type ReferenceYAML struct {
	Reflectance string `yaml:"reflectance,omitempty"`
	TasseledCap string `yaml:"tasseled_cap,omitempty"`
}

type ClassYAML struct {
	Label     string      `yaml:"label"`
	Color     string      `yaml:"color,omitempty"`
	Mandatory bool        `yaml:"mandatory,omitempty"`
	Polygon   [][]float64 `yaml:"polygon,omitempty"`
}

type CaptureYAML struct {
	Mode       string `yaml:"mode,omitempty"`
	ListenAddr string `yaml:"listen_addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Timeout    string `yaml:"timeout,omitempty"`
}

type LoggingYAML struct {
	Debug bool   `yaml:"debug,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yamlConfig configYAML
	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Run: RunData{
			Width:            yamlConfig.Run.Width,
			Height:           yamlConfig.Run.Height,
			AbortPolicy:      yamlConfig.Run.AbortPolicy,
			OutputDir:        yamlConfig.Run.OutputDir,
			ChangeCategories: yamlConfig.Run.ChangeCategories,
		},
		Periods: make([]PeriodData, len(yamlConfig.Periods)),
		Classes: make([]ClassData, len(yamlConfig.Classes)),
		Capture: CaptureData{
			Mode:       yamlConfig.Capture.Mode,
			ListenAddr: yamlConfig.Capture.ListenAddr,
			Port:       yamlConfig.Capture.Port,
			Timeout:    yamlConfig.Capture.Timeout,
		},
		Logging: LoggingData{
			Debug: yamlConfig.Logging.Debug,
			File:  yamlConfig.Logging.File,
		},
	}

	for i, p := range yamlConfig.Periods {
		config.Periods[i] = PeriodData{
			Label:              p.Label,
			SceneDir:           p.SceneDir,
			Origin:             OriginData{X: p.Origin.X, Y: p.Origin.Y},
			SunZenithDeg:       p.SunZenithDeg,
			EarthSunDistanceAU: p.EarthSunDistanceAU,
			UseSceneGeometry:   p.UseSceneGeometry,
			RadianceOffset:     p.RadianceOffset,
			AcquisitionDate:    p.AcquisitionDate,
			Reference: ReferenceData{
				Reflectance: p.Reference.Reflectance,
				TasseledCap: p.Reference.TasseledCap,
			},
		}
		if len(p.Polygons) > 0 {
			config.Periods[i].Polygons = make(map[string][]VertexData, len(p.Polygons))
			for label, vertices := range p.Polygons {
				v, err := vertexData(vertices)
				if err != nil {
					return nil, fmt.Errorf("period %s, class %s: %w", p.Label, label, err)
				}
				config.Periods[i].Polygons[label] = v
			}
		}
	}

	for i, c := range yamlConfig.Classes {
		v, err := vertexData(c.Polygon)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", c.Label, err)
		}
		config.Classes[i] = ClassData{
			Label:     c.Label,
			Color:     c.Color,
			Mandatory: c.Mandatory,
			Polygon:   v,
		}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// vertexData converts [x, y] pairs from YAML flow sequences
func vertexData(pairs [][]float64) ([]VertexData, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make([]VertexData, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("vertex %d has %d coordinates, expected 2", i, len(p))
		}
		out[i] = VertexData{X: p[0], Y: p[1]}
	}
	return out, nil
}

// GetPeriods returns period configurations
func (y *YAMLProvider) GetPeriods() ([]PeriodData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Periods, nil
}

// GetClasses returns class configurations in priority order
func (y *YAMLProvider) GetClasses() ([]ClassData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Classes, nil
}

// IsReadOnly returns true as YAML provider is read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
