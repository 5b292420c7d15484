package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Kanthalon/tassled-cap/internal/capture"
	"github.com/Kanthalon/tassled-cap/internal/imagery"
	"github.com/Kanthalon/tassled-cap/internal/metrics"
	"github.com/Kanthalon/tassled-cap/internal/reference"
	"github.com/Kanthalon/tassled-cap/internal/render"
	"github.com/Kanthalon/tassled-cap/internal/report"
	"github.com/Kanthalon/tassled-cap/pkg/accuracy"
	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"github.com/Kanthalon/tassled-cap/pkg/config"
	"github.com/Kanthalon/tassled-cap/pkg/raster"
	"github.com/Kanthalon/tassled-cap/pkg/reflectance"
	"github.com/Kanthalon/tassled-cap/pkg/tasseledcap"
	"go.uber.org/zap"
)

// pipeline carries one run's configuration through every period.
type pipeline struct {
	cfg     *config.ConfigData
	images  imagery.ImageSource
	scenes  imagery.CalibrationSource
	refs    reference.Reader
	capture capture.Capturer
	sink    render.Sink
	metrics *metrics.Metrics
	out     io.Writer
	logger  *zap.SugaredLogger
	palette render.Palette
}

func newPipeline(cfg *config.ConfigData, opts Options, logger *zap.SugaredLogger) (*pipeline, error) {
	palette := make(render.Palette, len(cfg.Classes))
	for _, c := range cfg.Classes {
		if c.Color == "" {
			continue
		}
		col, err := render.ParseHexColor(c.Color)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", c.Label, err)
		}
		palette[c.Label] = col
	}

	return &pipeline{
		cfg:     cfg,
		images:  opts.Images,
		scenes:  opts.Calibration,
		refs:    opts.Reference,
		capture: opts.Capturer,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		out:     opts.Out,
		logger:  logger,
		palette: palette,
	}, nil
}

func (p *pipeline) processPeriod(ctx context.Context, period config.PeriodData) (classify.Summary, error) {
	logger := p.logger.With("period", period.Label)
	window := raster.Window{X: period.Origin.X, Y: period.Origin.Y, Width: p.cfg.Run.Width, Height: p.cfg.Run.Height}

	scene, err := p.scenes.Scene(period.SceneDir)
	if err != nil {
		return classify.Summary{}, err
	}
	calibrations, err := scene.ReflectiveBands(offsetSource(period))
	if err != nil {
		return classify.Summary{}, err
	}
	geo := periodGeometry(period, scene, logger)

	logger.Infow("calculating reflectance", "window", window.String(), "sun_zenith_deg", geo.SunZenithDeg, "earth_sun_distance_au", geo.EarthSunDistanceAU)
	start := time.Now()
	bands := make([]raster.Band, len(calibrations))
	for i, cal := range calibrations {
		dn, err := p.images.Read(cal.File, window)
		if err != nil {
			return classify.Summary{}, fmt.Errorf("band %d: %w", cal.Number, err)
		}
		corrector, err := reflectance.NewCorrector(cal.Calibration, geo)
		if err != nil {
			return classify.Summary{}, fmt.Errorf("band %d: %w", cal.Number, err)
		}
		bands[i] = corrector.Correct(dn)
	}
	bandSet, err := raster.NewBandSet(bands)
	if err != nil {
		return classify.Summary{}, err
	}
	p.metrics.ObserveStage("reflectance", start)

	logger.Info("performing Tasseled Cap transformation")
	start = time.Now()
	tc, err := tasseledcap.Transform(bandSet)
	if err != nil {
		return classify.Summary{}, err
	}
	p.metrics.ObserveStage("tasseled_cap", start)

	p.validate(period, bandSet, tc, logger)

	points := tc.Points()
	p.draw(logger, "scatter", p.sink.Scatter(period.Label, points, nil, p.palette))

	regions := make([]classify.Region, 0, len(p.cfg.Classes))
	for _, class := range p.cfg.Classes {
		poly, err := p.capture.Capture(ctx, capture.Prompt{Period: period.Label, Label: class.Label}, points)
		if err != nil {
			return classify.Summary{}, fmt.Errorf("capturing %s polygon: %w", class.Label, err)
		}
		if poly.Empty() {
			logger.Warnw("class has no usable polygon", "class", class.Label, "vertices", len(poly.Vertices))
		}
		regions = append(regions, classify.Region{Label: class.Label, Polygon: poly, Mandatory: class.Mandatory})
	}

	start = time.Now()
	labels := classify.Classify(points, regions)
	summary, err := classify.Tally(period.Label, labels, classify.Labels(regions))
	if err != nil {
		return classify.Summary{}, err
	}
	p.metrics.ObserveStage("classify", start)
	if err := classify.CheckMandatory(summary, regions); err != nil {
		return summary, err
	}

	for _, c := range summary.Categories {
		p.metrics.PixelsClassified.WithLabelValues(period.Label, c).Add(float64(summary.Count(c)))
	}

	logger.Info("graphing selected points")
	p.draw(logger, "classified scatter", p.sink.Scatter(period.Label, points, labels, p.palette))
	p.draw(logger, "class map", p.sink.ClassMap(period.Label, labels, window.Width, window.Height, p.palette))

	if err := report.WritePeriod(p.out, summary); err != nil {
		return summary, fmt.Errorf("error writing report: %w", err)
	}
	return summary, nil
}

// draw logs a failed plot; images are diagnostics and never fail a period.
func (p *pipeline) draw(logger *zap.SugaredLogger, what string, err error) {
	if err != nil {
		logger.Warnw("could not render "+what, "error", err)
	}
}

func offsetSource(period config.PeriodData) imagery.OffsetSource {
	if period.RadianceOffset == config.RadianceOffsetMinimum {
		return imagery.OffsetMinimum
	}
	return imagery.OffsetAdd
}

// periodGeometry uses the configured geometry unless the period asks for the
// scene's own. Then the metadata values win, followed by values computed from
// the scene centre and acquisition time.
func periodGeometry(period config.PeriodData, scene *imagery.Scene, logger *zap.SugaredLogger) reflectance.Geometry {
	geo := reflectance.Geometry{
		SunZenithDeg:       period.SunZenith(),
		EarthSunDistanceAU: period.EarthSunDistanceAU,
	}
	if !period.UseSceneGeometry {
		return geo
	}

	centerTime, hasCenterTime := scene.AcquiredAt()
	switch {
	case scene.HasSunElevation:
		geo.SunZenithDeg = reflectance.ZenithFromElevation(scene.SunElevationDeg)
	case scene.HasCenter && hasCenterTime:
		geo.SunZenithDeg = reflectance.SolarPosition(scene.CenterLat, scene.CenterLon, centerTime).ZenithDeg
	}

	acquired := scene.DateAcquired
	if hasCenterTime {
		acquired = centerTime
	}
	if acquired.IsZero() {
		t, err := period.AcquiredAt()
		if err != nil {
			logger.Warnw("invalid acquisition_date", "error", err)
		}
		acquired = t
	}

	switch {
	case scene.HasEarthSunDistance:
		geo.EarthSunDistanceAU = scene.EarthSunDistanceAU
	case !acquired.IsZero():
		geo.EarthSunDistanceAU = reflectance.EarthSunDistance(acquired)
	}
	return geo
}

// validate compares against the period's reference files when present.
// Problems are logged and never fail the period.
func (p *pipeline) validate(period config.PeriodData, bands raster.BandSet, tc tasseledcap.Result, logger *zap.SugaredLogger) {
	bandNames := make([]string, len(reflectance.ReflectiveBandNumbers))
	computedBands := make([][]float64, len(bands))
	for i, n := range reflectance.ReflectiveBandNumbers {
		bandNames[i] = fmt.Sprintf("band %d", n)
		computedBands[i] = bands[i]
	}

	tcNames := make([]string, len(tasseledcap.Components))
	computedTC := make([][]float64, len(tasseledcap.Components))
	for i, c := range tasseledcap.Components {
		tcNames[i] = c.String()
		computedTC[i] = tc.Component(c)
	}

	var comparisons []accuracy.Comparison
	comparisons = append(comparisons, p.compare(period.Label, period.Reference.Reflectance, bandNames, computedBands, logger)...)
	comparisons = append(comparisons, p.compare(period.Label, period.Reference.TasseledCap, tcNames, computedTC, logger)...)
	if len(comparisons) == 0 {
		return
	}
	if err := report.WriteComparisons(p.out, period.Label, comparisons); err != nil {
		logger.Warnw("could not write comparisons", "error", err)
	}
}

func (p *pipeline) compare(label, path string, names []string, computed [][]float64, logger *zap.SugaredLogger) []accuracy.Comparison {
	series, err := p.refs.Read(path, names)
	if err != nil {
		logger.Warnw("skipping validation", "reference", path, "error", err)
		return nil
	}
	if len(series) == 0 {
		if path != "" {
			logger.Infow("reference file not found, skipping validation", "reference", path)
		}
		return nil
	}

	var out []accuracy.Comparison
	for i, s := range series {
		if i >= len(computed) {
			logger.Warnw("reference has more series than computed", "reference", path, "series", len(series))
			break
		}
		c, err := accuracy.Compare(s.Name, computed[i], s.Values)
		if err != nil {
			logger.Warnw("comparison failed", "series", s.Name, "error", err)
			continue
		}
		logger.Infow("reference comparison", "series", c.Name, "rmsd", c.RMSD, "slope", c.Fit.Slope, "intercept", c.Fit.Intercept, "r_squared", c.Fit.RSquared)
		p.draw(logger, "comparison", p.sink.Comparison(label, s.Name, computed[i], s.Values))
		out = append(out, c)
	}
	return out
}
