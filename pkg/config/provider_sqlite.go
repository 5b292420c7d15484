package config

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/Kanthalon/tassled-cap/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (creating if needed) a SQLite configuration database
// and brings its schema up to date.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(migrations, "migrations", "config_schema_migrations"), nil)
	if err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	if err := s.loadRunConfig(config); err != nil {
		return nil, fmt.Errorf("failed to load run config: %w", err)
	}

	periods, err := s.GetPeriods()
	if err != nil {
		return nil, fmt.Errorf("failed to load periods: %w", err)
	}
	config.Periods = periods

	classes, err := s.GetClasses()
	if err != nil {
		return nil, fmt.Errorf("failed to load classes: %w", err)
	}
	config.Classes = classes

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (s *SQLiteProvider) loadRunConfig(config *ConfigData) error {
	query := `
		SELECT width, height, abort_policy, output_dir, change_categories,
		       capture_mode, capture_listen_addr, capture_port, capture_timeout,
		       log_debug, log_file
		FROM run_config WHERE id = 1
	`

	var categories string
	err := s.db.QueryRow(query).Scan(
		&config.Run.Width, &config.Run.Height, &config.Run.AbortPolicy, &config.Run.OutputDir, &categories,
		&config.Capture.Mode, &config.Capture.ListenAddr, &config.Capture.Port, &config.Capture.Timeout,
		&config.Logging.Debug, &config.Logging.File,
	)
	if err == sql.ErrNoRows {
		// No row means all defaults
		return nil
	}
	if err != nil {
		return err
	}

	if categories != "" {
		config.Run.ChangeCategories = strings.Split(categories, ",")
	}
	return nil
}

// GetPeriods returns period configurations from the database
func (s *SQLiteProvider) GetPeriods() ([]PeriodData, error) {
	query := `
		SELECT label, scene_dir, origin_x, origin_y, sun_zenith_deg, earth_sun_distance_au,
		       use_scene_geometry, radiance_offset, acquisition_date, reference_reflectance, reference_tasseled_cap
		FROM periods
		ORDER BY position
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var periods []PeriodData
	for rows.Next() {
		var p PeriodData
		var zenith sql.NullFloat64
		err := rows.Scan(
			&p.Label, &p.SceneDir, &p.Origin.X, &p.Origin.Y, &zenith, &p.EarthSunDistanceAU,
			&p.UseSceneGeometry, &p.RadianceOffset, &p.AcquisitionDate, &p.Reference.Reflectance, &p.Reference.TasseledCap,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period row: %w", err)
		}
		if zenith.Valid {
			p.SunZenithDeg = &zenith.Float64
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	polygons, err := s.loadVertices(`period_label != ''`)
	if err != nil {
		return nil, err
	}
	for i := range periods {
		if byClass, ok := polygons[periods[i].Label]; ok {
			periods[i].Polygons = byClass
		}
	}

	return periods, nil
}

// GetClasses returns class configurations in priority order
func (s *SQLiteProvider) GetClasses() ([]ClassData, error) {
	rows, err := s.db.Query(`SELECT label, color, mandatory FROM classes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var classes []ClassData
	for rows.Next() {
		var c ClassData
		if err := rows.Scan(&c.Label, &c.Color, &c.Mandatory); err != nil {
			return nil, fmt.Errorf("failed to scan class row: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	defaults, err := s.loadVertices(`period_label = ''`)
	if err != nil {
		return nil, err
	}
	for i := range classes {
		classes[i].Polygon = defaults[""][classes[i].Label]
	}

	return classes, nil
}

// loadVertices returns period label -> class label -> ordered vertices
func (s *SQLiteProvider) loadVertices(where string) (map[string]map[string][]VertexData, error) {
	rows, err := s.db.Query(`
		SELECT period_label, class_label, x, y
		FROM polygon_vertices
		WHERE ` + where + `
		ORDER BY period_label, class_label, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query polygon vertices: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string][]VertexData)
	for rows.Next() {
		var period, class string
		var v VertexData
		if err := rows.Scan(&period, &class, &v.X, &v.Y); err != nil {
			return nil, fmt.Errorf("failed to scan vertex row: %w", err)
		}
		if out[period] == nil {
			out[period] = make(map[string][]VertexData)
		}
		out[period][class] = append(out[period][class], v)
	}
	return out, rows.Err()
}

// SaveConfig replaces the stored configuration with cfg
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"polygon_vertices", "classes", "periods", "run_config"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO run_config (id, width, height, abort_policy, output_dir, change_categories,
		                        capture_mode, capture_listen_addr, capture_port, capture_timeout,
		                        log_debug, log_file)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.Run.Width, cfg.Run.Height, cfg.Run.AbortPolicy, cfg.Run.OutputDir, strings.Join(cfg.Run.ChangeCategories, ","),
		cfg.Capture.Mode, cfg.Capture.ListenAddr, cfg.Capture.Port, cfg.Capture.Timeout,
		cfg.Logging.Debug, cfg.Logging.File,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run config: %w", err)
	}

	for i, c := range cfg.Classes {
		if _, err := tx.Exec(`INSERT INTO classes (position, label, color, mandatory) VALUES (?, ?, ?, ?)`,
			i, c.Label, c.Color, c.Mandatory); err != nil {
			return fmt.Errorf("failed to insert class %s: %w", c.Label, err)
		}
		if err := insertVertices(tx, c.Label, "", c.Polygon); err != nil {
			return err
		}
	}

	for i, p := range cfg.Periods {
		_, err := tx.Exec(`
			INSERT INTO periods (position, label, scene_dir, origin_x, origin_y, sun_zenith_deg,
			                     earth_sun_distance_au, use_scene_geometry, radiance_offset, acquisition_date,
			                     reference_reflectance, reference_tasseled_cap)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, p.Label, p.SceneDir, p.Origin.X, p.Origin.Y, p.SunZenithDeg,
			p.EarthSunDistanceAU, p.UseSceneGeometry, p.RadianceOffset, p.AcquisitionDate,
			p.Reference.Reflectance, p.Reference.TasseledCap,
		)
		if err != nil {
			return fmt.Errorf("failed to insert period %s: %w", p.Label, err)
		}
		for class, vertices := range p.Polygons {
			if err := insertVertices(tx, class, p.Label, vertices); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func insertVertices(tx *sql.Tx, class, period string, vertices []VertexData) error {
	for seq, v := range vertices {
		_, err := tx.Exec(`INSERT INTO polygon_vertices (class_label, period_label, seq, x, y) VALUES (?, ?, ?, ?, ?)`,
			class, period, seq, v.X, v.Y)
		if err != nil {
			return fmt.Errorf("failed to insert vertex %d of %s/%s: %w", seq, period, class, err)
		}
	}
	return nil
}

// IsReadOnly returns false since the database can be rewritten with SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
