package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Kanthalon/tassled-cap/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and convert configuration",
	}
	cmd.AddCommand(newConfigConvertCmd())
	cmd.AddCommand(newConfigCheckCmd(flags))
	return cmd
}

func newConfigConvertCmd() *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "convert <config.yaml> <config.db>",
		Short: "Convert a YAML configuration into a SQLite database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			yamlFile, sqliteFile := args[0], args[1]
			out := cmd.OutOrStdout()

			if _, err := os.Stat(yamlFile); os.IsNotExist(err) {
				return fmt.Errorf("YAML file does not exist: %s", yamlFile)
			}
			if _, err := os.Stat(sqliteFile); err == nil && !force {
				return fmt.Errorf("SQLite file already exists: %s (use --force to overwrite)", sqliteFile)
			}

			fmt.Fprintf(out, "Converting YAML configuration to SQLite...\n")
			fmt.Fprintf(out, "  Source: %s\n", yamlFile)
			fmt.Fprintf(out, "  Target: %s\n", sqliteFile)

			cfgData, err := config.NewYAMLProvider(yamlFile).LoadConfig()
			if err != nil {
				return fmt.Errorf("error loading YAML configuration: %w", err)
			}
			fmt.Fprintf(out, "  Loaded %d periods, %d classes\n", len(cfgData.Periods), len(cfgData.Classes))

			if dryRun {
				fmt.Fprintln(out, "DRY RUN complete - no database created")
				return nil
			}

			if force {
				if err := os.Remove(sqliteFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("error removing existing SQLite file: %w", err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(sqliteFile), 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

			store, err := config.NewSQLiteProvider(sqliteFile)
			if err != nil {
				return fmt.Errorf("error creating SQLite database: %w", err)
			}
			defer store.Close()

			if err := store.SaveConfig(cfgData); err != nil {
				return fmt.Errorf("error loading configuration into SQLite: %w", err)
			}

			fmt.Fprintf(out, "Conversion completed successfully!\n")
			fmt.Fprintf(out, "You can now use the SQLite backend with: --config-backend sqlite --config %s\n", sqliteFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing SQLite database")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	return cmd
}

func newConfigCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := openProvider(flags.cfgFile, flags.cfgBackend)
			if err != nil {
				return err
			}
			defer provider.Close()

			cfgData, err := provider.LoadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %d periods, %d classes, capture mode %s, abort policy %s\n",
				len(cfgData.Periods), len(cfgData.Classes), cfgData.Capture.Mode, cfgData.Run.AbortPolicy)
			for _, p := range cfgData.Periods {
				fmt.Fprintf(out, "  period %s: %s\n", p.Label, p.SceneDir)
			}
			for _, c := range cfgData.Classes {
				mandatory := ""
				if c.Mandatory {
					mandatory = " (mandatory)"
				}
				fmt.Fprintf(out, "  class %s%s: %d default vertices\n", c.Label, mandatory, len(c.Polygon))
			}
			return nil
		},
	}
}
