package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Kanthalon/tassled-cap/internal/app"
	"github.com/Kanthalon/tassled-cap/internal/log"
	"github.com/Kanthalon/tassled-cap/pkg/config"
	"github.com/spf13/cobra"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

type globalFlags struct {
	cfgFile    string
	cfgBackend string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "landcover",
		Short: "Land-cover change analysis from Landsat imagery",
		Long: `landcover converts Landsat bands to top-of-atmosphere reflectance, projects
them onto the Tasseled Cap axes, classifies pixels with analyst-drawn polygons
and reports how class coverage changes between acquisition periods.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	rootCmd.PersistentFlags().StringVar(&flags.cfgBackend, "config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Turn on debugging output")

	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newConfigCmd(flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Classify every configured period and report change",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := openProvider(flags.cfgFile, flags.cfgBackend)
			if err != nil {
				return err
			}
			defer provider.Close()

			cfgData, err := provider.LoadConfig()
			if err != nil {
				return fmt.Errorf("error reading config file. Did you pass the --config flag? Run with -h for help: %w", err)
			}

			if err := initLogging(flags.debug || cfgData.Logging.Debug, cfgData.Logging.File); err != nil {
				return err
			}
			defer log.Sync()

			application := app.New(provider, log.GetSugaredLogger(), app.Options{
				Out: cmd.OutOrStdout(),
				In:  cmd.InOrStdin(),
			})
			if _, err := application.Run(context.Background()); err != nil {
				log.Errorf("Application error: %v", err)
				return err
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "landcover %s\n", version)
		},
	}
}

func initLogging(debug bool, file string) error {
	var err error
	if file != "" {
		err = log.InitWithFile(debug, file)
	} else {
		err = log.Init(debug)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func openProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
}
