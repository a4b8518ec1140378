package dondetu

import (
	"context"
	"fmt"
	"os"

	"github.com/dondetu/dondetu/pkg/logger"
	"github.com/spf13/cobra"
)

// Main runs the dondetu command line with args (without the program name).
// It can be called directly from tests without building the binary; cancelling
// ctx stops a running server gracefully.
//
//	dondetu run                              # serve the API
//	dondetu --backend sqlite migrate         # create tables
//	dondetu seed -f places.yaml              # load a seed file
//	dondetu --config dondetu.yaml --read-only run
func Main(ctx context.Context, args []string) error {
	cmd := NewCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// cli carries the persistent flags and what PersistentPreRunE builds from them.
type cli struct {
	configPath string
	backend    string
	port       string
	readOnly   bool
	logLevel   string

	config  *Config
	logData *logger.LogData
}

// NewCommand builds the root command with its subcommands.
func NewCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:               "dondetu",
		Short:             "DóndeTú restaurant, bar and event discovery API",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.logData.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", os.Getenv("DONDETU_CONFIG"), "Path to a YAML config file")
	flags.StringVar(&c.backend, "backend", "", "Store backend: postgres, sqlite, surrealdb or firestore")
	flags.StringVar(&c.port, "port", "", "HTTP server port")
	flags.BoolVar(&c.readOnly, "read-only", false, "Start with writes disabled")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(c.runCommand(), c.migrateCommand(), c.seedCommand())
	return root
}

// setup loads the configuration, applies flags over it and builds the logger.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		config.Backend = c.backend
	}
	if flags.Changed("port") {
		config.Server.Port = c.port
	}
	if flags.Changed("read-only") {
		config.ReadOnly = c.readOnly
	}
	if flags.Changed("log-level") {
		config.Log.Level = c.logLevel
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	build := logger.New().
		FromBuffer(cmd.ErrOrStderr()).
		WithLevel(config.Log.Level).
		WithFormat(config.Log.Format)
	if config.Log.Path != "" {
		build = build.FromPath(config.Log.Path)
	}
	logData, err := build.Make()
	if err != nil {
		return err
	}

	c.config = config
	c.logData = logData
	return nil
}

func (c *cli) newApp(ctx context.Context) (*App, error) {
	app, err := New(ctx, c.config, c.logData.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

func (c *cli) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return nil
		},
	}
}

func (c *cli) seedCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load places, social networks and events from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open seed file: %w", err)
			}
			defer f.Close()

			file, err := ParseSeedFile(f)
			if err != nil {
				return err
			}

			app, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			result, err := app.Seed(cmd.Context(), file)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d social networks, %d places and %d events\n",
				result.SocialNetworks, result.Places, result.Events)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "Seed file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
