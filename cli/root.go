package cli

import (
	"context"
	"os"

	"github.com/gear6io/hivewriter/server/config"
	"github.com/gear6io/hivewriter/server/warehouse"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// DefaultConfigFile is picked up from the working directory when --config is not given.
const DefaultConfigFile = "hivewriter.yml"

type rootOptions struct {
	configPath string
	logLevel   string
	verbose    bool
}

// NewRootCommand builds the hivewriter command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hivewriter",
		Short: "Write record batches into Hive-partitioned Parquet tables",
		Long: `hivewriter writes batches of records into partitioned Parquet tables
registered in a metadata catalog, using the Hive directory convention
(<root>/<database>/<table>/<key>=<value>/...).

Tables are created on first write. Data lands on the local filesystem,
in memory, or in an S3-compatible bucket, and the catalog is SQLite.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./"+DefaultConfigFile+" when present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newInitCommand(opts),
		newWriteCommand(opts),
		newReadCommand(opts),
		newDescribeCommand(opts),
		newPartitionsCommand(opts),
		newDropCommand(opts),
		newQueryCommand(opts),
	)
	return cmd
}

// Execute runs the root command
func Execute() error {
	return ExecuteWithContext(context.Background())
}

// ExecuteWithContext runs the root command with ctx
func ExecuteWithContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig resolves the configuration: --config, then ./hivewriter.yml, then defaults.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	cfg := config.LoadDefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	} else if o.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// session is what every data command needs: the opened warehouse and a logger.
type session struct {
	cfg       *config.Config
	warehouse *warehouse.Warehouse
	logger    zerolog.Logger
	logFile   *config.LogFile
	display   *Display
}

func (o *rootOptions) openSession(cmd *cobra.Command, name string) (*session, error) {
	d := NewDisplay(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := o.loadConfig()
	if err != nil {
		d.Error("Failed to load configuration: %v", err)
		return nil, err
	}

	logger, logFile, err := config.SetupLogger(cfg)
	if err != nil {
		d.Error("Failed to set up logging: %v", err)
		return nil, err
	}
	logger = logger.With().Str("cmd", name).Logger()

	w, err := warehouse.Open(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open warehouse")
		d.Error("Failed to open warehouse: %v", err)
		logFile.Close()
		return nil, err
	}

	if o.verbose {
		d.Info("Warehouse %s on %s storage", w.Paths().GetBasePath(), cfg.Warehouse.Storage.Type)
	}
	return &session{cfg: cfg, warehouse: w, logger: logger, logFile: logFile, display: d}, nil
}

func (s *session) Close() {
	if err := s.warehouse.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close warehouse")
	}
	if err := s.logFile.Close(); err != nil {
		s.display.Warning("Failed to close log file: %v", err)
	}
}
