package cli

import (
	"os"
	"path/filepath"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/config"
	"github.com/gear6io/hivewriter/server/paths"
	"github.com/spf13/cobra"
)

type initOptions struct {
	storage string
	force   bool
}

func newInitCommand(root *rootOptions) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a warehouse directory with a default configuration",
		Long: `Create a warehouse in directory (default: current directory) with a
` + DefaultConfigFile + ` holding the default configuration and the local
catalog directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, opts, dir)
		},
	}

	cmd.Flags().StringVar(&opts.storage, "storage", config.StorageFilesystem, "storage type: filesystem, memory or s3")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing configuration")
	return cmd
}

func runInit(cmd *cobra.Command, opts *initOptions, dir string) error {
	d := NewDisplay(cmd.OutOrStdout(), cmd.ErrOrStderr())

	configPath := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !opts.force {
		return errors.New(errors.CommonAlreadyExists, "configuration already exists", nil).AddContext("path", configPath)
	}

	cfg := config.LoadDefaultConfig()
	cfg.Warehouse.Storage.Type = opts.storage
	cfg.Warehouse.Root = "warehouse"
	if opts.storage == config.StorageS3 {
		cfg.Warehouse.Storage.S3.Bucket = "warehouse"
		cfg.Warehouse.Storage.S3.Endpoint = "localhost:9000"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if opts.storage == config.StorageFilesystem {
		if err := paths.NewManager(filepath.Join(dir, cfg.Warehouse.Root)).EnsureDirectoryStructure(); err != nil {
			return err
		}
	}
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return err
	}

	d.Success("Initialized %s warehouse in %s", opts.storage, dir)
	d.Info("Configuration written to %s", configPath)
	return nil
}
