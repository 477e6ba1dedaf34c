package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dshills/impactmatch/internal/config"
	"github.com/dshills/impactmatch/internal/logger"
)

// cli holds state shared by every subcommand
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "impactmatch ranks impact jobs for seekers and seekers for jobs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is impactmatch.yaml in current directory)")
	flags.BoolP("debug", "d", false, "verbose/debug output")
	flags.BoolP("json", "j", false, "json format for logging")
	_ = c.v.BindPFlag("log.debug", flags.Lookup("debug"))
	_ = c.v.BindPFlag("log.json", flags.Lookup("json"))

	root.AddCommand(
		newServeCmd(c),
		newMatchCmd(c),
		newCandidatesCmd(c),
		newEmbedCmd(c),
		newImportCmd(c),
		newMigrateCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	l, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	c.cfg = cfg
	c.logger = l
	return nil
}
