package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/impactmatch/internal/config"
	"github.com/dshills/impactmatch/internal/importer"
	"github.com/dshills/impactmatch/internal/indexer"
)

func newImportCmd(c *cli) *cobra.Command {
	var embed bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load a YAML catalogue of categories, organizations, jobs and seekers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			catalog, err := importer.LoadFile(args[0])
			if err != nil {
				return err
			}

			// A Redis queue outlives this process, so hand tasks to the
			// serve workers. A memory queue would be lost on exit.
			remote := c.cfg.Queue.Backend == config.QueueRedis
			a, err := newApp(ctx, c.cfg, c.logger, remote)
			if err != nil {
				return err
			}
			defer a.Close()

			var enqueuer importer.Enqueuer
			if remote {
				enqueuer = a.indexer
			}
			res, err := importer.New(a.store, enqueuer, c.logger.Named("importer"),
				importer.WithTables(a.tables)).Import(ctx, catalog)
			if err != nil {
				return err
			}

			out := map[string]interface{}{"import": res}
			if !remote && embed {
				stats, err := a.indexer.EmbedPending(ctx, indexer.Options{Jobs: true, Seekers: true})
				if err != nil {
					c.logger.Warn("embedding after import failed", zap.Error(err))
				} else {
					out["embedding"] = stats
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&embed, "embed", true, "embed imported entities before exiting (memory queue only)")
	return cmd
}
