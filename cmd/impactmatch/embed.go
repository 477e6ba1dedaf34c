package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dshills/impactmatch/internal/indexer"
)

func newEmbedCmd(c *cli) *cobra.Command {
	var opts indexer.Options
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed every job and seeker whose vector is missing or stale",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.Jobs && !opts.Seekers {
				return errors.New("nothing to embed: --jobs and --seekers are both false")
			}
			a, err := newApp(cmd.Context(), c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.indexer.EmbedPending(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().BoolVar(&opts.Jobs, "jobs", true, "embed active jobs")
	cmd.Flags().BoolVar(&opts.Seekers, "seekers", true, "embed onboarded seekers")
	return cmd
}
