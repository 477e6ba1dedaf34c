package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/mcp"
	"github.com/dshills/impactmatch/internal/storage"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching tools over MCP stdio and run embedding workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), c)
		},
	}
}

func serve(parent context.Context, c *cli) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.logger.Info("starting impactmatch",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("sqlite_driver", storage.DriverName),
		zap.String("storage", c.cfg.Storage.Driver),
		zap.String("queue", c.cfg.Queue.Backend))

	a, err := newApp(ctx, c.cfg, c.logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := mcp.NewServer(mcp.Options{
		Store:                a.store,
		Matcher:              a.matcher,
		Indexer:              a.indexer,
		Embedder:             a.provider,
		Tables:               a.tables,
		Logger:               c.logger.Named("mcp"),
		ResultLimit:          c.cfg.Matching.ResultLimit,
		CandidateResultLimit: c.cfg.Matching.CandidateResultLimit,
	})
	if err != nil {
		return err
	}

	var scheduler *indexer.Scheduler
	if c.cfg.Schedule.Enabled {
		scheduler = indexer.NewScheduler(a.indexer, c.cfg.Schedule.Spec, c.logger.Named("scheduler"))
		if err := scheduler.Start(ctx, c.cfg.Schedule.RunNow); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.indexer.Run(gctx)
	})
	g.Go(func() error {
		c.logger.Info("MCP server ready, listening on stdio")
		err := server.Serve(gctx)
		// Stdin closing ends the session; stop the workers with it
		stop()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	c.logger.Info("server stopped")
	return err
}
