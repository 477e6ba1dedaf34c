package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newMatchCmd(c *cli) *cobra.Command {
	var (
		seekerID int64
		jobID    int64
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank jobs for a seeker, or score one pair with --job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seekerID <= 0 {
				return errors.New("--seeker is required")
			}
			a, err := newApp(cmd.Context(), c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if jobID > 0 {
				match, err := a.matcher.ComputeMatchByID(cmd.Context(), seekerID, jobID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), match)
			}

			if limit <= 0 {
				limit = c.cfg.Matching.ResultLimit
			}
			matches, err := a.matcher.GetMatchesByID(cmd.Context(), seekerID, limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), matches)
		},
	}
	cmd.Flags().Int64Var(&seekerID, "seeker", 0, "seeker id")
	cmd.Flags().Int64Var(&jobID, "job", 0, "score a single job instead of ranking")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum matches (default from matching.result_limit)")
	return cmd
}

func newCandidatesCmd(c *cli) *cobra.Command {
	var (
		jobID int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Rank discoverable seekers for a job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jobID <= 0 {
				return errors.New("--job is required")
			}
			a, err := newApp(cmd.Context(), c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if limit <= 0 {
				limit = c.cfg.Matching.CandidateResultLimit
			}
			candidates, err := a.matcher.GetCandidatesByJobID(cmd.Context(), jobID, limit)
			if err != nil {
				return err
			}

			type row struct {
				SeekerID     int64       `json:"seeker_id"`
				Completeness int         `json:"profile_completeness"`
				Match        interface{} `json:"match"`
			}
			rows := make([]row, 0, len(candidates))
			for _, cm := range candidates {
				rows = append(rows, row{SeekerID: cm.Seeker.ID, Completeness: cm.Seeker.Completeness(), Match: cm.Match})
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "job id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum candidates (default from matching.candidate_result_limit)")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
