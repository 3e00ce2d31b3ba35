package main

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bizoholic-Digital/leadscore/internal/testleads"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const simulateDeadline = 10 * time.Minute

func newSimulateCmd() *cobra.Command {
	cfg := testleads.Config{}
	var verbose bool
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a running server with synthetic leads and verify the ranking",
		Long: `Generates deterministic synthetic leads, enqueues them against a running
server, waits for the workers to score them and checks the top ranking.
Every --duplicate-every-th signal is sent twice to exercise deduplication.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if verbose {
				level = "debug"
			}
			if err := logger.Init(logger.WithLevel(level)); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), simulateDeadline)
			defer cancel()

			st, err := testleads.Run(ctx, cfg)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(st); encErr != nil && err == nil {
				err = encErr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.NumLeads, "leads", 1000, "number of leads to generate")
	f.IntVar(&cfg.TopN, "top", 50, "number of top leads to fetch and verify")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.DurationVar(&cfg.SettleTimeout, "settle", 2*time.Minute, "how long to wait for queued leads to be scored")
	f.IntVar(&cfg.DuplicateEvery, "duplicate-every", 10, "resend every n-th signal, 0 disables")
	f.BoolVar(&cfg.UseAI, "ai", false, "request AI qualification")
	f.Uint64Var(&cfg.Seed, "seed", 1, "generator seed")
	f.StringVar(&cfg.OutputFile, "output", "", "write generated leads to this YAML file")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every ranked lead")
	return cmd
}
