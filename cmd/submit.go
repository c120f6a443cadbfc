package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/leadscore/internal/testleads"
	"github.com/okian/leadscore/pkg/logger"
)

func newSubmitCmd() *cobra.Command {
	cfg := &testleads.Config{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Post generated leads to a running service and verify the responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := testleads.Run(cmd.Context(), cfg, logger.Named("submit"))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:5000", "Base URL of the service")
	f.IntVar(&cfg.NumLeads, "leads", 1, "Number of leads to submit")
	f.IntVar(&cfg.Workers, "workers", 1, "Number of concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", testleads.DefaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.PayloadFile, "payload", "", "JSON lead used as the base payload (default: built-in sample)")
	f.StringVar(&cfg.LeadPrefix, "lead-prefix", "", "Prefix for generated Lead_IDs")
	f.BoolVar(&cfg.AllowPartial, "allow-partial", false, "Count 207 responses as passed")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every response")
	return cmd
}
