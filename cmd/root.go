package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/leadscore/pkg/logger"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "leadscore",
		Short:         "Lead score report service",
		Long:          "Turns lead-scoring questionnaires into presentation reports stored in WorkDrive and linked in Zoho CRM.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWith(cmd.ErrOrStderr(), opts.logFormat); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(newServeCmd(), newRenderCmd(), newSubmitCmd())
	return cmd
}
